package core

// Logger is the application logger.
// args may carry an error, a Fields map or any value worth printing.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Fields are extra key/values attached to a log entry.
type Fields map[string]interface{}
