package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Error is a non-2xx answer of the backend.
type Error struct {
	StatusCode int
	Message    string
}

func newError(status int, body string) *Error {
	return &Error{StatusCode: status, Message: extractMessage(status, body)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

// UserMessage is the text shown to the user.
func (e *Error) UserMessage() string { return e.Message }

// ErrUnreachable is what the user reads when a request got no answer from the backend.
var ErrUnreachable = errors.New("the registrar backend could not be reached")

// TransportError is a request that failed before the backend answered (refused connection, timeout...).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnreachable) hold for every transport failure.
func (e *TransportError) Is(target error) bool { return target == ErrUnreachable }

// UserMessage is the text shown to the user.
func (e *TransportError) UserMessage() string { return ErrUnreachable.Error() }

// IsNotFound reports whether the cause of err is a 404 answer.
func IsNotFound(err error) bool {
	e, ok := errors.Cause(err).(*Error)
	return ok && e.StatusCode == http.StatusNotFound
}

// extractMessage reads the error message of a backend answer: "detail", then "error", then
// the first message of the first field in alphabetical order. It falls back to the status text.
func extractMessage(status int, body string) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if msg := rawString(payload[key]); msg != "" {
				return msg
			}
		}

		fields := make([]string, 0, len(payload))
		for field := range payload {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			if msg := rawString(payload[field]); msg != "" {
				return field + ": " + msg
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("unexpected status %d", status)
}

// rawString returns raw as a string, or its first element when it is a list of strings.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0])
	}
	return ""
}
