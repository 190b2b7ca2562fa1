package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/register"
)

var (
	errSessionNotFound = echo.NewHTTPError(http.StatusNotFound, "session not found")
	errInvalidIndex    = echo.NewHTTPError(http.StatusBadRequest, "invalid index")
	errUploadTooLarge  = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "the uploaded file is too large")
)

// userMessenger is implemented by the errors of the REST backend.
type userMessenger interface {
	UserMessage() string
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.FieldMessages(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				message = core.FieldMessages(origErr, translator)
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case userMessenger:
			code = http.StatusBadGateway
			message = origErr.UserMessage()
		default:
			switch origErr {
			case register.ErrNotFound, register.ErrIndexOutOfRange:
				code = http.StatusNotFound
				message = origErr.Error()
			case register.ErrRequestInFlight:
				code = http.StatusConflict
				message = origErr.Error()
			case register.ErrUnknownKind, register.ErrUnknownField, register.ErrNoParent, register.ErrEmptyUpload:
				code = http.StatusBadRequest
				message = origErr.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				logger.Error(msg, errors.Wrap(err, msg), core.Fields{"path": ctx.Path(), "session": ctx.Param("sid")})

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
