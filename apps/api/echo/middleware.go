package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const sessionKey = "session"

// sessionMiddleware loads the session named by the :sid param into the context.
func sessionMiddleware(sessions *sessionManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := sessions.get(ctx.Param("sid"))
			if err != nil {
				return err
			}
			ctx.Set(sessionKey, sess)
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) (*session, error) {
	sess, ok := ctx.Get(sessionKey).(*session)
	if !ok || sess == nil {
		return nil, errors.New("session not loaded")
	}
	return sess, nil
}
