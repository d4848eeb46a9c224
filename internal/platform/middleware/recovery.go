package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ohs/ohs/internal/platform/auth"
)

const maxPanicStack = 8 << 10

// Recovery turns a handler panic into a 500 and logs it with the same request
// fields Logger records.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				logPanic(logger, c, r)
				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}

func logPanic(logger zerolog.Logger, c echo.Context, r interface{}) {
	stack := make([]byte, maxPanicStack)
	stack = stack[:runtime.Stack(stack, false)]

	req := c.Request()
	rid, _ := c.Get("request_id").(string)
	evt := logger.Error()
	if perr, ok := r.(error); ok {
		evt = evt.Err(perr)
	}
	evt.
		Str("request_id", rid).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("route", c.Path()).
		Str("user_id", auth.UserIDFromContext(req.Context())).
		Str("panic", fmt.Sprint(r)).
		Bytes("stack", stack).
		Msg("panic recovered")
}
