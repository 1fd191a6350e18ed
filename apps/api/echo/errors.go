package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/auth"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
)

type errorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code int
			resp errorResponse
		)

		cause := errors.Cause(err)
		if cause == auth.ErrAuthFailure {
			cause = echo.NewHTTPError(http.StatusUnauthorized, auth.ErrAuthFailure.Error())
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				resp.Message = errUnauthorized.Message.(string)
				break
			}
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			resp.Message = http.StatusText(code)
			if m, ok := origErr.Message.(string); ok {
				resp.Message = m
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			resp.Message = "invalid data"
			resp.Fields = core.TranslateValidationErrors(origErr, translator)
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp.Message = origErr.Error()
			if len(origErr.Fields) > 0 {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
		case *core.NotFoundError:
			code = http.StatusNotFound
			resp.Message = origErr.Error()
		case *core.PermissionError:
			code = http.StatusForbidden
			resp.Message = origErr.Error()
		case *core.FileError:
			code = http.StatusBadRequest
			resp.Message = origErr.Op
			logger.Warn(origErr.Error(), logArgs(ctx, err)...)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			resp.Message = msg
			logger.Error(msg, logArgs(ctx, errors.Wrap(err, msg))...)

			if ctx.Echo().Debug {
				resp.Message = err.Error()
			}
			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// logArgs attributes a logged error to the caller, when known.
func logArgs(ctx echo.Context, err error) []interface{} {
	args := []interface{}{err}
	if ident, iErr := contextIdentity(ctx); iErr == nil {
		args = append(args, ident)
	}
	return args
}
