package echoapi

import (
	"net/http"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/auth"
)

const (
	jwtContextKey      = "userToken"
	identityContextKey = "identity"
)

// newJWTConfig returns the JWT auth middleware config verifying tokens issued by tokens.
func newJWTConfig(tokens *auth.TokenManager) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    tokens.SigningKey(),
		SigningMethod: auth.SigningMethod.Alg(),
		ContextKey:    jwtContextKey,
		Claims:        new(auth.Claims),
	}
}

// identityMiddleware stores the caller's auth.Identity, decoded from the verified token, in the context.
func identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, ok := ctx.Get(jwtContextKey).(*jwt.Token)
		if !ok {
			return errUnauthorized
		}
		claims, ok := token.Claims.(*auth.Claims)
		if !ok {
			return errUnauthorized
		}
		ctx.Set(identityContextKey, claims.Identity())
		return next(ctx)
	}
}

func contextIdentity(ctx echo.Context) (auth.Identity, error) {
	if ident, ok := ctx.Get(identityContextKey).(auth.Identity); ok && !ident.IsZero() {
		return ident, nil
	}
	return auth.Identity{}, errUnauthorized
}

type authAPI struct {
	authn *auth.Authenticator
}

func registerAuthAPI(g *echo.Group, authn *auth.Authenticator) {
	api := authAPI{authn: authn}
	g.POST("/login", api.login)
}

// LoginRequest carries no validation rules: blank or malformed credentials fail like wrong ones.
type LoginRequest struct {
	UserType string `json:"userType"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (lr *LoginRequest) clean() {
	lr.UserType = core.CleanString(lr.UserType, true /* lower */)
	lr.Username = core.CleanString(lr.Username)
}

func (api *authAPI) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.clean()

	res, err := api.authn.Login(ctx.Request().Context(), data.UserType, data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return ctx.JSON(http.StatusOK, res)
}
