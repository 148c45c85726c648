package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"taxi-booking/internal/models"
	"taxi-booking/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// tokenLookup accepts the token from the Authorization header or, for
// browser page requests, the session cookie.
const tokenLookup = "header:Authorization:Bearer ,cookie:" + utils.SessionCookie

// RoleLookup resolves the stored role of a user.
type RoleLookup interface {
	LookupRole(ctx context.Context, userID string) (models.Role, error)
}

func jwtConfig(jwtSecretKey string) echojwt.Config {
	return echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(models.JwtCustomClaims)
		},
		SigningKey:  []byte(jwtSecretKey),
		TokenLookup: tokenLookup,
		// Copy the claims we need onto the context.
		SuccessHandler: func(c echo.Context) {
			userToken := c.Get("user").(*jwt.Token)
			claims := userToken.Claims.(*models.JwtCustomClaims)

			c.Set(utils.ContextUserID, claims.UserID)
			c.Set(utils.ContextUserEmail, claims.Email)
		},
	}
}

// hasCredentials reports whether the request carries any token at all.
func hasCredentials(c echo.Context) bool {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ") {
		return true
	}
	cookie, err := c.Cookie(utils.SessionCookie)
	return err == nil && cookie.Value != ""
}

// JWTMAuth configures and returns Echo's JWT middleware.
// Requests without a valid token are rejected with 401.
func JWTMAuth(jwtSecretKey string) echo.MiddlewareFunc {
	config := jwtConfig(jwtSecretKey)
	config.ErrorHandler = func(c echo.Context, err error) error {
		c.Logger().Errorf("JWT Error: %v", err)

		if !hasCredentials(c) {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Missing or malformed JWT"})
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Token is malformed"})
		} else if errors.Is(err, jwt.ErrTokenExpired) {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Token has expired"})
		} else if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid token signature"})
		}
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid or expired JWT"})
	}
	return echojwt.WithConfig(config)
}

// OptionalJWTAuth identifies the caller when a valid token is present and
// lets anonymous requests through. A bad token is treated as no token.
func OptionalJWTAuth(jwtSecretKey string) echo.MiddlewareFunc {
	config := jwtConfig(jwtSecretKey)
	config.Skipper = func(c echo.Context) bool {
		return !hasCredentials(c)
	}
	config.ContinueOnIgnoredError = true
	config.ErrorHandler = func(c echo.Context, err error) error {
		c.Logger().Warnf("Ignoring invalid JWT on optional route: %v", err)
		return nil
	}
	return echojwt.WithConfig(config)
}

// LoadRole looks up the caller's role from storage and stores it on the
// context. It must run after a JWT middleware.
func LoadRole(lookup RoleLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(utils.ContextUserID).(string)
			if !ok || userID == "" {
				return next(c)
			}
			role, err := lookup.LookupRole(c.Request().Context(), userID)
			if err != nil {
				c.Logger().Error("LoadRole: ", err)
				return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to resolve user role"})
			}
			c.Set(utils.ContextUserRole, role)
			return next(c)
		}
	}
}

// AdminRequired rejects callers whose loaded role is not admin.
func AdminRequired() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !utils.RequesterFromContext(c).IsAdmin() {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Admin access required"})
			}
			return next(c)
		}
	}
}

// PageAuth guards browser pages: without a valid session the browser is
// sent to the login page with the requested path preserved.
func PageAuth(jwtSecretKey string) echo.MiddlewareFunc {
	config := jwtConfig(jwtSecretKey)
	config.ErrorHandler = func(c echo.Context, err error) error {
		// '/' is legal in a query value and keeps the link readable.
		redirect := strings.ReplaceAll(url.QueryEscape(c.Request().URL.RequestURI()), "%2F", "/")
		target := "/login?redirect=" + redirect
		return c.Redirect(http.StatusFound, target)
	}
	return echojwt.WithConfig(config)
}
