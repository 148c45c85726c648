package profiles

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taxi-booking/internal/models"
	"taxi-booking/pkg/utils"

	"github.com/labstack/echo/v4"
)

const oauthStateCookie = "oauthstate"

type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new profile handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

func (h *Handler) setSession(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(tokenLifetime),
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Validation failed: "+err.Error())
	}

	authResponse, err := h.service.Signup(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return utils.RespondWithError(c, http.StatusConflict, "Email address is already in use")
		}
		c.Logger().Error("Handler.Signup: ", err)
		return utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create user")
	}

	h.setSession(c, authResponse.AccessToken)
	return c.JSON(http.StatusCreated, authResponse)
}

func (h *Handler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Validation failed: "+err.Error())
	}

	authResponse, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			return utils.RespondWithError(c, http.StatusUnauthorized, "Invalid email or password")
		}
		c.Logger().Error("Handler.Login: ", err)
		return utils.RespondWithError(c, http.StatusInternalServerError, "Failed to log in")
	}

	h.setSession(c, authResponse.AccessToken)
	return c.JSON(http.StatusOK, authResponse)
}

// Logout clears the session cookie.
func (h *Handler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.NoContent(http.StatusNoContent)
}

// GoogleLogin starts the OAuth code flow and redirects to Google's consent screen.
func (h *Handler) GoogleLogin(c echo.Context) error {
	authURL, state, err := h.service.HandleGoogleLogin()
	if err != nil {
		c.Logger().Error("Handler.GoogleLogin: failed to generate auth URL: ", err)
		return utils.RespondWithError(c, http.StatusInternalServerError, "Could not initiate Google login")
	}

	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// GoogleCallback validates the state cookie, completes the login and
// redirects back to the client with the token.
func (h *Handler) GoogleCallback(c echo.Context) error {
	stateCookie, err := c.Cookie(oauthStateCookie)
	if err != nil {
		c.Logger().Error("Handler.GoogleCallback: could not read state cookie: ", err)
		return utils.RespondWithError(c, http.StatusUnauthorized, "Invalid or missing state cookie")
	}
	if c.QueryParam("state") != stateCookie.Value {
		c.Logger().Error("Handler.GoogleCallback: state parameter mismatch")
		return utils.RespondWithError(c, http.StatusUnauthorized, "Invalid state parameter")
	}

	stateCookie.Value = ""
	stateCookie.Expires = time.Unix(0, 0)
	stateCookie.Path = "/"
	c.SetCookie(stateCookie)

	code := c.QueryParam("code")
	if code == "" {
		return utils.RespondWithError(c, http.StatusBadRequest, "Authorization code not provided")
	}

	authResponse, err := h.service.HandleGoogleCallback(c.Request().Context(), code)
	if err != nil {
		c.Logger().Error("Handler.GoogleCallback: service error: ", err)
		return c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("%s/login/error", h.service.GetClientOrigin()))
	}

	h.setSession(c, authResponse.AccessToken)
	redirectURL := fmt.Sprintf("%s/login/success?token=%s", h.service.GetClientOrigin(), url.QueryEscape(authResponse.AccessToken))
	return c.Redirect(http.StatusTemporaryRedirect, redirectURL)
}

// GetMe handles GET /auth/me.
func (h *Handler) GetMe(c echo.Context) error {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		return utils.RespondWithError(c, http.StatusUnauthorized, err.Error())
	}
	profile, err := h.service.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

type loginPage struct {
	Redirect  string            `json:"redirect"`
	Endpoints map[string]string `json:"endpoints"`
}

// LoginPage handles GET /login. It tells the client where to authenticate
// and where to go afterwards.
func (h *Handler) LoginPage(c echo.Context) error {
	redirect := c.QueryParam("redirect")
	// Only local paths; anything else could bounce the user off-site.
	if !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		redirect = "/"
	}
	return c.JSON(http.StatusOK, loginPage{
		Redirect: redirect,
		Endpoints: map[string]string{
			"login":  "/auth/login",
			"signup": "/auth/signup",
			"google": "/auth/google/login",
		},
	})
}
