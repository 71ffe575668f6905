package api

import (
	"net/http"
	"time"

	"github.com/Aeshi-Nero/Mind-Haven/internal/auth"
	"github.com/Aeshi-Nero/Mind-Haven/internal/service"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	users        *service.UserService
	cookieSecure bool
}

func NewAuthHandler(users *service.UserService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{users: users, cookieSecure: cookieSecure}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	// Username may also hold the email address.
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	req := registerRequest{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	user, err := h.users.Register(c.Request().Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *AuthHandler) Login(c echo.Context) error {
	req := loginRequest{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	session, err := h.users.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, session.Token, session.Principal.ExpiresAt)
	return c.JSON(http.StatusOK, map[string]interface{}{"user": session.User})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}

	if err := h.users.Logout(c.Request().Context(), p); err != nil {
		return err
	}

	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, message("Logged out"))
}

// Session reports who the current session belongs to.
func (h *AuthHandler) Session(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{"id": p.UserID, "username": p.Username},
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}

	user, err := h.users.GetProfile(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

type profileRequest struct {
	Name           *string `json:"name"`
	ProfilePicture *string `json:"profile_picture"`
	Bio            *string `json:"bio"`
}

func (h *AuthHandler) UpdateMe(c echo.Context) error {
	p, err := auth.RequireSession(c)
	if err != nil {
		return err
	}

	req := profileRequest{}
	if err := c.Bind(&req); err != nil {
		return invalidPayload(c)
	}

	user, err := h.users.UpdateProfile(c.Request().Context(), p.UserID, service.ProfileInput{
		Name:           req.Name,
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
