package handler

import (
	"net/http"

	"github.com/campuslabs/roomreserve/internal/auth"
	"github.com/campuslabs/roomreserve/internal/dto"
	"github.com/campuslabs/roomreserve/internal/middleware"
	"github.com/campuslabs/roomreserve/internal/repository"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	users    repository.UserRepository
	sessions *auth.SessionStore
	verifier auth.CredentialVerifier
}

func NewAuthHandler(users repository.UserRepository, sessions *auth.SessionStore, verifier auth.CredentialVerifier) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, verifier: verifier}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/auth/login", h.Login)
	e.POST("/api/auth/logout", h.Logout)
	e.GET("/api/auth/me", h.Me, middleware.RequireAuth)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.users.FindByStudentID(c.Request().Context(), req.StudentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !h.verifier.Verify(req.Password, user.PasswordHash) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	sessionID := h.sessions.Create(user)
	return c.JSON(http.StatusOK, dto.LoginResponse{
		User:      dto.ToUserResponse(user),
		SessionID: sessionID,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if id := c.Request().Header.Get(middleware.SessionHeader); id != "" {
		h.sessions.Delete(id)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	sess, _ := middleware.CurrentSession(c)

	user, err := h.users.FindByID(c.Request().Context(), sess.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, dto.ToUserResponse(user))
}
