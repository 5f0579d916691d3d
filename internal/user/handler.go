package user

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthreport/reportd/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the auth routes. Register and login are public paths
// and bypass the auth middleware.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/auth/me", h.Me)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserExists):
		return echo.NewHTTPError(http.StatusConflict, "user already exists")
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

type meResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	Profile  *User    `json:"profile,omitempty"`
}

// Me returns the caller's token claims, plus the stored account when the
// subject is a known user.
func (h *Handler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	claims := auth.ClaimsFromContext(ctx)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	resp := meResponse{
		ID:       claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Roles:    claims.Roles,
	}
	u, err := h.svc.GetByID(ctx, claims.Subject)
	switch {
	case err == nil:
		resp.Profile = u
	case !errors.Is(err, ErrNotFound):
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"user": resp})
}
