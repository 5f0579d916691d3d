package assessment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthreport/reportd/internal/platform/auth"
	"github.com/healthreport/reportd/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/assessments", h.ListAssessments)
	api.GET("/assessments/:sessionId", h.GetAssessment)

	write := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHealthcareProfessional))
	write.POST("/assessments", h.CreateAssessment)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/assessments/:sessionId", h.DeleteAssessment)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	case errors.Is(err, ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) ListAssessments(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		AssessmentID: c.QueryParam("assessment_id"),
		Status:       Status(c.QueryParam("status")),
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c, pg))
}

func (h *Handler) GetAssessment(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// CreateAssessment stores the request body as a new assessment record.
func (h *Handler) CreateAssessment(c echo.Context) error {
	var record map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&record); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	a, err := FromRecord(record)
	if err != nil {
		return httpError(err)
	}

	var createdBy *uuid.UUID
	if id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		createdBy = &id
	}

	if err := h.svc.Create(c.Request().Context(), a, createdBy); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) DeleteAssessment(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("sessionId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
