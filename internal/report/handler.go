package report

import (
	"errors"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthreport/reportd/internal/assessment"
	"github.com/healthreport/reportd/internal/platform/auth"
	"github.com/healthreport/reportd/internal/platform/blobstore"
	"github.com/healthreport/reportd/internal/render"
	"github.com/healthreport/reportd/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	generate := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleHealthcareProfessional))
	generate.POST("/generate-report", h.GenerateReport)
	generate.GET("/generate-report", h.GenerateReport)

	api.GET("/reports", h.ListReports)
	api.GET("/reports/preview/:sessionId", h.PreviewReport)
	api.GET("/reports/:id", h.GetReport)
	api.GET("/reports/:id/download", h.DownloadReport)

	api.GET("/config/assessments", h.ListConfigurations)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSessionRequired):
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	case errors.Is(err, assessment.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "assessment data not found")
	case errors.Is(err, ErrConfigNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, "assessment configuration not found")
	case errors.Is(err, render.ErrUnknownFormat):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	case errors.Is(err, blobstore.ErrBlobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "report artifact not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate report")
}

type generateRequest struct {
	SessionID string `json:"session_id" query:"session_id"`
	Format    string `json:"format" query:"format"`
}

// GenerateReport takes the session id from the JSON body on POST and from the
// query string on GET.
func (h *Handler) GenerateReport(c echo.Context) error {
	var req generateRequest
	if c.Request().Method == http.MethodPost {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	} else {
		req.SessionID = c.QueryParam("session_id")
		req.Format = c.QueryParam("format")
	}

	var format render.Format
	if req.Format != "" {
		f, err := render.ParseFormat(req.Format)
		if err != nil {
			return httpError(err)
		}
		format = f
	}

	ctx := c.Request().Context()
	res, err := h.svc.Generate(ctx, req.SessionID, auth.UserIDFromContext(ctx), format)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) PreviewReport(c echo.Context) error {
	data, err := h.svc.Preview(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) ListReports(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		SessionID:    c.QueryParam("session_id"),
		AssessmentID: c.QueryParam("assessment_id"),
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithLinks(c, pg))
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DownloadReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rc, r, err := h.svc.Download(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	defer rc.Close()

	disposition := "attachment"
	if c.QueryParam("inline") == "true" {
		disposition = "inline"
	}
	c.Response().Header().Set("Content-Disposition", contentDisposition(disposition, r.FileName))
	return c.Stream(http.StatusOK, r.ContentType, rc)
}

// contentDisposition quotes or encodes fileName as needed so it cannot end
// the header parameter early.
func contentDisposition(disposition, fileName string) string {
	if v := mime.FormatMediaType(disposition, map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return disposition
}

func (h *Handler) ListConfigurations(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.assembler.Summary())
}
