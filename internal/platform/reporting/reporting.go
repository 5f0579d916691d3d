package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/healthreport/reportd/internal/platform/auth"
	"github.com/healthreport/reportd/internal/platform/db"
)

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"sql"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "assessment-volume-by-type",
		Name:        "Assessment Volume by Type",
		Description: "Number of stored assessments grouped by assessment type",
		SQL:         `SELECT assessment_id, COUNT(*) AS total, ROUND(AVG(accuracy)::numeric, 1) AS avg_accuracy FROM assessments GROUP BY assessment_id ORDER BY total DESC`,
	},
	{
		ID:          "assessment-status",
		Name:        "Assessment Status",
		Description: "Count of assessments by status and whether a report was generated",
		SQL:         `SELECT status, report_generated, COUNT(*) AS total FROM assessments GROUP BY status, report_generated ORDER BY total DESC`,
	},
	{
		ID:          "report-formats",
		Name:        "Report Formats",
		Description: "Generated reports by format, with total downloads",
		SQL:         `SELECT format, COUNT(*) AS total, COALESCE(SUM(download_count), 0) AS downloads FROM reports GROUP BY format ORDER BY total DESC`,
	},
	{
		ID:          "daily-report-volume",
		Name:        "Daily Report Volume",
		Description: "Reports generated per day over the last 30 days",
		SQL:         `SELECT date_trunc('day', created_at)::date AS day, COUNT(*) AS total FROM reports WHERE created_at >= now() - interval '30 days' GROUP BY 1 ORDER BY 1`,
	},
}

// MeasureHandler evaluates predefined measures against Postgres.
type MeasureHandler struct {
	db db.Querier
}

// NewMeasureHandler creates a new measure handler.
func NewMeasureHandler(q db.Querier) *MeasureHandler {
	return &MeasureHandler{db: q}
}

// RegisterRoutes registers the measure API routes.
func (h *MeasureHandler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard/measures", auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.ListMeasures)
	g.GET("/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *MeasureHandler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *MeasureHandler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	results, err := executeSQL(c.Request().Context(), h.db, measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now().UTC(),
		Results:     results,
	})
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func executeSQL(ctx context.Context, q db.Querier, sql string) ([]map[string]interface{}, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, nil
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
