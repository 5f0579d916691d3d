// Package reporting serves dashboard statistics over assessments, users and
// generated reports, plus predefined SQL measures for the Postgres backend.
package reporting

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RecentLimit is the number of newest assessments the dashboard lists.
const RecentLimit = 5

// TypeCount is the number of assessments of one assessment type.
type TypeCount struct {
	AssessmentID string `json:"assessmentId"`
	Count        int    `json:"count"`
}

// AssessmentSummary is the dashboard view of one stored assessment.
type AssessmentSummary struct {
	SessionID       string  `json:"sessionId"`
	AssessmentID    string  `json:"assessmentId"`
	AssessmentName  string  `json:"assessmentName,omitempty"`
	Accuracy        float64 `json:"accuracy"`
	Status          string  `json:"status"`
	Timestamp       int64   `json:"timestamp"`
	ReportGenerated bool    `json:"reportGenerated"`
}

// AssessmentStats aggregates stored assessments. InRange counts assessments
// whose timestamp falls in the half-open window passed to the source.
type AssessmentStats struct {
	Total       int
	InRange     int
	AccuracySum float64
	ByType      []TypeCount
	Recent      []AssessmentSummary
}

// AssessmentSource computes assessment aggregates.
type AssessmentSource interface {
	AssessmentStats(ctx context.Context, from, to time.Time, recent int) (*AssessmentStats, error)
}

// Counter counts the rows of one store.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Stats is the response of GET /dashboard/stats.
type Stats struct {
	TotalAssessments  int                 `json:"totalAssessments"`
	TodayAssessments  int                 `json:"todayAssessments"`
	TotalUsers        int                 `json:"totalUsers"`
	TotalReports      int                 `json:"totalReports"`
	AverageScore      int                 `json:"averageScore"`
	AssessmentsByType []TypeCount         `json:"assessmentsByType"`
	RecentAssessments []AssessmentSummary `json:"recentAssessments"`
	GeneratedAt       time.Time           `json:"generatedAt"`
}

// Dashboard computes Stats from its sources.
type Dashboard struct {
	assessments AssessmentSource
	users       Counter
	reports     Counter
	names       map[string]string
	now         func() time.Time
}

// NewDashboard creates a dashboard. names maps assessment ids to display
// names for the recent list and may be nil.
func NewDashboard(assessments AssessmentSource, users, reports Counter, names map[string]string) *Dashboard {
	return &Dashboard{
		assessments: assessments,
		users:       users,
		reports:     reports,
		names:       names,
		now:         time.Now,
	}
}

// Stats returns the current statistics. "Today" is the local calendar day.
func (d *Dashboard) Stats(ctx context.Context) (*Stats, error) {
	now := d.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	as, err := d.assessments.AssessmentStats(ctx, dayStart, dayEnd, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("assessment stats: %w", err)
	}
	users, err := d.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	reports, err := d.reports.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	avg := 0
	if as.Total > 0 {
		avg = int(math.Round(as.AccuracySum / float64(as.Total)))
	}

	byType := as.ByType
	if byType == nil {
		byType = []TypeCount{}
	}
	recent := make([]AssessmentSummary, 0, len(as.Recent))
	for _, r := range as.Recent {
		if r.AssessmentName == "" {
			r.AssessmentName = d.names[r.AssessmentID]
		}
		recent = append(recent, r)
	}

	return &Stats{
		TotalAssessments:  as.Total,
		TodayAssessments:  as.InRange,
		TotalUsers:        users,
		TotalReports:      reports,
		AverageScore:      avg,
		AssessmentsByType: byType,
		RecentAssessments: recent,
		GeneratedAt:       now.UTC(),
	}, nil
}

// Handler provides HTTP handlers for the dashboard API.
type Handler struct {
	dashboard *Dashboard
}

// NewHandler creates a new dashboard handler.
func NewHandler(d *Dashboard) *Handler {
	return &Handler{dashboard: d}
}

// RegisterRoutes registers the dashboard API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard/stats", h.GetStats)
}

// GetStats returns the dashboard statistics.
func (h *Handler) GetStats(c echo.Context) error {
	stats, err := h.dashboard.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute dashboard statistics")
	}
	return c.JSON(http.StatusOK, stats)
}
