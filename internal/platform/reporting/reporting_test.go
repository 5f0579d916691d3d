package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestPredefinedMeasures(t *testing.T) {
	expectedIDs := []string{
		"assessment-volume-by-type",
		"assessment-status",
		"report-formats",
		"daily-report-volume",
	}
	if len(PredefinedMeasures) != len(expectedIDs) {
		t.Fatalf("expected %d predefined measures, got %d", len(expectedIDs), len(PredefinedMeasures))
	}
	for i, expectedID := range expectedIDs {
		if PredefinedMeasures[i].ID != expectedID {
			t.Errorf("expected measure[%d].ID = %s, got %s", i, expectedID, PredefinedMeasures[i].ID)
		}
	}

	for _, m := range PredefinedMeasures {
		if m.SQL == "" || m.Name == "" || m.Description == "" {
			t.Errorf("measure %s is incomplete", m.ID)
		}
		if !strings.Contains(m.SQL, "assessments") && !strings.Contains(m.SQL, "reports") {
			t.Errorf("measure %s should query assessments or reports", m.ID)
		}
	}
}

func TestFindMeasure(t *testing.T) {
	m := FindMeasure("report-formats")
	if m == nil {
		t.Fatal("expected to find report-formats measure")
	}
	if m.Name != "Report Formats" {
		t.Errorf("expected 'Report Formats', got %s", m.Name)
	}
	if FindMeasure("nonexistent") != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func TestMeasureHandler_UnknownMeasure(t *testing.T) {
	h := NewMeasureHandler(nil)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.EvaluateMeasure(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

type fakeAssessments struct {
	stats    *AssessmentStats
	err      error
	from, to time.Time
	recent   int
}

func (f *fakeAssessments) AssessmentStats(_ context.Context, from, to time.Time, recent int) (*AssessmentStats, error) {
	f.from, f.to, f.recent = from, to, recent
	return f.stats, f.err
}

type fakeCounter struct {
	n   int
	err error
}

func (f fakeCounter) Count(context.Context) (int, error) { return f.n, f.err }

func TestDashboard_Stats(t *testing.T) {
	src := &fakeAssessments{stats: &AssessmentStats{
		Total:       3,
		InRange:     1,
		AccuracySum: 80 + 75 + 90.6,
		ByType:      []TypeCount{{AssessmentID: "as_hr_02", Count: 2}, {AssessmentID: "as_card_01", Count: 1}},
		Recent: []AssessmentSummary{
			{SessionID: "session_003", AssessmentID: "as_card_01", Accuracy: 90.6},
		},
	}}
	d := NewDashboard(src, fakeCounter{n: 4}, fakeCounter{n: 7}, map[string]string{"as_card_01": "Cardiac Assessment"})
	d.now = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC) }

	stats, err := d.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalAssessments != 3 || stats.TodayAssessments != 1 {
		t.Errorf("unexpected counts %+v", stats)
	}
	if stats.TotalUsers != 4 || stats.TotalReports != 7 {
		t.Errorf("unexpected user/report counts %+v", stats)
	}
	if stats.AverageScore != 82 {
		t.Errorf("expected rounded average 82, got %d", stats.AverageScore)
	}
	if len(stats.RecentAssessments) != 1 || stats.RecentAssessments[0].AssessmentName != "Cardiac Assessment" {
		t.Errorf("expected recent list with names, got %+v", stats.RecentAssessments)
	}

	wantFrom := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !src.from.Equal(wantFrom) || !src.to.Equal(wantFrom.AddDate(0, 0, 1)) {
		t.Errorf("expected today's window, got %s to %s", src.from, src.to)
	}
	if src.recent != RecentLimit {
		t.Errorf("expected recent limit %d, got %d", RecentLimit, src.recent)
	}
}

func TestDashboard_EmptyStore(t *testing.T) {
	d := NewDashboard(&fakeAssessments{stats: &AssessmentStats{}}, fakeCounter{}, fakeCounter{}, nil)

	stats, err := d.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.AverageScore != 0 {
		t.Errorf("expected average 0 for no assessments, got %d", stats.AverageScore)
	}

	out, _ := json.Marshal(stats)
	if !strings.Contains(string(out), `"assessmentsByType":[]`) || !strings.Contains(string(out), `"recentAssessments":[]`) {
		t.Errorf("expected empty arrays rather than null, got %s", out)
	}
}

func TestDashboard_SourceErrors(t *testing.T) {
	boom := errors.New("boom")
	cases := map[string]*Dashboard{
		"assessments": NewDashboard(&fakeAssessments{err: boom}, fakeCounter{}, fakeCounter{}, nil),
		"users":       NewDashboard(&fakeAssessments{stats: &AssessmentStats{}}, fakeCounter{err: boom}, fakeCounter{}, nil),
		"reports":     NewDashboard(&fakeAssessments{stats: &AssessmentStats{}}, fakeCounter{}, fakeCounter{err: boom}, nil),
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := d.Stats(context.Background()); !errors.Is(err, boom) {
				t.Errorf("expected wrapped source error, got %v", err)
			}
		})
	}
}

func TestHandler_GetStats(t *testing.T) {
	d := NewDashboard(&fakeAssessments{stats: &AssessmentStats{Total: 2, AccuracySum: 150}}, fakeCounter{n: 1}, fakeCounter{n: 0}, nil)
	e := echo.New()
	NewHandler(d).RegisterRoutes(e.Group("/api/v1"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["totalAssessments"] != float64(2) || body["averageScore"] != float64(75) {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandler_GetStatsError(t *testing.T) {
	d := NewDashboard(&fakeAssessments{err: errors.New("db down")}, fakeCounter{}, fakeCounter{}, nil)
	e := echo.New()
	NewHandler(d).RegisterRoutes(e.Group(""))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
