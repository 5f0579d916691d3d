package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthreport/reportd/internal/assessment"
	"github.com/healthreport/reportd/internal/extract"
	"github.com/healthreport/reportd/internal/platform/blobstore"
	"github.com/healthreport/reportd/internal/render"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type brokenRenderer struct{ format render.Format }

func (b brokenRenderer) Format() render.Format { return b.format }

func (b brokenRenderer) Render(context.Context, *render.ReportData, io.Writer) error {
	return errors.New(string(b.format) + " unavailable")
}

type testEnv struct {
	svc         *Service
	assessments *assessment.Service
	blobs       *blobstore.InMemoryBlobStore
	store       *MemoryStore
	logs        *bytes.Buffer
}

func newTestEnv(t *testing.T, renderers ...render.Renderer) *testEnv {
	t.Helper()
	cat, err := extract.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	assessments := assessment.NewService(assessment.NewMemoryStore(), cat)

	logs := &bytes.Buffer{}
	logger := zerolog.New(logs)
	chain := render.DefaultChain(logger)
	if len(renderers) > 0 {
		chain = render.NewChain(logger, renderers...)
	}

	env := &testEnv{
		assessments: assessments,
		blobs:       blobstore.NewInMemoryBlobStore(),
		store:       NewMemoryStore(),
		logs:        logs,
	}
	assembler := NewAssembler(cat, extract.NewProcessor(nil, logger))
	env.svc = NewService(assessments, assembler, chain, env.blobs, env.store, logger)
	env.svc.now = func() time.Time { return testNow }
	return env
}

func (e *testEnv) addAssessment(t *testing.T, sessionID, assessmentID string) {
	t.Helper()
	a, err := assessment.FromRecord(map[string]any{
		"session_id":    sessionID,
		"assessment_id": assessmentID,
		"accuracy":      float64(80),
		"timestamp":     float64(1740671597044),
		"vitalsMap": map[string]any{
			"vitals": map[string]any{"heart_rate": float64(75), "bp_sys": float64(124)},
		},
	})
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if err := e.assessments.Create(context.Background(), a, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestGenerate_PDF(t *testing.T) {
	env := newTestEnv(t)
	env.addAssessment(t, "session_001", "as_hr_02")
	uid := uuid.New()

	res, err := env.svc.Generate(context.Background(), "session_001", uid.String(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != "success" || res.Format != render.FormatPDF {
		t.Errorf("status/format = %s/%s", res.Status, res.Format)
	}
	wantName := "assessment_session_001_1773480600000.pdf"
	if res.FileName != wantName {
		t.Errorf("file name = %s, want %s", res.FileName, wantName)
	}
	if res.ReportPath != "/api/v1/reports/"+res.ReportID.String()+"/download" {
		t.Errorf("report path = %s", res.ReportPath)
	}
	if res.ReportData == nil || res.ReportData.AssessmentName != "Health & Fitness Assessment" {
		t.Errorf("report data = %+v", res.ReportData)
	}

	rep, err := env.store.GetByID(context.Background(), res.ReportID)
	if err != nil {
		t.Fatalf("report metadata: %v", err)
	}
	if rep.Status != StatusCompleted || rep.GeneratedBy == nil || *rep.GeneratedBy != uid {
		t.Errorf("report = %+v", rep)
	}
	if rep.Sections != len(res.ReportData.Sections) || rep.Fields != res.ReportData.FieldCount() {
		t.Errorf("sections/fields = %d/%d", rep.Sections, rep.Fields)
	}
	if rep.ConfigVersion != "1" {
		t.Errorf("config version = %q", rep.ConfigVersion)
	}

	meta, err := env.blobs.GetMetadata(context.Background(), rep.BlobID)
	if err != nil {
		t.Fatalf("blob: %v", err)
	}
	if meta.ContentType != "application/pdf" || meta.Category != blobstore.CategoryReport || meta.Size != rep.Size {
		t.Errorf("blob metadata = %+v", meta)
	}

	a, _ := env.assessments.Get(context.Background(), "session_001")
	if !a.ReportGenerated || a.ReportPath == nil || *a.ReportPath != res.ReportPath {
		t.Errorf("assessment not marked: %+v", a)
	}
}

func TestGenerate_FallsBackToJSON(t *testing.T) {
	env := newTestEnv(t,
		brokenRenderer{format: render.FormatPDF},
		brokenRenderer{format: render.FormatHTML},
		render.NewJSONRenderer(),
	)
	env.addAssessment(t, "s1", "as_hr_02")

	res, err := env.svc.Generate(context.Background(), "s1", "dev-user", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Format != render.FormatJSON || !strings.HasSuffix(res.FileName, ".json") {
		t.Errorf("format/file = %s/%s", res.Format, res.FileName)
	}
	if !strings.Contains(env.logs.String(), "pdf unavailable") || !strings.Contains(env.logs.String(), "html unavailable") {
		t.Errorf("expected both failures logged, got %s", env.logs.String())
	}

	rep, _ := env.store.GetByID(context.Background(), res.ReportID)
	if rep.GeneratedBy != nil {
		t.Errorf("non-uuid user must not be recorded, got %v", rep.GeneratedBy)
	}
}

func TestGenerate_AllRenderersFail(t *testing.T) {
	env := newTestEnv(t, brokenRenderer{format: render.FormatPDF})
	env.addAssessment(t, "s1", "as_hr_02")

	_, err := env.svc.Generate(context.Background(), "s1", "", "")
	if !errors.Is(err, render.ErrAllRenderersFailed) {
		t.Errorf("expected ErrAllRenderersFailed, got %v", err)
	}
	if n, _ := env.store.Count(context.Background()); n != 0 {
		t.Errorf("expected no report metadata, got %d", n)
	}
	a, _ := env.assessments.Get(context.Background(), "s1")
	if a.ReportGenerated {
		t.Error("assessment must not be marked on failure")
	}
}

func TestGenerate_ForcedFormat(t *testing.T) {
	env := newTestEnv(t)
	env.addAssessment(t, "s1", "as_hr_02")

	res, err := env.svc.Generate(context.Background(), "s1", "", render.FormatHTML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Format != render.FormatHTML {
		t.Errorf("format = %s, want html", res.Format)
	}

	if _, err := env.svc.Generate(context.Background(), "s1", "", "docx"); !errors.Is(err, render.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestGenerate_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.addAssessment(t, "s1", "as_hr_02")

	if _, err := env.svc.Generate(context.Background(), "  ", "", ""); !errors.Is(err, ErrSessionRequired) {
		t.Errorf("expected ErrSessionRequired, got %v", err)
	}
	if _, err := env.svc.Generate(context.Background(), "missing", "", ""); !errors.Is(err, assessment.ErrNotFound) {
		t.Errorf("expected assessment.ErrNotFound, got %v", err)
	}
}

type staticAssessments struct{ a *assessment.Assessment }

func (s staticAssessments) Get(context.Context, string) (*assessment.Assessment, error) {
	return s.a, nil
}

func (staticAssessments) MarkReportGenerated(context.Context, string, string) error { return nil }

func TestGenerate_ConfigNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.svc.assessments = staticAssessments{a: &assessment.Assessment{SessionID: "s1", AssessmentID: "as_retired"}}

	if _, err := env.svc.Generate(context.Background(), "s1", "", ""); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

type failingReportStore struct{ MemoryStore }

func (*failingReportStore) Create(context.Context, *Report) error {
	return errors.New("disk full")
}

func TestGenerate_MetadataFailureRemovesArtifact(t *testing.T) {
	env := newTestEnv(t, render.NewJSONRenderer())
	env.addAssessment(t, "s1", "as_hr_02")
	env.svc.store = &failingReportStore{}

	if _, err := env.svc.Generate(context.Background(), "s1", "", ""); err == nil {
		t.Fatal("expected error")
	}
	_, total, _ := env.blobs.Search(context.Background(), blobstore.SearchParams{SessionID: "s1"})
	if total != 0 {
		t.Errorf("expected orphaned artifact to be removed, found %d", total)
	}
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t, render.NewJSONRenderer())
	env.addAssessment(t, "s1", "as_hr_02")
	res, err := env.svc.Generate(context.Background(), "s1", "", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for i := 1; i <= 2; i++ {
		rc, rep, err := env.svc.Download(context.Background(), res.ReportID)
		if err != nil {
			t.Fatalf("download: %v", err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if !bytes.Contains(body, []byte(`"sessionId": "s1"`)) {
			t.Errorf("unexpected artifact: %s", body)
		}
		if rep.DownloadCount != i || rep.LastDownloaded == nil {
			t.Errorf("download %d: count = %d", i, rep.DownloadCount)
		}
	}

	stored, _ := env.store.GetByID(context.Background(), res.ReportID)
	if stored.DownloadCount != 2 || !stored.LastDownloaded.Equal(testNow) {
		t.Errorf("stored = %+v", stored)
	}

	if _, _, err := env.svc.Download(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)
	env.addAssessment(t, "s1", "as_hr_02")

	data, err := env.svc.Preview(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Metadata.SessionID != "s1" || !data.Metadata.GeneratedAt.Equal(testNow) {
		t.Errorf("metadata = %+v", data.Metadata)
	}
	if n, _ := env.store.Count(context.Background()); n != 0 {
		t.Errorf("preview must not store reports, found %d", n)
	}
	if _, err := env.svc.Preview(context.Background(), ""); !errors.Is(err, ErrSessionRequired) {
		t.Errorf("expected ErrSessionRequired, got %v", err)
	}
}

func TestList(t *testing.T) {
	env := newTestEnv(t, render.NewJSONRenderer())
	env.addAssessment(t, "s1", "as_hr_02")
	env.addAssessment(t, "s2", "as_card_01")
	for _, s := range []string{"s1", "s2", "s1"} {
		if _, err := env.svc.Generate(context.Background(), s, "", ""); err != nil {
			t.Fatalf("generate %s: %v", s, err)
		}
	}

	items, total, err := env.svc.List(context.Background(), Filter{SessionID: "s1"}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("total = %d, len = %d", total, len(items))
	}
	if n, _ := env.svc.Count(context.Background()); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}
