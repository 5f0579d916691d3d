package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthreport/reportd/internal/assessment"
	"github.com/healthreport/reportd/internal/platform/blobstore"
	"github.com/healthreport/reportd/internal/render"
)

// ErrSessionRequired is returned when a report is requested without a
// session id.
var ErrSessionRequired = errors.New("session_id is required")

// Assessments looks up stored assessments and records generated reports on
// them.
type Assessments interface {
	Get(ctx context.Context, sessionID string) (*assessment.Assessment, error)
	MarkReportGenerated(ctx context.Context, sessionID, reportPath string) error
}

// GenerateResult is the response of a successful generation.
type GenerateResult struct {
	Message    string             `json:"message"`
	ReportID   uuid.UUID          `json:"reportId"`
	ReportPath string             `json:"reportPath"`
	FileName   string             `json:"fileName"`
	Format     render.Format      `json:"format"`
	SessionID  string             `json:"sessionId"`
	Status     string             `json:"status"`
	ReportData *render.ReportData `json:"reportData"`
}

type Service struct {
	assessments Assessments
	assembler   *Assembler
	chain       *render.Chain
	blobs       blobstore.BlobStore
	store       Store
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(assessments Assessments, assembler *Assembler, chain *render.Chain,
	blobs blobstore.BlobStore, store Store, logger zerolog.Logger) *Service {
	return &Service{
		assessments: assessments,
		assembler:   assembler,
		chain:       chain,
		blobs:       blobs,
		store:       store,
		logger:      logger,
		now:         time.Now,
	}
}

// Generate renders the report of a stored assessment, stores the artifact
// and marks the assessment as reported. An empty format uses the fallback
// chain; a named format renders only that format.
func (s *Service) Generate(ctx context.Context, sessionID, userID string, format render.Format) (*GenerateResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	chain := s.chain
	if format != "" {
		r, err := render.ForFormat(format)
		if err != nil {
			return nil, err
		}
		chain = render.NewChain(s.logger, r)
	}

	a, err := s.assessments.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	data, err := s.assembler.Assemble(a, now)
	if err != nil {
		return nil, err
	}

	art, err := chain.Render(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	fileName := render.FileName(sessionID, now, art.Format)
	blob, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:     fileName,
		ContentType:  art.ContentType,
		SessionID:    sessionID,
		AssessmentID: a.AssessmentID,
		Category:     blobstore.CategoryReport,
		CreatedBy:    userID,
	}, bytes.NewReader(art.Data))
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	rep := &Report{
		ID:            uuid.New(),
		SessionID:     sessionID,
		AssessmentID:  a.AssessmentID,
		FileName:      fileName,
		BlobID:        blob.ID,
		Format:        art.Format,
		ContentType:   art.ContentType,
		Size:          blob.Size,
		Status:        StatusCompleted,
		Sections:      len(data.Sections),
		Fields:        data.FieldCount(),
		ConfigVersion: s.assembler.Catalog().Version(),
	}
	if id, err := uuid.Parse(userID); err == nil {
		rep.GeneratedBy = &id
	}
	if err := s.store.Create(ctx, rep); err != nil {
		if derr := s.blobs.Delete(ctx, blob.ID); derr != nil {
			s.logger.Warn().Err(derr).Str("blob_id", blob.ID).Msg("failed to remove orphaned report artifact")
		}
		return nil, fmt.Errorf("save report: %w", err)
	}

	if err := s.assessments.MarkReportGenerated(ctx, sessionID, rep.DownloadPath()); err != nil {
		return nil, fmt.Errorf("mark assessment reported: %w", err)
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("report_id", rep.ID.String()).
		Str("format", string(art.Format)).
		Int64("size", blob.Size).
		Msg("report generated")

	return &GenerateResult{
		Message:    "Report generated successfully",
		ReportID:   rep.ID,
		ReportPath: rep.DownloadPath(),
		FileName:   fileName,
		Format:     art.Format,
		SessionID:  sessionID,
		Status:     "success",
		ReportData: data,
	}, nil
}

// Preview assembles the report data of a stored assessment without
// rendering or storing anything.
func (s *Service) Preview(ctx context.Context, sessionID string) (*render.ReportData, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	a, err := s.assessments.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.assembler.Assemble(a, s.now())
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Report, int, error) {
	return s.store.List(ctx, f, limit, offset)
}

// Download opens the artifact of a report and counts the download. The caller
// closes the reader.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Report, error) {
	rep, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Download(ctx, rep.BlobID)
	if err != nil {
		return nil, nil, err
	}
	at := s.now().UTC()
	if err := s.store.RecordDownload(ctx, id, at); err != nil {
		rc.Close()
		return nil, nil, err
	}
	rep.DownloadCount++
	rep.LastDownloaded = &at
	return rc, rep, nil
}

// Count returns the number of generated reports.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
