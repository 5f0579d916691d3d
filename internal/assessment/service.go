package assessment

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthreport/reportd/internal/extract"
)

// ErrInvalid marks validation failures of submitted assessments.
var ErrInvalid = errors.New("invalid assessment")

// sessionIDPattern limits session ids to characters that are safe in report
// file names and URL paths.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// Catalog reports which assessment types have a report layout.
type Catalog interface {
	Get(id string) (*extract.AssessmentType, bool)
}

type Service struct {
	store   Store
	catalog Catalog
	now     func() time.Time
}

func NewService(store Store, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog, now: time.Now}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// FromRecord builds an Assessment from a submitted record. The record is kept
// verbatim as Data; session_id, assessment_id, accuracy, status and timestamp
// are read from its top level. accuracy is required: Record lays the column
// back over the record, so a defaulted value would reach extraction as data.
func FromRecord(record map[string]any) (*Assessment, error) {
	if record == nil {
		return nil, invalid("record is required")
	}
	a := &Assessment{Data: record, Status: StatusCompleted}

	a.SessionID, _ = record["session_id"].(string)
	a.AssessmentID, _ = record["assessment_id"].(string)

	v, ok := record["accuracy"]
	if !ok || v == nil {
		return nil, invalid("accuracy is required")
	}
	f, ok := extract.Of(v).Float()
	if !ok {
		return nil, invalid("accuracy must be a number")
	}
	a.Accuracy = f

	if v, ok := record["status"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, invalid("status must be a string")
		}
		a.Status = Status(s)
	}
	if v, ok := record["timestamp"]; ok && v != nil {
		f, ok := extract.Of(v).Float()
		if !ok {
			return nil, invalid("timestamp must be a number of milliseconds")
		}
		a.Timestamp = int64(f)
	}
	return a, nil
}

func (s *Service) validate(a *Assessment) error {
	if strings.TrimSpace(a.SessionID) == "" {
		return invalid("session_id is required")
	}
	if !sessionIDPattern.MatchString(a.SessionID) {
		return invalid("session_id may only contain letters, digits, '.', '_' and '-' (at most 128)")
	}
	if a.AssessmentID == "" {
		return invalid("assessment_id is required")
	}
	if _, ok := s.catalog.Get(a.AssessmentID); !ok {
		return invalid("unknown assessment_id: %s", a.AssessmentID)
	}
	if a.Accuracy < 0 || a.Accuracy > 100 {
		return invalid("accuracy must be between 0 and 100")
	}
	if a.Status == "" {
		a.Status = StatusCompleted
	}
	if !a.Status.Valid() {
		return invalid("invalid status: %s", a.Status)
	}
	if a.Timestamp < 0 {
		return invalid("timestamp must not be negative")
	}
	return nil
}

// Create validates and stores a. A missing timestamp is set to now.
func (s *Service) Create(ctx context.Context, a *Assessment, createdBy *uuid.UUID) error {
	if err := s.validate(a); err != nil {
		return err
	}
	if a.Timestamp == 0 {
		a.Timestamp = s.now().UnixMilli()
	}
	a.CreatedBy = createdBy
	a.ReportGenerated = false
	a.ReportPath = nil
	return s.store.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Assessment, error) {
	return s.store.GetBySessionID(ctx, sessionID)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Assessment, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, invalid("invalid status: %s", f.Status)
	}
	return s.store.List(ctx, f, limit, offset)
}

func (s *Service) Delete(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

// MarkReportGenerated records that a report for sessionID is available at
// reportPath.
func (s *Service) MarkReportGenerated(ctx context.Context, sessionID, reportPath string) error {
	return s.store.MarkReportGenerated(ctx, sessionID, reportPath)
}
