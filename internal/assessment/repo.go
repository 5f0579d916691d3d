package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/healthreport/reportd/internal/platform/reporting"
)

var (
	ErrNotFound  = errors.New("assessment not found")
	ErrDuplicate = errors.New("assessment with this session_id already exists")
)

// Store persists assessments. Lookups are by session id.
type Store interface {
	Create(ctx context.Context, a *Assessment) error
	GetBySessionID(ctx context.Context, sessionID string) (*Assessment, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Assessment, int, error)
	MarkReportGenerated(ctx context.Context, sessionID, reportPath string) error
	Delete(ctx context.Context, sessionID string) error
	Count(ctx context.Context) (int, error)
	AssessmentStats(ctx context.Context, from, to time.Time, recent int) (*reporting.AssessmentStats, error)
}
