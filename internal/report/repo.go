package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("report not found")

// Store persists report metadata.
type Store interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Report, int, error)
	RecordDownload(ctx context.Context, id uuid.UUID, at time.Time) error
	Count(ctx context.Context) (int, error)
}
