package assessment

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthreport/reportd/internal/platform/db"
	"github.com/healthreport/reportd/migrations"
)

// pgStore connects to TEST_DATABASE_URL, applies the migrations and empties
// the assessments table. The test is skipped when the variable is unset.
func pgStore(t *testing.T) (Store, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, url, 4, 1)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.NewMigrator(pool, migrations.Files).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE reports, assessments`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPGStore(pool), pool
}

func TestPGStore_RoundTrip(t *testing.T) {
	store, pool := pgStore(t)
	ctx := context.Background()
	svc := NewService(store, testCatalog(t))

	a, _ := FromRecord(record("pg_s1", "as_hr_02", 80, 2000))
	if err := svc.Create(ctx, a, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup, _ := FromRecord(record("pg_s1", "as_hr_02", 80, 2000))
	if err := svc.Create(ctx, dup, nil); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	got, err := store.GetBySessionID(ctx, "pg_s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	vitals := got.Data["vitalsMap"].(map[string]any)["vitals"].(map[string]any)
	if vitals["heart_rate"] != float64(72) {
		t.Errorf("data = %v", got.Data)
	}

	if err := store.MarkReportGenerated(ctx, "pg_s1", "/api/v1/reports/x/download"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	// Writes inside WithTx are rolled back with it.
	errRollback := errors.New("rollback")
	err = db.WithTx(ctx, pool, func(ctx context.Context) error {
		b, _ := FromRecord(record("pg_tx", "as_card_01", 10, 3000))
		if err := store.Create(ctx, b); err != nil {
			return err
		}
		return errRollback
	})
	if !errors.Is(err, errRollback) {
		t.Fatalf("WithTx: %v", err)
	}
	if _, err := store.GetBySessionID(ctx, "pg_tx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected rolled back insert, got %v", err)
	}

	items, total, err := store.List(ctx, Filter{Status: StatusCompleted}, 10, 0)
	if err != nil || total != 1 || len(items) != 1 || !items[0].ReportGenerated {
		t.Errorf("list = %v, %d, %v", items, total, err)
	}

	stats, err := store.AssessmentStats(ctx, time.UnixMilli(0), time.UnixMilli(5000), 5)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 1 || stats.InRange != 1 || stats.AccuracySum != 80 || len(stats.Recent) != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if err := store.Delete(ctx, "pg_s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "pg_s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
