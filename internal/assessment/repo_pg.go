package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthreport/reportd/internal/platform/db"
	"github.com/healthreport/reportd/internal/platform/reporting"
)

type storePG struct{ pool *pgxpool.Pool }

// NewPGStore returns a Store backed by the assessments table.
func NewPGStore(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

const assessmentCols = `id, session_id, assessment_id, accuracy, status, timestamp_ms, data,
	report_generated, report_path, created_by, created_at, updated_at`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.SessionID, &a.AssessmentID, &a.Accuracy, &a.Status,
		&a.Timestamp, &a.Data, &a.ReportGenerated, &a.ReportPath, &a.CreatedBy,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *storePG) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	if a.Data == nil {
		a.Data = map[string]any{}
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO assessments (id, session_id, assessment_id, accuracy, status, timestamp_ms,
			data, report_generated, report_path, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		a.ID, a.SessionID, a.AssessmentID, a.Accuracy, a.Status, a.Timestamp,
		a.Data, a.ReportGenerated, a.ReportPath, a.CreatedBy,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *storePG) GetBySessionID(ctx context.Context, sessionID string) (*Assessment, error) {
	return scanAssessment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM assessments WHERE session_id = $1`, sessionID))
}

func (r *storePG) List(ctx context.Context, f Filter, limit, offset int) ([]*Assessment, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.AssessmentID != "" {
		where += fmt.Sprintf(` AND assessment_id = $%d`, idx)
		args = append(args, f.AssessmentID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM assessments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + assessmentCols + ` FROM assessments` + where +
		fmt.Sprintf(` ORDER BY timestamp_ms DESC, created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *storePG) MarkReportGenerated(ctx context.Context, sessionID, reportPath string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE assessments SET report_generated = TRUE, report_path = $2, updated_at = NOW()
		WHERE session_id = $1`, sessionID, reportPath)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *storePG) Delete(ctx context.Context, sessionID string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM assessments WHERE session_id = $1`, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *storePG) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&n)
	return n, err
}

func (r *storePG) AssessmentStats(ctx context.Context, from, to time.Time, recent int) (*reporting.AssessmentStats, error) {
	conn := db.Conn(ctx, r.pool)
	stats := &reporting.AssessmentStats{}

	err := conn.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE timestamp_ms >= $1 AND timestamp_ms < $2),
			COALESCE(SUM(accuracy), 0)
		FROM assessments`, from.UnixMilli(), to.UnixMilli(),
	).Scan(&stats.Total, &stats.InRange, &stats.AccuracySum)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT assessment_id, COUNT(*) FROM assessments
		GROUP BY assessment_id ORDER BY COUNT(*) DESC, assessment_id`)
	if err != nil {
		return nil, fmt.Errorf("by type: %w", err)
	}
	for rows.Next() {
		var tc reporting.TypeCount
		if err := rows.Scan(&tc.AssessmentID, &tc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByType = append(stats.ByType, tc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = conn.Query(ctx, `
		SELECT session_id, assessment_id, accuracy, status, timestamp_ms, report_generated
		FROM assessments ORDER BY timestamp_ms DESC, created_at DESC LIMIT $1`, recent)
	if err != nil {
		return nil, fmt.Errorf("recent: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s reporting.AssessmentSummary
		if err := rows.Scan(&s.SessionID, &s.AssessmentID, &s.Accuracy, &s.Status,
			&s.Timestamp, &s.ReportGenerated); err != nil {
			return nil, err
		}
		stats.Recent = append(stats.Recent, s)
	}
	return stats, rows.Err()
}
