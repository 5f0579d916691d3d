package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthreport/reportd/internal/platform/db"
)

type storePG struct{ pool *pgxpool.Pool }

// NewPGStore returns a Store backed by the reports table.
func NewPGStore(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

const reportCols = `id, session_id, assessment_id, file_name, blob_id, format, content_type,
	size_bytes, generated_by, status, download_count, last_downloaded, sections, fields,
	config_version, created_at`

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.SessionID, &r.AssessmentID, &r.FileName, &r.BlobID, &r.Format,
		&r.ContentType, &r.Size, &r.GeneratedBy, &r.Status, &r.DownloadCount, &r.LastDownloaded,
		&r.Sections, &r.Fields, &r.ConfigVersion, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *storePG) Create(ctx context.Context, r *Report) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO reports (id, session_id, assessment_id, file_name, blob_id, format,
			content_type, size_bytes, generated_by, status, sections, fields, config_version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at`,
		r.ID, r.SessionID, r.AssessmentID, r.FileName, r.BlobID, r.Format,
		r.ContentType, r.Size, r.GeneratedBy, r.Status, r.Sections, r.Fields, r.ConfigVersion,
	).Scan(&r.CreatedAt)
}

func (s *storePG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(db.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE id = $1`, id))
}

func (s *storePG) List(ctx context.Context, f Filter, limit, offset int) ([]*Report, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.SessionID != "" {
		where += fmt.Sprintf(` AND session_id = $%d`, idx)
		args = append(args, f.SessionID)
		idx++
	}
	if f.AssessmentID != "" {
		where += fmt.Sprintf(` AND assessment_id = $%d`, idx)
		args = append(args, f.AssessmentID)
		idx++
	}

	conn := db.Conn(ctx, s.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + reportCols + ` FROM reports` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

func (s *storePG) RecordDownload(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := db.Conn(ctx, s.pool).Exec(ctx, `
		UPDATE reports SET download_count = download_count + 1, last_downloaded = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *storePG) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n)
	return n, err
}
