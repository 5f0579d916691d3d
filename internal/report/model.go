// Package report assembles report data from stored assessments, renders it
// and keeps track of the generated artifacts.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthreport/reportd/internal/render"
)

type Status string

const (
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Report describes one generated artifact. The artifact bytes live in the
// blob store under BlobID.
type Report struct {
	ID             uuid.UUID     `json:"id"`
	SessionID      string        `json:"session_id"`
	AssessmentID   string        `json:"assessment_id"`
	FileName       string        `json:"file_name"`
	BlobID         string        `json:"blob_id"`
	Format         render.Format `json:"format"`
	ContentType    string        `json:"content_type"`
	Size           int64         `json:"size"`
	GeneratedBy    *uuid.UUID    `json:"generated_by,omitempty"`
	Status         Status        `json:"status"`
	DownloadCount  int           `json:"download_count"`
	LastDownloaded *time.Time    `json:"last_downloaded,omitempty"`
	Sections       int           `json:"sections"`
	Fields         int           `json:"fields"`
	ConfigVersion  string        `json:"config_version"`
	CreatedAt      time.Time     `json:"created_at"`
}

// DownloadPath is the API path serving the artifact of r.
func (r *Report) DownloadPath() string {
	return "/api/v1/reports/" + r.ID.String() + "/download"
}

func (r *Report) clone() *Report {
	c := *r
	if r.GeneratedBy != nil {
		id := *r.GeneratedBy
		c.GeneratedBy = &id
	}
	if r.LastDownloaded != nil {
		t := *r.LastDownloaded
		c.LastDownloaded = &t
	}
	return &c
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	SessionID    string
	AssessmentID string
}

func (f Filter) matches(r *Report) bool {
	if f.SessionID != "" && r.SessionID != f.SessionID {
		return false
	}
	if f.AssessmentID != "" && r.AssessmentID != f.AssessmentID {
		return false
	}
	return true
}
