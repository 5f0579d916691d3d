// Package assessment stores assessment sessions: the raw record captured by a
// scan plus the columns the API filters and sorts on.
package assessment

import (
	"time"

	"github.com/google/uuid"

	"github.com/healthreport/reportd/internal/platform/reporting"
)

type Status string

const (
	StatusCompleted  Status = "completed"
	StatusPending    Status = "pending"
	StatusFailed     Status = "failed"
	StatusInProgress Status = "in_progress"
)

var validStatuses = map[Status]bool{
	StatusCompleted: true, StatusPending: true, StatusFailed: true, StatusInProgress: true,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return validStatuses[s]
}

// Assessment is one stored session. Data holds the record exactly as it was
// submitted; the remaining fields mirror values of that record or track
// report generation.
type Assessment struct {
	ID              uuid.UUID      `json:"id"`
	SessionID       string         `json:"session_id"`
	AssessmentID    string         `json:"assessment_id"`
	Accuracy        float64        `json:"accuracy"`
	Status          Status         `json:"status"`
	Timestamp       int64          `json:"timestamp"`
	Data            map[string]any `json:"data"`
	ReportGenerated bool           `json:"report_generated"`
	ReportPath      *string        `json:"report_path,omitempty"`
	CreatedBy       *uuid.UUID     `json:"created_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Record returns the tree that field paths are evaluated against: the stored
// record with the indexed columns laid over its top level. Data is not
// modified.
func (a *Assessment) Record() map[string]any {
	rec := make(map[string]any, len(a.Data)+5)
	for k, v := range a.Data {
		rec[k] = v
	}
	rec["session_id"] = a.SessionID
	rec["assessment_id"] = a.AssessmentID
	rec["accuracy"] = a.Accuracy
	rec["status"] = string(a.Status)
	rec["timestamp"] = float64(a.Timestamp)
	return rec
}

// Summary returns the dashboard view of a.
func (a *Assessment) Summary() reporting.AssessmentSummary {
	return reporting.AssessmentSummary{
		SessionID:       a.SessionID,
		AssessmentID:    a.AssessmentID,
		Accuracy:        a.Accuracy,
		Status:          string(a.Status),
		Timestamp:       a.Timestamp,
		ReportGenerated: a.ReportGenerated,
	}
}

func (a *Assessment) clone() *Assessment {
	c := *a
	if a.Data != nil {
		c.Data = make(map[string]any, len(a.Data))
		for k, v := range a.Data {
			c.Data[k] = v
		}
	}
	if a.ReportPath != nil {
		p := *a.ReportPath
		c.ReportPath = &p
	}
	if a.CreatedBy != nil {
		id := *a.CreatedBy
		c.CreatedBy = &id
	}
	return &c
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	AssessmentID string
	Status       Status
}

func (f Filter) matches(a *Assessment) bool {
	if f.AssessmentID != "" && a.AssessmentID != f.AssessmentID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
