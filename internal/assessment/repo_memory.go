package assessment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthreport/reportd/internal/platform/reporting"
)

// MemoryStore is an in-process Store. It hands out copies so callers cannot
// mutate stored assessments.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Assessment
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Assessment), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, a *Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[a.SessionID]; ok {
		return ErrDuplicate
	}
	a.ID = uuid.New()
	if a.Data == nil {
		a.Data = map[string]any{}
	}
	a.CreatedAt = m.now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.items[a.SessionID] = a.clone()
	return nil
}

func (m *MemoryStore) GetBySessionID(_ context.Context, sessionID string) (*Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return a.clone(), nil
}

// sorted returns the stored assessments matching f, newest first. The caller
// holds the lock.
func (m *MemoryStore) sorted(f Filter) []*Assessment {
	var out []*Assessment
	for _, a := range m.items {
		if f.matches(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

func (m *MemoryStore) List(_ context.Context, f Filter, limit, offset int) ([]*Assessment, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sorted(f)
	total := len(all)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	items := make([]*Assessment, 0, end-offset)
	for _, a := range all[offset:end] {
		items = append(items, a.clone())
	}
	return items, total, nil
}

func (m *MemoryStore) MarkReportGenerated(_ context.Context, sessionID, reportPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[sessionID]
	if !ok {
		return ErrNotFound
	}
	a.ReportGenerated = true
	a.ReportPath = &reportPath
	a.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[sessionID]; !ok {
		return ErrNotFound
	}
	delete(m.items, sessionID)
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *MemoryStore) AssessmentStats(_ context.Context, from, to time.Time, recent int) (*reporting.AssessmentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &reporting.AssessmentStats{}
	counts := map[string]int{}
	lo, hi := from.UnixMilli(), to.UnixMilli()
	for _, a := range m.items {
		stats.Total++
		stats.AccuracySum += a.Accuracy
		if a.Timestamp >= lo && a.Timestamp < hi {
			stats.InRange++
		}
		counts[a.AssessmentID]++
	}

	for id, n := range counts {
		stats.ByType = append(stats.ByType, reporting.TypeCount{AssessmentID: id, Count: n})
	}
	sort.Slice(stats.ByType, func(i, j int) bool {
		if stats.ByType[i].Count != stats.ByType[j].Count {
			return stats.ByType[i].Count > stats.ByType[j].Count
		}
		return stats.ByType[i].AssessmentID < stats.ByType[j].AssessmentID
	})

	for i, a := range m.sorted(Filter{}) {
		if i == recent {
			break
		}
		stats.Recent = append(stats.Recent, a.Summary())
	}
	return stats, nil
}
