package assessment

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

//go:embed seed/assessments.json
var defaultSeed []byte

// seedEntry is one sample record. Records without a timestamp are dated
// AgeDays before the time of seeding.
type seedEntry struct {
	AgeDays int            `json:"ageDays"`
	Record  map[string]any `json:"record"`
}

// SeedResult counts the outcome of a Seed call.
type SeedResult struct {
	Created int
	Skipped int
}

// Seed stores the sample assessments from data, or the built-in samples when
// data is empty. Existing sessions are skipped.
func Seed(ctx context.Context, svc *Service, data []byte) (SeedResult, error) {
	if len(data) == 0 {
		data = defaultSeed
	}
	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return SeedResult{}, fmt.Errorf("parse seed data: %w", err)
	}

	var res SeedResult
	now := svc.now()
	for i, e := range entries {
		a, err := FromRecord(e.Record)
		if err != nil {
			return res, fmt.Errorf("seed entry %d: %w", i, err)
		}
		if a.Timestamp == 0 {
			a.Timestamp = now.Add(-time.Duration(e.AgeDays) * 24 * time.Hour).UnixMilli()
		}
		err = svc.Create(ctx, a, nil)
		if errors.Is(err, ErrDuplicate) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed %s: %w", a.SessionID, err)
		}
		res.Created++
	}
	return res, nil
}

// SeedFile seeds from a JSON file in the built-in seed layout.
func SeedFile(ctx context.Context, svc *Service, path string) (SeedResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedResult{}, fmt.Errorf("read seed file: %w", err)
	}
	return Seed(ctx, svc, data)
}
