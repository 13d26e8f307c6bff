// Package store persists each feeder's eating events for the current day as
// a JSON file. It is a daily log, not an archive: on load, events that did
// not start today are discarded.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

// Store reads and writes per-device event files under a base directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// eventRecord is the on-disk shape of one eating event. Timestamps are
// ISO-8601, weights are integer grams, duration integer seconds.
type eventRecord struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Amount      int    `json:"amount"`
	Duration    int    `json:"duration"`
	StartWeight int    `json:"start_weight"`
	EndWeight   int    `json:"end_weight"`
	MaxWeight   int    `json:"max_weight"`
}

type deviceFile struct {
	Events      []eventRecord `json:"events"`
	LastUpdated string        `json:"last_updated"`
}

func (s *Store) path(deviceID string) string {
	return filepath.Join(s.dir, "eating_history_"+deviceID+".json")
}

// Save writes the device's events, replacing any previous file.
func (s *Store) Save(deviceID string, events []logic.EatingEvent, now time.Time) error {
	out := deviceFile{
		Events:      make([]eventRecord, 0, len(events)),
		LastUpdated: now.Format(time.RFC3339),
	}
	for _, ev := range events {
		out.Events = append(out.Events, eventRecord{
			Start:       ev.StartTime.Format(time.RFC3339),
			End:         ev.EndTime.Format(time.RFC3339),
			Amount:      ev.Amount,
			Duration:    ev.Duration,
			StartWeight: ev.StartWeight,
			EndWeight:   ev.EndWeight,
			MaxWeight:   ev.MaxWeight,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	// Write via a temp file so a crash mid-write cannot corrupt the log.
	tmp := s.path(deviceID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	if err := os.Rename(tmp, s.path(deviceID)); err != nil {
		return fmt.Errorf("replace events file: %w", err)
	}
	return nil
}

// Load returns the device's events that started on the same calendar day as
// now. A missing file is not an error. Malformed entries are skipped with a
// warning so one corrupt record cannot block the rest of the day's history.
func (s *Store) Load(deviceID string, now time.Time) ([]logic.EatingEvent, error) {
	data, err := os.ReadFile(s.path(deviceID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read events: %w", err)
	}

	var in deviceFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse events file: %w", err)
	}

	today := now.Format("2006-01-02")
	var events []logic.EatingEvent
	for _, rec := range in.Events {
		start, err := time.Parse(time.RFC3339, rec.Start)
		if err != nil {
			log.Printf("[WARN] store: skipping event with bad start time %q: %v", rec.Start, err)
			continue
		}
		if start.Format("2006-01-02") != today {
			continue
		}
		end, err := time.Parse(time.RFC3339, rec.End)
		if err != nil {
			log.Printf("[WARN] store: skipping event with bad end time %q: %v", rec.End, err)
			continue
		}
		events = append(events, logic.EatingEvent{
			StartTime:   start,
			EndTime:     end,
			Amount:      rec.Amount,
			Duration:    rec.Duration,
			StartWeight: rec.StartWeight,
			EndWeight:   rec.EndWeight,
			MaxWeight:   rec.MaxWeight,
		})
	}
	return events, nil
}
