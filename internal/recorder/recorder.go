// Package recorder archives completed eating events for long-term analysis.
// The JSON store keeps only the current day; the recorder keeps everything.
package recorder

import (
	"time"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

// DailySummary is the per-device rollup written at the midnight rollover.
type DailySummary struct {
	DeviceID    string
	Date        string // YYYY-MM-DD
	TotalAmount int    // grams
	MealCount   int
	AvgMealSize float64 // grams
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordEvent(deviceID string, ev logic.EatingEvent) error
	RecordDailySummary(sum DailySummary) error
	// EventsSince returns archived events for a device with start times at
	// or after the given instant, oldest first.
	EventsSince(deviceID string, since time.Time) ([]logic.EatingEvent, error)
	Close() error
}

// NoopRecorder discards everything. Used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (*NoopRecorder) RecordEvent(string, logic.EatingEvent) error { return nil }
func (*NoopRecorder) RecordDailySummary(DailySummary) error       { return nil }
func (*NoopRecorder) EventsSince(string, time.Time) ([]logic.EatingEvent, error) {
	return nil, nil
}
func (*NoopRecorder) Close() error { return nil }
