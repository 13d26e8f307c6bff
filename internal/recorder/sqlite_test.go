package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRecorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordAndQueryEvents(t *testing.T) {
	r := newTestRecorder(t)

	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ev := logic.EatingEvent{
		StartTime:   day,
		EndTime:     day.Add(70 * time.Second),
		StartWeight: 500,
		EndWeight:   490,
		Amount:      10,
		Duration:    70,
		MaxWeight:   495,
	}

	if err := r.RecordEvent("feeder-1", ev); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	// An event for a different device must not leak into the query.
	if err := r.RecordEvent("feeder-2", ev); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	got, err := r.EventsSince("feeder-1", day.Add(-time.Hour))
	if err != nil {
		t.Fatalf("EventsSince: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if !got[0].StartTime.Equal(ev.StartTime) || got[0].Amount != 10 || got[0].MaxWeight != 495 {
		t.Errorf("round trip mismatch: %+v", got[0])
	}
}

func TestEventsSinceFiltersOld(t *testing.T) {
	r := newTestRecorder(t)

	day := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	old := logic.EatingEvent{StartTime: day.Add(-48 * time.Hour), EndTime: day.Add(-48 * time.Hour)}
	recent := logic.EatingEvent{StartTime: day, EndTime: day.Add(time.Minute), Amount: 5}

	r.RecordEvent("feeder-1", old)
	r.RecordEvent("feeder-1", recent)

	got, err := r.EventsSince("feeder-1", day.Add(-time.Hour))
	if err != nil {
		t.Fatalf("EventsSince: %v", err)
	}
	if len(got) != 1 || got[0].Amount != 5 {
		t.Errorf("expected only the recent event, got %+v", got)
	}
}

func TestRecordDailySummary(t *testing.T) {
	r := newTestRecorder(t)

	sum := DailySummary{
		DeviceID:    "feeder-1",
		Date:        "2026-03-01",
		TotalAmount: 42,
		MealCount:   3,
		AvgMealSize: 14,
	}
	if err := r.RecordDailySummary(sum); err != nil {
		t.Fatalf("RecordDailySummary: %v", err)
	}
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoopRecorder()
	if err := rec.RecordEvent("x", logic.EatingEvent{}); err != nil {
		t.Errorf("noop RecordEvent: %v", err)
	}
	events, err := rec.EventsSince("x", time.Now())
	if err != nil || events != nil {
		t.Errorf("noop EventsSince: %v %v", events, err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("noop Close: %v", err)
	}
}
