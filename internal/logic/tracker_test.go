package logic

import (
	"testing"
	"time"
)

func TestNewTrackerDefaults(t *testing.T) {
	tr := NewTracker(Config{})
	cfg := tr.cfg
	if cfg.StableDuration != 60*time.Second {
		t.Errorf("expected stable duration 60s, got %v", cfg.StableDuration)
	}
	if cfg.SampleInterval != 5*time.Second {
		t.Errorf("expected sample interval 5s, got %v", cfg.SampleInterval)
	}
	if cfg.MinEatingAmount != 2 {
		t.Errorf("expected min eating amount 2, got %d", cfg.MinEatingAmount)
	}
	if cfg.SpikeThreshold != 100 {
		t.Errorf("expected spike threshold 100, got %d", cfg.SpikeThreshold)
	}
}

func TestIsStableEmptyHistory(t *testing.T) {
	tr := NewTracker(Config{})
	stable, w := tr.IsStable()
	if stable || w != 0 {
		t.Errorf("empty history: expected (false, 0), got (%v, %d)", stable, w)
	}
}

func TestIsStableSingleSample(t *testing.T) {
	tr := NewTracker(Config{})
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tr.RecordSample(500, now)
	stable, w := tr.IsStable()
	if stable || w != 0 {
		t.Errorf("single sample: expected (false, 0), got (%v, %d)", stable, w)
	}
}

func TestIsStableConstantWeight(t *testing.T) {
	tr := NewTracker(Config{})
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// Constant 500g every 5s. Span reaches 55s (= 60 - 5) at the 12th sample.
	for i := 0; i < 12; i++ {
		tr.RecordSample(500, now.Add(time.Duration(i)*5*time.Second))
	}

	stable, w := tr.IsStable()
	if !stable {
		t.Fatal("expected stable after 55s of constant weight")
	}
	if w != 500 {
		t.Errorf("expected stable weight 500, got %d", w)
	}
}

func TestIsStableInsufficientSpan(t *testing.T) {
	tr := NewTracker(Config{})
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// Constant weight but only spanning 30s.
	for i := 0; i < 7; i++ {
		tr.RecordSample(500, now.Add(time.Duration(i)*5*time.Second))
	}

	if stable, _ := tr.IsStable(); stable {
		t.Error("should not be stable with only 30s of history")
	}
}

func TestIsStableVaryingWeight(t *testing.T) {
	tr := NewTracker(Config{})
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 14; i++ {
		w := 500
		if i == 10 {
			w = 499 // one wobble inside the window
		}
		tr.RecordSample(w, now.Add(time.Duration(i)*5*time.Second))
	}

	if stable, _ := tr.IsStable(); stable {
		t.Error("should not be stable with a differing weight in the window")
	}
}

func TestIsStableOldSamplesOutsideWindow(t *testing.T) {
	tr := NewTracker(Config{})
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// Old different weight, then constant weight for over a minute. The old
	// sample falls outside the trailing 60s window and must not matter.
	tr.RecordSample(800, now)
	for i := 0; i < 14; i++ {
		tr.RecordSample(500, now.Add(2*time.Minute).Add(time.Duration(i)*5*time.Second))
	}

	stable, w := tr.IsStable()
	if !stable || w != 500 {
		t.Errorf("expected (true, 500), got (%v, %d)", stable, w)
	}
}

func TestRecordSampleUpdatesBaseline(t *testing.T) {
	tr := NewTracker(Config{})
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	if _, ok := tr.LastStableWeight(); ok {
		t.Fatal("baseline should be unknown before any samples")
	}

	for i := 0; i < 13; i++ {
		tr.RecordSample(500, now.Add(time.Duration(i)*5*time.Second))
	}

	w, ok := tr.LastStableWeight()
	if !ok {
		t.Fatal("expected a baseline after constant weight")
	}
	if w != 500 {
		t.Errorf("expected baseline 500, got %d", w)
	}
	if _, ok := tr.LastStableTime(); !ok {
		t.Error("expected a baseline time")
	}
}

func TestBaselineMovesToNewStableValue(t *testing.T) {
	tr := NewTracker(Config{})
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 13; i++ {
		tr.RecordSample(500, base.Add(time.Duration(i)*5*time.Second))
	}
	if w, _ := tr.LastStableWeight(); w != 500 {
		t.Fatalf("expected baseline 500, got %d", w)
	}

	// New constant value. Baseline follows once it has held long enough.
	later := base.Add(5 * time.Minute)
	for i := 0; i < 14; i++ {
		tr.RecordSample(480, later.Add(time.Duration(i)*5*time.Second))
	}

	w, _ := tr.LastStableWeight()
	if w != 480 {
		t.Errorf("expected baseline to move to 480, got %d", w)
	}
}

func TestStabilityEvaluatedBeforeAppend(t *testing.T) {
	tr := NewTracker(Config{})
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 13; i++ {
		tr.RecordSample(500, now.Add(time.Duration(i)*5*time.Second))
	}

	// A fresh different reading is judged against the existing history, so
	// the returned sample still carries the stable flag.
	s := tr.RecordSample(450, now.Add(65*time.Second))
	if !s.IsStable {
		t.Error("sample stability should reflect history as of the call")
	}
	if w, _ := tr.LastStableWeight(); w != 500 {
		t.Errorf("baseline should still be 500, got %d", w)
	}
}

func TestDetectSpike(t *testing.T) {
	tr := NewTracker(Config{})
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// No baseline yet: never a spike.
	if tr.DetectSpike(5000) {
		t.Error("should not detect spike without a baseline")
	}

	for i := 0; i < 13; i++ {
		tr.RecordSample(500, now.Add(time.Duration(i)*5*time.Second))
	}

	tests := []struct {
		weight int
		want   bool
	}{
		{500, false},
		{599, false},
		{600, false}, // exactly at threshold is not a spike
		{601, true},
		{1200, true},
	}
	for _, tt := range tests {
		if got := tr.DetectSpike(tt.weight); got != tt.want {
			t.Errorf("DetectSpike(%d) = %v, want %v", tt.weight, got, tt.want)
		}
	}
}

func TestChangeRate(t *testing.T) {
	tr := NewTracker(Config{})
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	if rate := tr.ChangeRate(time.Minute); rate != 0 {
		t.Errorf("empty history: expected rate 0, got %f", rate)
	}

	// 500g -> 470g over 30s = 60 g/min.
	tr.RecordSample(500, now)
	tr.RecordSample(490, now.Add(10*time.Second))
	tr.RecordSample(470, now.Add(30*time.Second))

	rate := tr.ChangeRate(time.Minute)
	if rate != 60 {
		t.Errorf("expected 60 g/min, got %f", rate)
	}

	// Rate is absolute: rising weight reports the same magnitude.
	tr2 := NewTracker(Config{})
	tr2.RecordSample(470, now)
	tr2.RecordSample(500, now.Add(30*time.Second))
	if rate := tr2.ChangeRate(time.Minute); rate != 60 {
		t.Errorf("expected 60 g/min for rise, got %f", rate)
	}
}

func TestStableFor(t *testing.T) {
	tr := NewTracker(Config{})
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tr.RecordSample(520, base)
	start := base.Add(5 * time.Second)
	for i := 0; i < 14; i++ {
		tr.RecordSample(500, start.Add(time.Duration(i)*5*time.Second))
	}

	now := start.Add(70 * time.Second)
	got := tr.StableFor(now)
	if got != 70*time.Second {
		t.Errorf("expected stable for 70s, got %v", got)
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	w := newSampleWindow(3)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		w.push(WeightSample{Timestamp: base.Add(time.Duration(i) * time.Second), Weight: i})
	}

	if w.len() != 3 {
		t.Fatalf("expected len 3, got %d", w.len())
	}
	if w.at(0).Weight != 2 || w.at(2).Weight != 4 {
		t.Errorf("expected oldest=2 newest=4, got oldest=%d newest=%d", w.at(0).Weight, w.at(2).Weight)
	}
}
