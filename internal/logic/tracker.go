package logic

import "time"

// StabilityTracker maintains a bounded window of recent weight samples and
// tracks the most recent "stable" baseline: a weight the bowl held constant
// for at least the configured stable duration.
type StabilityTracker struct {
	cfg     Config
	samples *sampleWindow

	stableWeight int
	stableTime   time.Time
	hasStable    bool
}

// NewTracker creates a tracker with the given config. Zero config fields fall
// back to the package defaults.
func NewTracker(cfg Config) *StabilityTracker {
	return &StabilityTracker{
		cfg:     cfg.withDefaults(),
		samples: newSampleWindow(windowCapacity),
	}
}

// RecordSample appends a weight reading to the history and returns it with
// its stability flag set. Stability is judged over the history as of the
// call; the new sample itself is not part of the evaluated window. When a
// new stable baseline is observed, the baseline weight and time are updated.
func (t *StabilityTracker) RecordSample(weight int, ts time.Time) WeightSample {
	sample := WeightSample{Timestamp: ts, Weight: weight}

	if stable, w := t.IsStable(); stable {
		sample.IsStable = true
		if !t.hasStable || w != t.stableWeight {
			t.stableWeight = w
			t.stableTime = ts
			t.hasStable = true
		}
	}

	t.samples.push(sample)
	return sample
}

// IsStable reports whether the weight has been constant for the required
// duration, and the stable weight if so. Samples are integer grams, so
// stability means every weight in the trailing window is identical and the
// window spans at least the stable duration minus one sample interval.
// The margin keeps a slightly late poll from spuriously breaking stability.
func (t *StabilityTracker) IsStable() (bool, int) {
	if t.samples.len() < 2 {
		return false, 0
	}

	newest, _ := t.samples.last()
	cutoff := newest.Timestamp.Add(-t.cfg.StableDuration)
	recent := t.samples.since(cutoff)
	if len(recent) == 0 {
		return false, 0
	}

	weight := recent[0].Weight
	for _, s := range recent[1:] {
		if s.Weight != weight {
			return false, 0
		}
	}

	span := recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp)
	if span >= t.cfg.StableDuration-t.cfg.SampleInterval {
		return true, weight
	}
	return false, 0
}

// DetectSpike reports whether the given weight is far enough above the last
// stable baseline to look like something resting on the scale rather than
// food being added. Advisory only: the state machine does not gate on it.
func (t *StabilityTracker) DetectSpike(weight int) bool {
	if !t.hasStable {
		return false
	}
	return weight > t.stableWeight+t.cfg.SpikeThreshold
}

// ChangeRate returns the absolute rate of weight change in grams per minute
// over the trailing window. Returns 0 with fewer than two samples or zero
// elapsed time.
func (t *StabilityTracker) ChangeRate(window time.Duration) float64 {
	newest, ok := t.samples.last()
	if !ok {
		return 0
	}
	recent := t.samples.since(newest.Timestamp.Add(-window))
	if len(recent) < 2 {
		return 0
	}

	first := recent[0]
	last := recent[len(recent)-1]
	elapsed := last.Timestamp.Sub(first.Timestamp).Seconds()
	if elapsed == 0 {
		return 0
	}

	diff := last.Weight - first.Weight
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) * 60 / elapsed
}

// LastStableWeight returns the most recent stable baseline in grams.
func (t *StabilityTracker) LastStableWeight() (int, bool) {
	return t.stableWeight, t.hasStable
}

// LastStableTime returns when the current baseline was first observed.
func (t *StabilityTracker) LastStableTime() (time.Time, bool) {
	return t.stableTime, t.hasStable
}

// SampleCount returns the number of samples currently held.
func (t *StabilityTracker) SampleCount() int {
	return t.samples.len()
}

// StableFor returns how long the weight has held its current value, based on
// the recorded history. Returns 0 if the bowl is not currently stable.
func (t *StabilityTracker) StableFor(now time.Time) time.Duration {
	stable, weight := t.IsStable()
	if !stable {
		return 0
	}
	// Walk back to the last sample with a different weight.
	for i := t.samples.len() - 1; i >= 0; i-- {
		if t.samples.at(i).Weight != weight {
			if i < t.samples.len()-1 {
				return now.Sub(t.samples.at(i + 1).Timestamp)
			}
			return 0
		}
	}
	// Weight never changed within the retained history.
	return now.Sub(t.samples.at(0).Timestamp)
}
