// Package logic contains pure business logic for bowl-weight eating detection.
// This package has NO external dependencies (no HTTP, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the eating detection phase for a feeder.
type State string

const (
	StateIdle        State = "IDLE"
	StateEating      State = "EATING"
	StateStabilizing State = "STABILIZING"
)

// WeightSample is a single bowl-weight measurement.
type WeightSample struct {
	Timestamp time.Time
	// Weight in grams.
	Weight int
	// IsStable reports whether the weight history was stable when this
	// sample was recorded.
	IsStable bool
}

// EatingEvent is a completed meal. Immutable once constructed.
type EatingEvent struct {
	StartTime time.Time
	EndTime   time.Time
	// StartWeight is the stable baseline before eating began (grams).
	StartWeight int
	// EndWeight is the weight once the bowl settled again (grams).
	EndWeight int
	// Amount eaten in grams, clamped at zero.
	Amount int
	// Duration in whole seconds.
	Duration int
	// MaxWeight is the peak weight seen during the meal. A value above
	// StartWeight usually means the cat stepped on the bowl.
	MaxWeight int
}

// Config holds the detection tunables. Zero values are replaced by defaults
// in NewTracker / NewMachine.
type Config struct {
	// StableDuration is the span of constant weight required before the
	// bowl is considered settled.
	StableDuration time.Duration
	// SampleInterval is the expected poll cadence, used as a tolerance
	// margin when judging stability.
	SampleInterval time.Duration
	// MinEatingAmount is the minimum drop below baseline that counts as
	// eating (grams).
	MinEatingAmount int
	// SpikeThreshold is the minimum rise above baseline classified as a
	// non-eating spike, e.g. a cat sitting on the bowl (grams).
	SpikeThreshold int
}

const (
	DefaultStableDuration  = 60 * time.Second
	DefaultSampleInterval  = 5 * time.Second
	DefaultMinEatingAmount = 2
	DefaultSpikeThreshold  = 100

	// windowCapacity bounds the sample history: 24 hours at the 5s cadence.
	windowCapacity = 17280
)

func (c Config) withDefaults() Config {
	if c.StableDuration <= 0 {
		c.StableDuration = DefaultStableDuration
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = DefaultSampleInterval
	}
	if c.MinEatingAmount <= 0 {
		c.MinEatingAmount = DefaultMinEatingAmount
	}
	if c.SpikeThreshold <= 0 {
		c.SpikeThreshold = DefaultSpikeThreshold
	}
	return c
}
