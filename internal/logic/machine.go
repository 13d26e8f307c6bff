package logic

import "time"

// settleThreshold is how long the weight must stop changing mid-meal before
// the machine tentatively enters STABILIZING. Deliberately much shorter than
// the configured stable duration: the short threshold reacts quickly to the
// start of a settle window, the full duration confirms the meal really ended.
const settleThreshold = 10 * time.Second

// phase is the transient state-machine state. It is a plain value so the
// transition function can be exercised without a tracker or host object.
// All fields are meaningful only while State != StateIdle.
type phase struct {
	State State

	EatingStart  time.Time
	StartWeight  int
	MaxWeight    int
	hasMaxWeight bool

	CheckStart  time.Time
	CheckWeight int
	hasCheck    bool
}

// baseline is the tracker's stable-weight snapshot fed into a transition.
type baseline struct {
	Weight int
	Known  bool
}

// Machine converts a noisy bowl-weight stream into discrete eating events.
// It owns one StabilityTracker and is driven by one ProcessWeight call per
// poll cycle.
type Machine struct {
	tracker   *StabilityTracker
	minAmount int

	ph        phase
	lastEvent *EatingEvent
}

// NewMachine creates an eating detection machine with the given config.
func NewMachine(cfg Config) *Machine {
	cfg = cfg.withDefaults()
	return &Machine{
		tracker:   NewTracker(cfg),
		minAmount: cfg.MinEatingAmount,
		ph:        phase{State: StateIdle},
	}
}

// Tracker returns the machine's stability tracker for read-only queries.
func (m *Machine) Tracker() *StabilityTracker {
	return m.tracker
}

// ProcessWeight records a sample and advances the state machine. It returns
// a completed EatingEvent when a meal concludes, nil otherwise. It never
// fails: malformed readings are expected to be converted to 0 upstream.
func (m *Machine) ProcessWeight(weight int, ts time.Time) *EatingEvent {
	m.tracker.RecordSample(weight, ts)

	bw, known := m.tracker.LastStableWeight()
	next, event := advance(m.ph, baseline{Weight: bw, Known: known}, m.minAmount, m.tracker.cfg.StableDuration, weight, ts)
	m.ph = next
	if event != nil {
		m.lastEvent = event
	}
	return event
}

// advance is the pure transition function: (phase, sample) -> (phase, event).
func advance(ph phase, base baseline, minAmount int, stableDuration time.Duration, weight int, ts time.Time) (phase, *EatingEvent) {
	// Track the peak weight across the whole meal, spikes included.
	if ph.State == StateEating && ph.hasMaxWeight && weight > ph.MaxWeight {
		ph.MaxWeight = weight
	}

	switch ph.State {
	case StateIdle:
		return idleStep(ph, base, minAmount, weight, ts), nil

	case StateEating:
		return eatingStep(ph, weight, ts), nil

	case StateStabilizing:
		return stabilizingStep(ph, stableDuration, weight, ts)
	}

	return ph, nil
}

// idleStep starts a meal when the weight drops below the known baseline by
// more than the minimum eating amount. Without a baseline nothing happens.
func idleStep(ph phase, base baseline, minAmount int, weight int, ts time.Time) phase {
	if !base.Known {
		return ph
	}
	if weight < base.Weight-minAmount {
		ph.State = StateEating
		ph.EatingStart = ts
		ph.StartWeight = base.Weight
		ph.MaxWeight = weight
		ph.hasMaxWeight = true
	}
	return ph
}

// eatingStep runs the inner settle check: consecutive identical raw weights
// for settleThreshold move the machine into STABILIZING. Any change resets
// the check. The check start is NOT reset on the transition, so the final
// confirmation clock keeps running from the moment the weight stopped moving.
func eatingStep(ph phase, weight int, ts time.Time) phase {
	if !ph.hasCheck || weight != ph.CheckWeight {
		ph.CheckStart = ts
		ph.CheckWeight = weight
		ph.hasCheck = true
		return ph
	}

	if ts.Sub(ph.CheckStart) >= settleThreshold {
		ph.State = StateStabilizing
	}
	return ph
}

// stabilizingStep either falls back to EATING when the weight moves again,
// or finalizes the meal once the weight has held for the full stable
// duration.
func stabilizingStep(ph phase, stableDuration time.Duration, weight int, ts time.Time) (phase, *EatingEvent) {
	if weight != ph.CheckWeight {
		ph.State = StateEating
		ph.CheckStart = ts
		ph.CheckWeight = weight
		return ph, nil
	}

	if ts.Sub(ph.CheckStart) >= stableDuration {
		event := finishEvent(ph, weight, ts)
		return phase{State: StateIdle}, event
	}
	return ph, nil
}

func finishEvent(ph phase, endWeight int, endTime time.Time) *EatingEvent {
	amount := ph.StartWeight - endWeight
	if amount < 0 {
		amount = 0
	}
	maxWeight := endWeight
	if ph.hasMaxWeight {
		maxWeight = ph.MaxWeight
	}
	return &EatingEvent{
		StartTime:   ph.EatingStart,
		EndTime:     endTime,
		StartWeight: ph.StartWeight,
		EndWeight:   endWeight,
		Amount:      amount,
		Duration:    int(endTime.Sub(ph.EatingStart).Seconds()),
		MaxWeight:   maxWeight,
	}
}

// State returns the current detection phase.
func (m *Machine) State() State {
	return m.ph.State
}

// IsEating reports whether a meal is in progress (EATING or STABILIZING).
func (m *Machine) IsEating() bool {
	return m.ph.State == StateEating || m.ph.State == StateStabilizing
}

// CurrentAmount returns the grams consumed so far in the meal in progress,
// or 0 when idle.
func (m *Machine) CurrentAmount() int {
	if !m.IsEating() {
		return 0
	}
	current := 0
	if m.ph.hasCheck {
		current = m.ph.CheckWeight
	}
	amount := m.ph.StartWeight - current
	if amount < 0 {
		return 0
	}
	return amount
}

// CurrentDuration returns how long the meal in progress has been running,
// in whole seconds, or 0 when idle.
func (m *Machine) CurrentDuration(now time.Time) int {
	if !m.IsEating() {
		return 0
	}
	return int(now.Sub(m.ph.EatingStart).Seconds())
}

// LastEvent returns the most recently completed eating event, or nil.
func (m *Machine) LastEvent() *EatingEvent {
	return m.lastEvent
}
