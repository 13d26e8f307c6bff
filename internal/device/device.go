// Package device glues one feeder's cloud readings to the eating detection
// core and owns the per-device daily history.
package device

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pawsense/feeder-monitor/internal/cloud"
	"github.com/pawsense/feeder-monitor/internal/logic"
	"github.com/pawsense/feeder-monitor/internal/recorder"
	"github.com/pawsense/feeder-monitor/internal/store"
)

const (
	// minSampleGap drops readings arriving too soon after the previous
	// one. The core has no internal de-duplication; a refresh triggered
	// by a user action can land right after a scheduled poll.
	minSampleGap = 3 * time.Second

	// justFinishedWindow is how long after a meal the status still reads
	// "just_finished" rather than "idle".
	justFinishedWindow = 5 * time.Minute
)

// EatingStatus values exposed to the projection layers.
const (
	StatusIdle         = "idle"
	StatusEating       = "eating"
	StatusStabilizing  = "stabilizing"
	StatusJustFinished = "just_finished"
)

// Feeder is the adapter for a single smart feeder.
type Feeder struct {
	ID   string
	Name string

	machine *logic.Machine
	store   *store.Store
	rec     recorder.Recorder

	todayEvents []logic.EatingEvent
	lastProcess time.Time
	hasProcess  bool

	detail cloud.FeederDetail
	logs   []cloud.FeedLog
}

// NewFeeder creates the adapter. Store and recorder may be shared across
// devices; each feeder owns its machine and event list.
func NewFeeder(id, name string, cfg logic.Config, st *store.Store, rec recorder.Recorder) *Feeder {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Feeder{
		ID:      id,
		Name:    name,
		machine: logic.NewMachine(cfg),
		store:   st,
		rec:     rec,
	}
}

// LoadHistory restores today's events from the store. Call once at startup.
func (f *Feeder) LoadHistory(now time.Time) error {
	if f.store == nil {
		return nil
	}
	events, err := f.store.Load(f.ID, now)
	if err != nil {
		return fmt.Errorf("load history for %s: %w", f.ID, err)
	}
	f.todayEvents = events
	log.Printf("[INFO] %s: restored %d eating events for today", f.ID, len(events))
	return nil
}

// ProcessDetail ingests one poll's device detail. It feeds the bowl weight
// to the detection core and returns the completed eating event, if any.
// Samples closer than 3s to the previous one are dropped.
func (f *Feeder) ProcessDetail(detail cloud.FeederDetail, now time.Time) *logic.EatingEvent {
	f.detail = detail

	if f.hasProcess && now.Sub(f.lastProcess) < minSampleGap {
		return nil
	}
	f.lastProcess = now
	f.hasProcess = true

	f.rollover(now)

	event := f.machine.ProcessWeight(detail.BowlWeight(), now)
	if event != nil {
		f.todayEvents = append(f.todayEvents, *event)
		log.Printf("[INFO] %s: eating event: %dg consumed in %ds (%dg -> %dg)",
			f.ID, event.Amount, event.Duration, event.StartWeight, event.EndWeight)
		f.persist(now)
		if err := f.rec.RecordEvent(f.ID, *event); err != nil {
			log.Printf("[ERROR] %s: archive event: %v", f.ID, err)
		}
	}
	return event
}

// SetLogs stores the most recent feed log entries for status exposure.
func (f *Feeder) SetLogs(logs []cloud.FeedLog) {
	f.logs = logs
}

// Rollover finalizes a finished day: the old day's events are summarized to
// the recorder and dropped from the in-memory list. Safe to call every tick
// and from a midnight cron.
func (f *Feeder) Rollover(now time.Time) {
	f.rollover(now)
}

func (f *Feeder) rollover(now time.Time) {
	if len(f.todayEvents) == 0 {
		return
	}
	today := dateOf(now)
	if dateOf(f.todayEvents[0].StartTime) == today {
		return
	}

	var old []logic.EatingEvent
	var kept []logic.EatingEvent
	for _, ev := range f.todayEvents {
		if dateOf(ev.StartTime) == today {
			kept = append(kept, ev)
		} else {
			old = append(old, ev)
		}
	}

	if len(old) > 0 {
		total := 0
		for _, ev := range old {
			total += ev.Amount
		}
		sum := recorder.DailySummary{
			DeviceID:    f.ID,
			Date:        dateOf(old[0].StartTime),
			TotalAmount: total,
			MealCount:   len(old),
			AvgMealSize: float64(total) / float64(len(old)),
		}
		if err := f.rec.RecordDailySummary(sum); err != nil {
			log.Printf("[ERROR] %s: record daily summary: %v", f.ID, err)
		}
		log.Printf("[INFO] %s: day closed: %d meals, %dg total", f.ID, sum.MealCount, sum.TotalAmount)
	}

	f.todayEvents = kept
	f.persist(now)
}

func (f *Feeder) persist(now time.Time) {
	if f.store == nil {
		return
	}
	if err := f.store.Save(f.ID, f.todayEvents, now); err != nil {
		log.Printf("[ERROR] %s: save events: %v", f.ID, err)
	}
}

func dateOf(t time.Time) string {
	return t.Format("2006-01-02")
}

// Detail returns the most recent cloud detail.
func (f *Feeder) Detail() cloud.FeederDetail {
	return f.detail
}

// LastLog returns the newest feed log entry formatted for display, e.g.
// "16:51 Miso ate 150s 4g". Empty until the first log fetch succeeds.
func (f *Feeder) LastLog() string {
	if len(f.logs) == 0 {
		return ""
	}
	l := f.logs[0]
	return strings.TrimSpace(strings.Join([]string{l.Time, l.Event, l.FirstSection, l.SecondSection}, " "))
}

// TodayEvents returns a copy of today's completed eating events.
func (f *Feeder) TodayEvents() []logic.EatingEvent {
	out := make([]logic.EatingEvent, len(f.todayEvents))
	copy(out, f.todayEvents)
	return out
}

// DailyIntake returns the grams eaten today, summed from detected events.
func (f *Feeder) DailyIntake(now time.Time) int {
	today := dateOf(now)
	total := 0
	for _, ev := range f.todayEvents {
		if dateOf(ev.StartTime) == today {
			total += ev.Amount
		}
	}
	return total
}

// AverageMealSize returns the mean grams per meal today, or 0 without meals.
func (f *Feeder) AverageMealSize() float64 {
	if len(f.todayEvents) == 0 {
		return 0
	}
	total := 0
	for _, ev := range f.todayEvents {
		total += ev.Amount
	}
	return float64(total) / float64(len(f.todayEvents))
}

// LastMealTime returns the end time of the most recent meal today.
func (f *Feeder) LastMealTime() (time.Time, bool) {
	if len(f.todayEvents) == 0 {
		return time.Time{}, false
	}
	return f.todayEvents[len(f.todayEvents)-1].EndTime, true
}

// LastMealAmount returns the grams consumed in the most recent meal today.
func (f *Feeder) LastMealAmount() int {
	if len(f.todayEvents) == 0 {
		return 0
	}
	return f.todayEvents[len(f.todayEvents)-1].Amount
}

// EatingStatus projects the machine state for display: eating, stabilizing,
// just_finished (within 5 minutes of the last meal), or idle.
func (f *Feeder) EatingStatus(now time.Time) string {
	switch f.machine.State() {
	case logic.StateEating:
		return StatusEating
	case logic.StateStabilizing:
		return StatusStabilizing
	}
	if last := f.machine.LastEvent(); last != nil {
		if now.Sub(last.EndTime) < justFinishedWindow {
			return StatusJustFinished
		}
	}
	return StatusIdle
}

// CurrentAmount returns the grams consumed so far in an in-progress meal.
func (f *Feeder) CurrentAmount() int {
	return f.machine.CurrentAmount()
}

// CurrentDuration returns the seconds elapsed in an in-progress meal.
func (f *Feeder) CurrentDuration(now time.Time) int {
	return f.machine.CurrentDuration(now)
}

// StableWeight returns the last stable bowl weight, falling back to the raw
// reading before a baseline exists.
func (f *Feeder) StableWeight() int {
	if w, ok := f.machine.Tracker().LastStableWeight(); ok {
		return w
	}
	return f.detail.BowlWeight()
}

// StableFor returns how long the bowl weight has held its current value.
func (f *Feeder) StableFor(now time.Time) time.Duration {
	return f.machine.Tracker().StableFor(now)
}

// SampleCount returns how many weight samples the detector currently holds.
func (f *Feeder) SampleCount() int {
	return f.machine.Tracker().SampleCount()
}

// MachineState returns the raw detection phase.
func (f *Feeder) MachineState() logic.State {
	return f.machine.State()
}

// LastEvent returns the most recently completed event, or nil.
func (f *Feeder) LastEvent() *logic.EatingEvent {
	return f.machine.LastEvent()
}
