// Package status provides a thread-safe status tracker for the feeder-monitor
// daemon. It is read by HTTP handlers and updated from the poll loop.
package status

import (
	"sort"
	"sync"
	"time"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollSeconds  int
	Broker       string
	HTTPAddr     string
	CloudBaseURL string
	StoreDir     string
	DatabasePath string
}

// DeviceSnapshot is a point-in-time view of one feeder.
type DeviceSnapshot struct {
	ID              string
	Name            string
	Status          string // idle / eating / stabilizing / just_finished
	MachineState    logic.State
	BowlWeight      int
	StableWeight    int
	DailyIntake     int
	MealCount       int
	AvgMealSize     float64
	CurrentAmount   int
	CurrentDuration int
	LastMealTime    time.Time
	LastMealAmount  int
	ReportedIntake  int
	DesiccantDays   int
	FoodRemaining   string // device's own hopper balance description
	LastLog         string
	Firmware        string
	WindowSamples   int
	Online          bool
	Error           string
	LastSeen        time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Devices       []DeviceSnapshot // sorted by ID
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	PollCount     int64
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Device returns the snapshot for one feeder by ID.
func (s Snapshot) Device(id string) (DeviceSnapshot, bool) {
	for _, d := range s.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return DeviceSnapshot{}, false
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	devices       map[string]DeviceSnapshot
	startTime     time.Time
	mqttConnected bool
	pollCount     int64
	cfg           Config
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		devices:   make(map[string]DeviceSnapshot),
		startTime: startTime,
		cfg:       cfg,
	}
}

// UpdateDevice replaces the snapshot for one feeder.
// Called from the poll loop after each fetch.
func (t *Tracker) UpdateDevice(snap DeviceSnapshot) {
	t.mu.Lock()
	t.devices[snap.ID] = snap
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.mqttConnected = connected
	t.mu.Unlock()
}

// IncrementPolls records one completed poll cycle.
func (t *Tracker) IncrementPolls() {
	t.mu.Lock()
	t.pollCount++
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	devices := make([]DeviceSnapshot, 0, len(t.devices))
	for _, d := range t.devices {
		devices = append(devices, d)
	}
	s := Snapshot{
		Devices:       devices,
		StartTime:     t.startTime,
		MQTTConnected: t.mqttConnected,
		PollCount:     t.pollCount,
		Config:        t.cfg,
	}
	t.mu.RUnlock()

	sort.Slice(s.Devices, func(i, j int) bool { return s.Devices[i].ID < s.Devices[j].ID })
	s.Now = time.Now()
	return s
}
