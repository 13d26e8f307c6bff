// Package mqtt publishes feeder events and state with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

// TopicPrefix is the root of all feeder topics.
const TopicPrefix = "petcare/feeder"

// TopicSystem carries daemon lifecycle events.
const TopicSystem = TopicPrefix + "/system"

// EventTopic returns the per-device topic for completed eating events.
func EventTopic(deviceID string) string {
	return TopicPrefix + "/" + deviceID + "/event"
}

// StateTopic returns the per-device topic for the retained state document.
func StateTopic(deviceID string) string {
	return TopicPrefix + "/" + deviceID + "/state"
}

// CommandTopic returns the per-device topic the daemon subscribes to for
// control commands.
func CommandTopic(deviceID string) string {
	return TopicPrefix + "/" + deviceID + "/set"
}

// Publisher publishes feeder data to MQTT.
type Publisher interface {
	// PublishEvent sends a completed eating event.
	// Returns error if publishing fails (should not crash the process).
	PublishEvent(deviceID string, event logic.EatingEvent) error

	// PublishState sends the retained per-device state document.
	PublishState(deviceID string, state DeviceState) error

	// PublishSystem sends a daemon lifecycle event.
	PublishSystem(event SystemEvent) error

	// PublishDiscovery announces the device's entities to Home Assistant.
	PublishDiscovery(msgs []DiscoveryMessage) error

	// SubscribeCommands registers the handler for per-device command topics.
	SubscribeCommands(handler CommandHandler) error

	// Close disconnects from the broker.
	Close() error
}

// CommandHandler receives parsed commands from a device's command topic.
type CommandHandler func(deviceID string, cmd Command)

// Command is a control request received on a device's command topic.
// Zero-valued fields are left unchanged on the device.
type Command struct {
	Mode         string `json:"mode,omitempty"`
	FoodOutCount int    `json:"food_out_count,omitempty"`
}

// ParseCommand decodes a command payload. A payload that sets no field is
// rejected so malformed publishes never reach the cloud API.
func ParseCommand(payload []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(payload, &c); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if c.Mode == "" && c.FoodOutCount == 0 {
		return Command{}, fmt.Errorf("command sets no field")
	}
	if c.FoodOutCount < 0 {
		return Command{}, fmt.Errorf("negative food_out_count %d", c.FoodOutCount)
	}
	return c, nil
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a daemon lifecycle event.
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason    string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Retained  bool
}

// DeviceState is the per-device state document published every poll.
type DeviceState struct {
	Timestamp       time.Time
	Status          string // idle / eating / stabilizing / just_finished
	BowlWeight      int
	StableWeight    int
	DailyIntake     int
	MealCount       int
	AvgMealSize     float64
	CurrentAmount   int
	CurrentDuration int
	ReportedIntake  int    // device's own daily intake counter
	DesiccantDays   int    // days until the desiccant should be replaced
	LastLog         string // newest feed log line, empty before first fetch
	Online          bool
	Error           string
}

// EventPayload is the wire shape of a completed eating event.
type EventPayload struct {
	Feeder FeederEvent `json:"feeder"`
}

// FeederEvent contains the eating event details.
type FeederEvent struct {
	Device      string `json:"device"`
	Start       string `json:"start"`
	End         string `json:"end"`
	StartWeight int    `json:"start_weight"`
	EndWeight   int    `json:"end_weight"`
	Amount      int    `json:"amount"`
	Duration    int    `json:"duration"`
	MaxWeight   int    `json:"max_weight"`
}

// FormatEventPayload creates the JSON payload for an eating event.
func FormatEventPayload(deviceID string, event logic.EatingEvent) ([]byte, error) {
	payload := EventPayload{
		Feeder: FeederEvent{
			Device:      deviceID,
			Start:       event.StartTime.UTC().Format(time.RFC3339),
			End:         event.EndTime.UTC().Format(time.RFC3339),
			StartWeight: event.StartWeight,
			EndWeight:   event.EndWeight,
			Amount:      event.Amount,
			Duration:    event.Duration,
			MaxWeight:   event.MaxWeight,
		},
	}
	return json.Marshal(payload)
}

// StatePayload is the wire shape of the retained state document.
type StatePayload struct {
	Timestamp       string  `json:"timestamp"`
	Status          string  `json:"status"`
	BowlWeight      int     `json:"bowl_weight"`
	StableWeight    int     `json:"stable_weight"`
	DailyIntake     int     `json:"daily_intake"`
	MealCount       int     `json:"meal_count"`
	AvgMealSize     float64 `json:"avg_meal_size"`
	CurrentAmount   int     `json:"current_amount"`
	CurrentDuration int     `json:"current_duration"`
	ReportedIntake  int     `json:"reported_intake"`
	DesiccantDays   int     `json:"desiccant_days"`
	LastLog         string  `json:"last_log,omitempty"`
	Online          bool    `json:"online"`
	Error           string  `json:"error,omitempty"`
}

// FormatStatePayload creates the JSON payload for a device state document.
func FormatStatePayload(state DeviceState) ([]byte, error) {
	payload := StatePayload{
		Timestamp:       state.Timestamp.UTC().Format(time.RFC3339),
		Status:          state.Status,
		BowlWeight:      state.BowlWeight,
		StableWeight:    state.StableWeight,
		DailyIntake:     state.DailyIntake,
		MealCount:       state.MealCount,
		AvgMealSize:     state.AvgMealSize,
		CurrentAmount:   state.CurrentAmount,
		CurrentDuration: state.CurrentDuration,
		ReportedIntake:  state.ReportedIntake,
		DesiccantDays:   state.DesiccantDays,
		LastLog:         state.LastLog,
		Online:          state.Online,
		Error:           state.Error,
	}
	return json.Marshal(payload)
}

// SystemPayload is the wire shape of a lifecycle event.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
