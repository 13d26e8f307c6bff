package status

import (
	"encoding/json"
	"time"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	PollCount     int64        `json:"poll_count"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Devices       []DeviceJSON `json:"devices"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// DeviceJSON is the JSON representation of one feeder.
type DeviceJSON struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	MachineState    string  `json:"machine_state"`
	BowlWeight      int     `json:"bowl_weight"`
	StableWeight    int     `json:"stable_weight"`
	DailyIntake     int     `json:"daily_intake"`
	MealCount       int     `json:"meal_count"`
	AvgMealSize     float64 `json:"avg_meal_size"`
	CurrentAmount   int     `json:"current_amount"`
	CurrentDuration int     `json:"current_duration"`
	LastMealTime    string  `json:"last_meal_time,omitempty"`
	LastMealAmount  int     `json:"last_meal_amount"`
	ReportedIntake  int     `json:"reported_intake"`
	DesiccantDays   int     `json:"desiccant_days"`
	FoodRemaining   string  `json:"food_remaining,omitempty"`
	LastLog         string  `json:"last_log,omitempty"`
	Firmware        string  `json:"firmware,omitempty"`
	WindowSamples   int     `json:"window_samples"`
	Online          bool    `json:"online"`
	Error           string  `json:"error,omitempty"`
	LastSeen        string  `json:"last_seen,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollSeconds  int    `json:"poll_seconds"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	CloudBaseURL string `json:"cloud_base_url"`
	StoreDir     string `json:"store_dir,omitempty"`
	DatabasePath string `json:"database_path,omitempty"`
}

func buildDevice(d DeviceSnapshot) DeviceJSON {
	state := string(d.MachineState)
	if state == "" {
		state = "UNKNOWN"
	}
	status := d.Status
	if status == "" {
		status = "unknown"
	}

	out := DeviceJSON{
		ID:              d.ID,
		Name:            d.Name,
		Status:          status,
		MachineState:    state,
		BowlWeight:      d.BowlWeight,
		StableWeight:    d.StableWeight,
		DailyIntake:     d.DailyIntake,
		MealCount:       d.MealCount,
		AvgMealSize:     d.AvgMealSize,
		CurrentAmount:   d.CurrentAmount,
		CurrentDuration: d.CurrentDuration,
		LastMealAmount:  d.LastMealAmount,
		ReportedIntake:  d.ReportedIntake,
		DesiccantDays:   d.DesiccantDays,
		FoodRemaining:   d.FoodRemaining,
		LastLog:         d.LastLog,
		Firmware:        d.Firmware,
		WindowSamples:   d.WindowSamples,
		Online:          d.Online,
		Error:           d.Error,
	}
	if !d.LastMealTime.IsZero() {
		out.LastMealTime = d.LastMealTime.UTC().Format(time.RFC3339)
	}
	if !d.LastSeen.IsZero() {
		out.LastSeen = d.LastSeen.UTC().Format(time.RFC3339)
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	devices := make([]DeviceJSON, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		devices = append(devices, buildDevice(d))
	}

	return StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		PollCount:     snap.PollCount,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Devices:       devices,
		Config: ConfigJSON{
			PollSeconds:  snap.Config.PollSeconds,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			CloudBaseURL: snap.Config.CloudBaseURL,
			StoreDir:     snap.Config.StoreDir,
			DatabasePath: snap.Config.DatabasePath,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatDeviceJSON returns the JSON for a single feeder endpoint.
func FormatDeviceJSON(d DeviceSnapshot) []byte {
	data, _ := json.MarshalIndent(buildDevice(d), "", "  ")
	return data
}

// HistoryJSON is the envelope for the per-device event history endpoint.
type HistoryJSON struct {
	Device string      `json:"device"`
	Since  string      `json:"since"`
	Events []EventJSON `json:"events"`
}

// EventJSON is one archived eating event.
type EventJSON struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	StartWeight int    `json:"start_weight"`
	EndWeight   int    `json:"end_weight"`
	Amount      int    `json:"amount"`
	Duration    int    `json:"duration"`
	MaxWeight   int    `json:"max_weight"`
}

// FormatHistoryJSON returns the JSON for the event history endpoint. The
// events slice may be nil; the output always carries an array.
func FormatHistoryJSON(deviceID string, since time.Time, events []logic.EatingEvent) []byte {
	out := HistoryJSON{
		Device: deviceID,
		Since:  since.UTC().Format(time.RFC3339),
		Events: make([]EventJSON, 0, len(events)),
	}
	for _, ev := range events {
		out.Events = append(out.Events, EventJSON{
			Start:       ev.StartTime.UTC().Format(time.RFC3339),
			End:         ev.EndTime.UTC().Format(time.RFC3339),
			StartWeight: ev.StartWeight,
			EndWeight:   ev.EndWeight,
			Amount:      ev.Amount,
			Duration:    ev.Duration,
			MaxWeight:   ev.MaxWeight,
		})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return data
}
