// Package cloud talks to the pet-feeder cloud API. It is the only source of
// bowl-weight readings; the daemon polls it once per tick per device.
package cloud

import (
	"context"
	"strconv"
)

// FeederDetail is the device detail payload, trimmed to the fields the
// daemon consumes.
type FeederDetail struct {
	Weight             string `json:"weight"`
	TotalFoodIntake    string `json:"totalFoodIntake"`
	DesiccantCountdown int    `json:"desiccantCountdown"`
	TotalBalanceDesc   string `json:"totalBalanceDesc"`
	MaxFoodOutNumber   int    `json:"maxFoodOutNumber"`
	Online             bool   `json:"online"`
	ErrorMessage       string `json:"currentErrorMessage"`
	ErrorType          string `json:"currentErrorType"`
	FirmwareVersion    string `json:"firmwareVersion"`
}

// BowlWeight returns the bowl weight in grams. The API reports weight as a
// string and occasionally sends garbage; anything non-numeric reads as 0 so
// the detection core never sees malformed input.
func (d FeederDetail) BowlWeight() int {
	if d.Weight == "" {
		return 0
	}
	w, err := strconv.Atoi(d.Weight)
	if err != nil || w < 0 {
		return 0
	}
	return w
}

// ReportedIntake returns the device's own daily intake counter in grams.
func (d FeederDetail) ReportedIntake() int {
	if d.TotalFoodIntake == "" {
		return 0
	}
	n, err := strconv.Atoi(d.TotalFoodIntake)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Error returns the active device error message, or "" when healthy.
func (d FeederDetail) Error() string {
	if d.ErrorType != "" && d.ErrorType != "NONE" && d.ErrorMessage != "" {
		return d.ErrorMessage
	}
	return ""
}

// DeviceInfo is one entry from the account device list.
type DeviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"deviceName"`
	Type string `json:"deviceType"`
	MAC  string `json:"mac"`
}

// FeedLog is one entry from the feeder's recent activity log.
type FeedLog struct {
	Time          string `json:"time"`
	Event         string `json:"event"`
	FirstSection  string `json:"firstSection"`
	SecondSection string `json:"secondSection"`
}

// Source provides feeder data. Implemented by the HTTP client and by the
// fake used in tests.
type Source interface {
	// FetchDevices lists the devices on the account.
	FetchDevices(ctx context.Context) ([]DeviceInfo, error)

	// FetchFeederDetail returns the current detail for one feeder.
	FetchFeederDetail(ctx context.Context, deviceID string) (FeederDetail, error)

	// FetchFeedLogs returns the feeder's five most recent log entries.
	FetchFeedLogs(ctx context.Context, deviceID string) ([]FeedLog, error)

	// SwitchMode changes the feeder run mode ("00" smart, "01" timing).
	SwitchMode(ctx context.Context, deviceID, mode string, foodOutCount int) error

	// SetFoodOutCount sets the portions dispensed per feeding.
	SetFoodOutCount(ctx context.Context, deviceID string, count int) error
}
