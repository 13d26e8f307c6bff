package cloud

import "context"

// FakeSource serves scripted feeder details for tests. The detail queue is
// consumed one entry per FetchFeederDetail call; the last entry repeats once
// the queue is exhausted.
type FakeSource struct {
	Devices []DeviceInfo
	Details map[string][]FeederDetail
	Logs    map[string][]FeedLog

	// FetchError, if set, is returned by every fetch.
	FetchError error

	// ModeCalls and CountCalls record control-plane requests.
	ModeCalls  []string
	CountCalls []int

	cursor map[string]int
}

// NewFakeSource creates an empty fake.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		Details: map[string][]FeederDetail{},
		Logs:    map[string][]FeedLog{},
		cursor:  map[string]int{},
	}
}

// QueueDetail appends a detail response for the given device.
func (f *FakeSource) QueueDetail(deviceID string, d FeederDetail) {
	f.Details[deviceID] = append(f.Details[deviceID], d)
}

func (f *FakeSource) FetchDevices(ctx context.Context) ([]DeviceInfo, error) {
	if f.FetchError != nil {
		return nil, f.FetchError
	}
	return f.Devices, nil
}

func (f *FakeSource) FetchFeederDetail(ctx context.Context, deviceID string) (FeederDetail, error) {
	if f.FetchError != nil {
		return FeederDetail{}, f.FetchError
	}
	queue := f.Details[deviceID]
	if len(queue) == 0 {
		return FeederDetail{}, nil
	}
	i := f.cursor[deviceID]
	if i >= len(queue) {
		i = len(queue) - 1
	}
	f.cursor[deviceID] = i + 1
	return queue[i], nil
}

func (f *FakeSource) FetchFeedLogs(ctx context.Context, deviceID string) ([]FeedLog, error) {
	if f.FetchError != nil {
		return nil, f.FetchError
	}
	return f.Logs[deviceID], nil
}

func (f *FakeSource) SwitchMode(ctx context.Context, deviceID, mode string, foodOutCount int) error {
	f.ModeCalls = append(f.ModeCalls, mode)
	return nil
}

func (f *FakeSource) SetFoodOutCount(ctx context.Context, deviceID string, count int) error {
	f.CountCalls = append(f.CountCalls, count)
	return nil
}
