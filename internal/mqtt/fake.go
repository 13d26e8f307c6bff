package mqtt

import (
	"sync"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

// FakePublisher is an in-memory Publisher for tests. It records everything
// published and can simulate failures and disconnection.
type FakePublisher struct {
	mu sync.Mutex

	Events       []PublishedEvent
	States       []PublishedState
	SystemEvents []SystemEvent
	Discovery    []DiscoveryMessage

	PublishEventError  error
	PublishStateError  error
	PublishSystemError error
	Connected          bool

	Closed bool

	handler CommandHandler
}

// PublishedEvent records a single PublishEvent call.
type PublishedEvent struct {
	DeviceID string
	Event    logic.EatingEvent
	Payload  []byte
}

// PublishedState records a single PublishState call.
type PublishedState struct {
	DeviceID string
	State    DeviceState
	Payload  []byte
}

// NewFakePublisher creates a connected fake.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

func (f *FakePublisher) PublishEvent(deviceID string, event logic.EatingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishEventError != nil {
		return f.PublishEventError
	}
	payload, err := FormatEventPayload(deviceID, event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, PublishedEvent{DeviceID: deviceID, Event: event, Payload: payload})
	return nil
}

func (f *FakePublisher) PublishState(deviceID string, state DeviceState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishStateError != nil {
		return f.PublishStateError
	}
	payload, err := FormatStatePayload(state)
	if err != nil {
		return err
	}
	f.States = append(f.States, PublishedState{DeviceID: deviceID, State: state, Payload: payload})
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

func (f *FakePublisher) PublishDiscovery(msgs []DiscoveryMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Discovery = append(f.Discovery, msgs...)
	return nil
}

func (f *FakePublisher) SubscribeCommands(handler CommandHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return nil
}

// InjectCommand simulates a command arriving from the broker.
func (f *FakePublisher) InjectCommand(deviceID string, cmd Command) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(deviceID, cmd)
	}
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset clears everything recorded so far.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.States = nil
	f.SystemEvents = nil
	f.Discovery = nil
}

// EventCount returns the number of eating events published.
func (f *FakePublisher) EventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Events)
}

// LastState returns the most recent state published for a device.
func (f *FakePublisher) LastState(deviceID string) (DeviceState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.States) - 1; i >= 0; i-- {
		if f.States[i].DeviceID == deviceID {
			return f.States[i].State, true
		}
	}
	return DeviceState{}, false
}
