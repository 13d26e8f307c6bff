package mqtt

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/pawsense/feeder-monitor/internal/logic"
)

// bufferCapacity bounds how many messages are held while the broker is
// unreachable. Eating events are rare; state documents dominate.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker. While disconnected it
// buffers messages and replays them on reconnect.
type RealPublisher struct {
	client paho.Client

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := &RealPublisher{buffer: newRingBuffer(bufferCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			p.drain()
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	p.client = client
	return p, nil
}

// PublishEvent sends an eating event. QoS 1: events are the one thing we do
// not want to lose.
func (p *RealPublisher) PublishEvent(deviceID string, event logic.EatingEvent) error {
	payload, err := FormatEventPayload(deviceID, event)
	if err != nil {
		return fmt.Errorf("format event payload: %w", err)
	}
	return p.publish(EventTopic(deviceID), 1, false, payload)
}

// PublishState sends the retained state document. QoS 0: the next poll
// replaces it anyway.
func (p *RealPublisher) PublishState(deviceID string, state DeviceState) error {
	payload, err := FormatStatePayload(state)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	return p.publish(StateTopic(deviceID), 0, true, payload)
}

// PublishSystem sends a daemon lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// PublishDiscovery sends the retained Home Assistant config announcements.
func (p *RealPublisher) PublishDiscovery(msgs []DiscoveryMessage) error {
	for _, msg := range msgs {
		if err := p.publish(msg.Topic, 1, true, msg.Payload); err != nil {
			return fmt.Errorf("publish discovery %s: %w", msg.Topic, err)
		}
	}
	return nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.buffer.len()
		p.mu.Unlock()
		log.Printf("mqtt: disconnected, buffered message for %s (%d queued)", topic, n)
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// drain replays buffered messages after a reconnect.
func (p *RealPublisher) drain() {
	p.mu.Lock()
	msgs := p.buffer.drainAll()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: reconnected, replaying %d buffered messages", len(msgs))
	for _, msg := range msgs {
		token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout for %s", msg.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay error for %s: %v", msg.topic, err)
		}
	}
}

// SubscribeCommands subscribes to every device's command topic at QoS 1.
// Paho re-establishes the subscription after a reconnect.
func (p *RealPublisher) SubscribeCommands(handler CommandHandler) error {
	topic := TopicPrefix + "/+/set"
	token := p.client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		deviceID, ok := commandDeviceID(msg.Topic())
		if !ok {
			log.Printf("mqtt: ignoring command on unexpected topic %s", msg.Topic())
			return
		}
		cmd, err := ParseCommand(msg.Payload())
		if err != nil {
			log.Printf("mqtt: bad command for %s: %v", deviceID, err)
			return
		}
		handler(deviceID, cmd)
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// commandDeviceID extracts the device ID from a command topic.
func commandDeviceID(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/set")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
