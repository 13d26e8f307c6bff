package mqtt

import "encoding/json"

// discoveryPrefix is Home Assistant's default MQTT discovery prefix.
const discoveryPrefix = "homeassistant"

// DiscoveryMessage is one retained config announcement.
type DiscoveryMessage struct {
	Topic   string
	Payload []byte
}

// discoveryConfig is the Home Assistant sensor config document.
// https://www.home-assistant.io/integrations/sensor.mqtt/
type discoveryConfig struct {
	Name          string           `json:"name"`
	UniqueID      string           `json:"uniq_id"`
	StateTopic    string           `json:"stat_t"`
	ValueTemplate string           `json:"val_tpl"`
	DeviceClass   string           `json:"dev_cla,omitempty"`
	StateClass    string           `json:"stat_cla,omitempty"`
	Unit          string           `json:"unit_of_meas,omitempty"`
	Icon          string           `json:"ic,omitempty"`
	Device        *discoveryDevice `json:"dev"`
}

type discoveryDevice struct {
	IDs          string `json:"ids"`
	Name         string `json:"name"`
	Model        string `json:"mdl"`
	Manufacturer string `json:"mf"`
}

// sensorSpec drives the discovery config for one exposed entity.
type sensorSpec struct {
	key         string
	name        string
	field       string
	deviceClass string
	stateClass  string
	unit        string
	icon        string
}

var feederSensors = []sensorSpec{
	{key: "eating_status", name: "Eating Status", field: "status", icon: "mdi:cat"},
	{key: "bowl_weight", name: "Bowl Weight", field: "bowl_weight", deviceClass: "weight", stateClass: "measurement", unit: "g", icon: "mdi:scale"},
	{key: "bowl_weight_stable", name: "Bowl Weight Stable", field: "stable_weight", deviceClass: "weight", stateClass: "measurement", unit: "g", icon: "mdi:scale-balance"},
	{key: "daily_intake", name: "Daily Intake", field: "daily_intake", stateClass: "total_increasing", unit: "g", icon: "mdi:food-apple"},
	{key: "meal_count", name: "Meals Today", field: "meal_count", stateClass: "total_increasing", icon: "mdi:counter"},
	{key: "avg_meal_size", name: "Average Meal Size", field: "avg_meal_size", stateClass: "measurement", unit: "g", icon: "mdi:food-variant"},
	{key: "reported_intake", name: "Reported Intake", field: "reported_intake", stateClass: "total_increasing", unit: "g", icon: "mdi:food-drumstick"},
	{key: "desiccant_countdown", name: "Desiccant Countdown", field: "desiccant_days", stateClass: "measurement", unit: "d", icon: "mdi:water-off"},
	{key: "last_log", name: "Last Log", field: "last_log", icon: "mdi:message"},
}

// DiscoveryMessages builds the retained Home Assistant announcements for one
// feeder. All entities read from the device's state topic via templates.
func DiscoveryMessages(deviceID, deviceName string) ([]DiscoveryMessage, error) {
	dev := &discoveryDevice{
		IDs:          "feeder_" + deviceID,
		Name:         deviceName,
		Model:        "Fresh2 Smart Feeder",
		Manufacturer: "CatLink",
	}

	var msgs []DiscoveryMessage
	for _, s := range feederSensors {
		cfg := discoveryConfig{
			Name:          s.name,
			UniqueID:      "feeder_" + deviceID + "_" + s.key,
			StateTopic:    StateTopic(deviceID),
			ValueTemplate: "{{ value_json." + s.field + " }}",
			DeviceClass:   s.deviceClass,
			StateClass:    s.stateClass,
			Unit:          s.unit,
			Icon:          s.icon,
			Device:        dev,
		}
		payload, err := json.Marshal(cfg)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, DiscoveryMessage{
			Topic:   discoveryPrefix + "/sensor/feeder_" + deviceID + "/" + s.key + "/config",
			Payload: payload,
		})
	}
	return msgs, nil
}
