package mqtt

import (
	"encoding/json"
	"testing"

	"solarspy/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	dev := domain.DisplayDevice("192.168.1.20")
	sw := domain.DisplaySwitches(dev)[0]

	msg := GenericSwitchToHADiscoveryMessage(c, sw)
	assert.Equal("solarspy/switch/display/state", msg.StateTopic)
	assert.Equal("solarspy/switch/display/command", msg.CommandTopic)
	assert.Equal("solarspy/bridge/state", msg.AvTopic)
	assert.Equal([]string{dev.Id}, msg.Device.Id)
	assert.Equal("homeassistant/switch/"+dev.Id+"/display/config", HADiscoverySwitchTopic(c.HADiscoveryPrefix(), sw))
}

func TestSensorDiscoveryMessage(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	bridge := domain.BridgeSensors(domain.BridgeDevice("solarspy"))[0]
	msg := GenericSensorToHADiscoveryMessage(c, bridge)
	assert.Equal(c.BridgeStateTopic(), msg.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, msg.PayloadOn)
	assert.Empty(msg.AvTopic)

	sensors := domain.ReadingSensors(domain.DisplayDevice("192.168.1.20"))
	msg = GenericSensorToHADiscoveryMessage(c, sensors[0])
	assert.Equal("solarspy/sensor/solar_power/state", msg.StateTopic)
	assert.Equal("kW", msg.UnitOfMeasurement)

	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(string(payload), `"platform":"mqtt"`)
	assert.Contains(string(payload), `"suggested_display_precision":1`)
	assert.NotContains(string(payload), "command_topic")
}
