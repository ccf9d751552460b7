package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_SOLAR_POWER          = "solar_power"
	SENSOR_ID_HOUSE_POWER          = "house_power"
	SENSOR_ID_BATTERY_POWER        = "battery_power"
	SENSOR_ID_GRID_POWER           = "grid_power"
	SENSOR_ID_BATTERY_LEVEL        = "battery_level"
	SENSOR_ID_SESSION_ERROR        = "session_error"
	SWITCH_ID_DISPLAY              = "display"
	STATE_CLASS_MEASUREMENT        = "measurement"
	DEVICE_CLASS_BATTERY           = "battery"
	DEVICE_CLASS_POWER             = "power"
	DEVICE_CLASS_CONNECTIVITY      = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC        = "diagnostic"
	SENSOR_TYPE_SENSOR             = "sensor"
	SENSOR_TYPE_BINARY             = "binary_sensor"
	UNIT_OF_MEASUREMENT_KILOWATT   = "kW"
	UNIT_OF_MEASUREMENT_PERCENTAGE = "%"
	DISPLAY_DEVICE_MANUFACTURER    = "solarspy"
	DISPLAY_DEVICE_MODEL           = "Powerwall display"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("solarspy_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: DISPLAY_DEVICE_MANUFACTURER,
		Model:        "solarspy",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("solarspy %s", md5HashShort(baseTopic)),
	}
}

// DisplayDevice groups the power readings and the display switch. The gateway
// address identifies it, so two displays on the same gateway share sensors.
func DisplayDevice(gatewayAddress string) Device {
	return Device{
		Id:           fmt.Sprintf("solarspy_display_%s", md5HashShort(gatewayAddress)),
		Manufacturer: DISPLAY_DEVICE_MANUFACTURER,
		Model:        DISPLAY_DEVICE_MODEL,
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Powerwall %s", md5HashShort(gatewayAddress)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	}}
}

func ReadingSensors(displayDevice Device) []GenericSensor {

	var sensors []GenericSensor

	powerSensor := func(id, name, icon string) GenericSensor {
		return GenericSensor{
			Device:            displayDevice,
			Id:                id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              name,
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_POWER,
			UnitOfMeasurement: UNIT_OF_MEASUREMENT_KILOWATT,
			UniqueId:          uniqueId(displayDevice.Id, id),
			Icon:              icon,
			DisplayPrecision:  optionalInt(1),
		}
	}

	sensors = append(sensors, powerSensor(SENSOR_ID_SOLAR_POWER, "Solar power", "mdi:solar-power"))
	sensors = append(sensors, powerSensor(SENSOR_ID_HOUSE_POWER, "House power", "mdi:home-lightning-bolt"))
	sensors = append(sensors, powerSensor(SENSOR_ID_BATTERY_POWER, "Battery power", "mdi:home-battery"))
	sensors = append(sensors, powerSensor(SENSOR_ID_GRID_POWER, "Grid power", "mdi:transmission-tower"))

	// Battery level
	sensors = append(sensors, GenericSensor{
		Device:            displayDevice,
		Id:                SENSOR_ID_BATTERY_LEVEL,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery level",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: UNIT_OF_MEASUREMENT_PERCENTAGE,
		UniqueId:          uniqueId(displayDevice.Id, SENSOR_ID_BATTERY_LEVEL),
		DisplayPrecision:  optionalInt(0),
	})

	// Session error
	sensors = append(sensors, GenericSensor{
		Device:           displayDevice,
		Id:               SENSOR_ID_SESSION_ERROR,
		SensorType:       SENSOR_TYPE_SENSOR,
		Name:             "Session error",
		EntityCategory:   ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault: optionalBool(false),
		UniqueId:         uniqueId(displayDevice.Id, SENSOR_ID_SESSION_ERROR),
	})

	return sensors
}

func DisplaySwitches(displayDevice Device) []GenericSwitch {
	return []GenericSwitch{{
		Device:   displayDevice,
		Id:       SWITCH_ID_DISPLAY,
		Name:     "Display",
		UniqueId: uniqueId(displayDevice.Id, SWITCH_ID_DISPLAY),
		Icon:     "mdi:numeric",
	}}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}

func optionalInt(value int) *int {
	return &value
}
