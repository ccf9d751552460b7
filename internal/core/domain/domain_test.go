package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"solarspy/pkg/powerwall"
	"solarspy/pkg/sevenseg"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(ERROR_KIND_NONE, Classify(nil))
	assert.Equal(ERROR_KIND_CONFIG, Classify(fmt.Errorf("%w: no address", powerwall.ErrConfig)))
	assert.Equal(ERROR_KIND_CONNECTIVITY, Classify(fmt.Errorf("%w after 300 attempts", powerwall.ErrConnectivity)))
	assert.Equal(ERROR_KIND_AUTH, Classify(powerwall.ErrAuth))
	assert.Equal(ERROR_KIND_GATEWAY, Classify(fmt.Errorf("%w: GET x: %w", powerwall.ErrGateway, context.DeadlineExceeded)))
	assert.Equal(ERROR_KIND_RENDER, Classify(fmt.Errorf("view: %w", sevenseg.ErrInsufficientDigits)))
	assert.Equal(ERROR_KIND_RENDER, Classify(sevenseg.ErrUnsupportedChar))
	assert.Equal(ERROR_KIND_HARDWARE_IO, Classify(fmt.Errorf("%w: write", sevenseg.ErrHardwareIO)))
	assert.Equal(ERROR_KIND_TIMEOUT, Classify(context.DeadlineExceeded))
	assert.Equal(ERROR_KIND_UNKNOWN, Classify(errors.New("boom")))
}

func TestReadingToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	events := ReadingToUpdateEvents(&powerwall.Reading{
		SolarPowerWatts:     5000,
		HousePowerWatts:     1200,
		BatteryPowerWatts:   -800,
		GridPowerWatts:      -4000,
		BatteryLevelPercent: 62.5,
	})

	assert.Len(events, 5)
	values := map[string]float64{}
	for _, ev := range events {
		fev, ok := ev.(FloatSensorUpdateEvent)
		assert.True(ok)
		values[fev.SensorId()] = fev.Value
	}
	assert.InDelta(5.0, values[SENSOR_ID_SOLAR_POWER], 1e-9)
	assert.InDelta(1.2, values[SENSOR_ID_HOUSE_POWER], 1e-9)
	assert.InDelta(-0.8, values[SENSOR_ID_BATTERY_POWER], 1e-9)
	assert.InDelta(-4.0, values[SENSOR_ID_GRID_POWER], 1e-9)
	assert.InDelta(62.5, values[SENSOR_ID_BATTERY_LEVEL], 1e-9)
}

func TestDisplayDeviceIsStable(t *testing.T) {

	assert := assert.New(t)

	d1 := DisplayDevice("192.168.1.20")
	d2 := DisplayDevice("192.168.1.20")
	assert.Equal(d1.Id, d2.Id)
	assert.NotEqual(d1.Id, DisplayDevice("192.168.1.21").Id)

	switches := DisplaySwitches(d1)
	assert.Len(switches, 1)
	assert.Equal(SWITCH_ID_DISPLAY, switches[0].Id)
	assert.Equal("uid_"+d1.Id+"_display", switches[0].UniqueId)
}
