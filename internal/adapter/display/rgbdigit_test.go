package display

import (
	"context"
	"errors"
	"testing"
	"time"

	"solarspy/internal/core/service"
	"solarspy/pkg/powerwall"
	"solarspy/pkg/sevenseg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLayout = Layout{
	Solar:        []int{0, 1},
	House:        []int{2, 3},
	Battery:      []int{4, 5},
	Grid:         []int{6, 7},
	BatteryLevel: []int{8, 9},
}

var testReading = powerwall.Reading{
	SolarPowerWatts:     5000,
	HousePowerWatts:     1200,
	BatteryPowerWatts:   -800,
	GridPowerWatts:      -4000,
	BatteryLevelPercent: 62,
}

func newTestRGBDigitDisplay(t *testing.T, opts ...RGBDigitOption) (*RGBDigitDisplay, *sevenseg.Buffer, *sevenseg.MemorySink) {
	sink := &sevenseg.MemorySink{}
	buf, err := sevenseg.NewBuffer(sink, 10)
	require.NoError(t, err)
	d, err := NewRGBDigitDisplay(buf, testLayout, service.NewDefaultReadingPresenter(1), zap.NewNop(), opts...)
	require.NoError(t, err)
	return d, buf, sink
}

func cellMask(c sevenseg.Cell) sevenseg.Mask {
	var m sevenseg.Mask
	for i := 0; i < sevenseg.SegmentsPerCell; i++ {
		if c.Segment(i) != (sevenseg.RGB{}) {
			m |= 1 << i
		}
	}
	return m
}

func TestNewRGBDigitDisplayRejectsBadLayout(t *testing.T) {

	buf, err := sevenseg.NewBuffer(&sevenseg.MemorySink{}, 4)
	require.NoError(t, err)

	_, err = NewRGBDigitDisplay(buf, testLayout, service.NewDefaultReadingPresenter(1), zap.NewNop())
	assert.Error(t, err)
}

func TestShowStatus(t *testing.T) {

	assert := assert.New(t)
	d, buf, sink := newTestRGBDigitDisplay(t)

	require.NoError(t, d.ShowStatus(&testReading))
	assert.Equal(1, sink.Writes())

	assert.Equal(sevenseg.Encode(sevenseg.Digit(5), true), cellMask(buf.Cell(0)))
	assert.Equal(sevenseg.Encode(sevenseg.Digit(0), false), cellMask(buf.Cell(1)))
	assert.Equal(service.COLOR_SOLAR, buf.Cell(0).Segment(0))

	assert.Equal(sevenseg.Encode(sevenseg.Digit(1), true), cellMask(buf.Cell(2)))
	assert.Equal(sevenseg.Encode(sevenseg.Digit(2), false), cellMask(buf.Cell(3)))
	assert.Equal(service.COLOR_HOUSE, buf.Cell(2).Segment(0))
	assert.Equal(service.COLOR_HOUSE, buf.Cell(3).Segment(0))

	assert.Equal(sevenseg.Encode(sevenseg.Digit(0), true), cellMask(buf.Cell(4)))
	assert.Equal(sevenseg.Encode(sevenseg.Digit(8), false), cellMask(buf.Cell(5)))
	assert.Equal(service.COLOR_BATTERY_DISCHARGE, buf.Cell(5).Segment(0))

	assert.Equal(sevenseg.Encode(sevenseg.Digit(4), true), cellMask(buf.Cell(6)))
	assert.Equal(service.COLOR_GRID_EXPORT, buf.Cell(6).Segment(0))

	assert.Equal(sevenseg.Encode(sevenseg.Digit(6), false), cellMask(buf.Cell(8)))
	assert.Equal(sevenseg.Encode(sevenseg.Digit(2), false), cellMask(buf.Cell(9)))
}

func TestShowStatusValueTooWide(t *testing.T) {

	d, _, sink := newTestRGBDigitDisplay(t)

	r := testReading
	r.HousePowerWatts = 123456
	err := d.ShowStatus(&r)
	assert.ErrorIs(t, err, sevenseg.ErrInsufficientDigits)
	assert.Equal(t, 0, sink.Writes(), "nothing is flushed")
}

func TestShowStatusHardwareError(t *testing.T) {

	d, _, sink := newTestRGBDigitDisplay(t)
	sink.SetWriteErr(errors.New("spi gone"))

	err := d.ShowStatus(&testReading)
	assert.ErrorIs(t, err, sevenseg.ErrHardwareIO)
}

func TestShowError(t *testing.T) {

	assert := assert.New(t)
	d, buf, sink := newTestRGBDigitDisplay(t)

	require.NoError(t, d.ShowError(errors.New("boom")))
	assert.Equal(1, sink.Writes())
	for i := 0; i < buf.Len(); i++ {
		assert.Equal(sevenseg.Encode(sevenseg.LetterE, false), cellMask(buf.Cell(i)), "cell %d", i)
		assert.Equal(service.COLOR_ALERT, buf.Cell(i).Segment(0))
	}
}

func TestClear(t *testing.T) {

	d, _, sink := newTestRGBDigitDisplay(t)

	require.NoError(t, d.ShowStatus(&testReading))
	require.NoError(t, d.Clear())
	for _, b := range sink.Frame() {
		assert.Zero(t, b)
	}
}

func TestStartupBlinksUntilCancelled(t *testing.T) {

	d, _, sink := newTestRGBDigitDisplay(t, WithBlinkInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, d.Startup(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "animation runs until cancelled")
	assert.Greater(t, sink.Writes(), 4, "several on and off frames")
	for _, b := range sink.Frame() {
		assert.Zero(t, b)
	}
}

func TestStartupStopsOnHardwareError(t *testing.T) {

	d, _, sink := newTestRGBDigitDisplay(t, WithBlinkInterval(time.Millisecond))
	sink.SetWriteErr(errors.New("spi gone"))

	err := d.Startup(context.Background())
	assert.ErrorIs(t, err, sevenseg.ErrHardwareIO)
}

func TestStartupCancelled(t *testing.T) {

	d, _, sink := newTestRGBDigitDisplay(t, WithBlinkInterval(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, d.Startup(ctx))
	assert.Less(t, time.Since(start), time.Second)
	for _, b := range sink.Frame() {
		assert.Zero(t, b)
	}
}

func TestShutdownKeepsLastFrame(t *testing.T) {

	d, _, sink := newTestRGBDigitDisplay(t)

	require.NoError(t, d.ShowError(errors.New("boom")))
	writes := sink.Writes()
	require.NoError(t, d.Shutdown())
	assert.Equal(t, writes, sink.Writes())
	assert.NotZero(t, sink.Frame()[0]+sink.Frame()[1]+sink.Frame()[2])
}
