package display

import (
	"context"
	"fmt"
	"time"

	"solarspy/internal/core/domain"
	"solarspy/internal/core/port"
	"solarspy/pkg/powerwall"
	"solarspy/pkg/sevenseg"

	"go.uber.org/zap"
)

const DefaultBlinkInterval = 300 * time.Millisecond

// Layout assigns digit cells to each field, left to right.
type Layout struct {
	Solar        []int
	House        []int
	Battery      []int
	Grid         []int
	BatteryLevel []int
}

// RGBDigitDisplay renders readings on a string of RGB seven-segment digits.
type RGBDigitDisplay struct {
	buffer       *sevenseg.Buffer
	solar        *sevenseg.NumericView
	house        *sevenseg.NumericView
	battery      *sevenseg.NumericView
	grid         *sevenseg.NumericView
	batteryLevel *sevenseg.NumericView

	presenter     port.ReadingPresenter
	blinkInterval time.Duration
	logger        *zap.Logger
}

type RGBDigitOption func(*RGBDigitDisplay)

func WithBlinkInterval(interval time.Duration) RGBDigitOption {
	return func(d *RGBDigitDisplay) {
		if interval > 0 {
			d.blinkInterval = interval
		}
	}
}

func NewRGBDigitDisplay(buffer *sevenseg.Buffer, layout Layout, presenter port.ReadingPresenter, logger *zap.Logger, opts ...RGBDigitOption) (*RGBDigitDisplay, error) {
	d := &RGBDigitDisplay{
		buffer:        buffer,
		presenter:     presenter,
		blinkInterval: DefaultBlinkInterval,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(d)
	}

	views := []struct {
		name    string
		view    **sevenseg.NumericView
		indices []int
	}{
		{"solar", &d.solar, layout.Solar},
		{"house", &d.house, layout.House},
		{"battery", &d.battery, layout.Battery},
		{"grid", &d.grid, layout.Grid},
		{"battery level", &d.batteryLevel, layout.BatteryLevel},
	}
	for _, v := range views {
		view, err := buffer.DeriveView(v.indices...)
		if err != nil {
			return nil, fmt.Errorf("%s view: %w", v.name, err)
		}
		*v.view = view
	}
	return d, nil
}

// Startup blinks every segment until ctx is done, then turns the cells off.
// Only a flush failure ends it early.
func (d *RGBDigitDisplay) Startup(ctx context.Context) error {
	d.logger.Info("starting display", zap.Int("cells", d.buffer.Len()))
	color := d.presenter.StartupColor()
	blinks := 0
	for {
		d.buffer.SetAll(sevenseg.Digit(8), color, true)
		if err := d.buffer.Flush(); err != nil {
			return err
		}
		if !sleep(ctx, d.blinkInterval) {
			break
		}
		d.buffer.SetAll(sevenseg.Blank, color, false)
		if err := d.buffer.Flush(); err != nil {
			return err
		}
		if !sleep(ctx, d.blinkInterval) {
			break
		}
		blinks++
	}
	d.logger.Debug("startup animation done", zap.Int("blinks", blinks))
	d.buffer.SetAll(sevenseg.Blank, color, false)
	return d.buffer.Flush()
}

func (d *RGBDigitDisplay) ShowStatus(reading *powerwall.Reading) error {
	p := d.presenter.Present(reading, d.widths())
	for _, vc := range []struct {
		view    *sevenseg.NumericView
		content domain.ViewContent
	}{
		{d.solar, p.Solar},
		{d.house, p.House},
		{d.battery, p.Battery},
		{d.grid, p.Grid},
		{d.batteryLevel, p.BatteryLevel},
	} {
		vc.view.SetValue(vc.content.Value)
		vc.view.SetColor(vc.content.Color)
		if err := vc.view.Write(); err != nil {
			return err
		}
	}
	return d.buffer.Flush()
}

// ShowError lights an E on every cell.
func (d *RGBDigitDisplay) ShowError(err error) error {
	d.logger.Warn("showing error on display", zap.Error(err))
	d.buffer.SetAll(sevenseg.LetterE, d.presenter.AlertColor(), false)
	return d.buffer.Flush()
}

func (d *RGBDigitDisplay) Clear() error {
	d.buffer.SetAll(sevenseg.Blank, sevenseg.RGB{}, false)
	for _, v := range d.views() {
		v.Clear()
		if err := v.Write(); err != nil {
			return err
		}
	}
	return d.buffer.Flush()
}

// Shutdown releases the sink. The last frame stays on the LEDs.
func (d *RGBDigitDisplay) Shutdown() error {
	d.logger.Info("shutting down display")
	return d.buffer.Close()
}

func (d *RGBDigitDisplay) views() []*sevenseg.NumericView {
	return []*sevenseg.NumericView{d.solar, d.house, d.battery, d.grid, d.batteryLevel}
}

func (d *RGBDigitDisplay) widths() domain.ViewWidths {
	return domain.ViewWidths{
		Solar:        d.solar.Len(),
		House:        d.house.Len(),
		Battery:      d.battery.Len(),
		Grid:         d.grid.Len(),
		BatteryLevel: d.batteryLevel.Len(),
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ensure interface compliance
var _ port.StatusDisplay = (*RGBDigitDisplay)(nil)
