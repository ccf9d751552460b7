package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"solarspy/internal/core/domain"
	"solarspy/internal/core/port"
	"solarspy/pkg/powerwall"
	"solarspy/pkg/sevenseg"

	"github.com/lucasb-eyer/go-colorful"
)

// DeadZoneWatts keeps battery and grid colours from flickering around zero.
const DeadZoneWatts = 100

var (
	COLOR_SOLAR             = sevenseg.RGB{R: 100, G: 100, B: 0}
	COLOR_HOUSE             = sevenseg.RGB{R: 30, G: 10, B: 80}
	COLOR_BATTERY_CHARGE    = sevenseg.RGB{R: 30, G: 70, B: 20}
	COLOR_BATTERY_DISCHARGE = sevenseg.RGB{R: 100, G: 40, B: 10}
	COLOR_GRID_IMPORT       = sevenseg.RGB{R: 50, G: 0, B: 0}
	COLOR_GRID_EXPORT       = sevenseg.RGB{R: 30, G: 70, B: 20}
	COLOR_GRID_IDLE         = sevenseg.RGB{R: 30, G: 30, B: 30}
	COLOR_ALERT             = sevenseg.RGB{R: 100, G: 0, B: 0}
	COLOR_STARTUP           = sevenseg.RGB{R: 40, G: 40, B: 40}

	COLOR_BATTERY_LEVEL_EMPTY = sevenseg.RGB{R: 100, G: 0, B: 0}
	COLOR_BATTERY_LEVEL_FULL  = sevenseg.RGB{R: 30, G: 70, B: 20}
)

type DefaultReadingPresenter struct {
	// Brightness scales every colour, 1 keeps the palette as is.
	Brightness float64
}

func NewDefaultReadingPresenter(brightness float64) *DefaultReadingPresenter {
	if brightness <= 0 || brightness > 1 {
		brightness = 1
	}
	return &DefaultReadingPresenter{Brightness: brightness}
}

func (p *DefaultReadingPresenter) Present(r *powerwall.Reading, widths domain.ViewWidths) domain.Presentation {
	return domain.Presentation{
		Solar: domain.ViewContent{
			Value: FormatKilowatts(max(r.SolarPowerWatts, 0), widths.Solar),
			Color: p.scale(COLOR_SOLAR),
		},
		House: domain.ViewContent{
			Value: FormatKilowatts(r.HousePowerWatts, widths.House),
			Color: p.scale(COLOR_HOUSE),
		},
		Battery: domain.ViewContent{
			Value: FormatKilowatts(r.BatteryPowerWatts, widths.Battery),
			Color: p.scale(BatteryPowerColor(r.BatteryPowerWatts)),
		},
		Grid: domain.ViewContent{
			Value: FormatKilowatts(r.GridPowerWatts, widths.Grid),
			Color: p.scale(GridPowerColor(r.GridPowerWatts)),
		},
		BatteryLevel: domain.ViewContent{
			Value: FormatBatteryLevel(r.BatteryLevelPercent),
			Color: p.scale(BatteryLevelColor(r.BatteryLevelPercent)),
		},
	}
}

func (p *DefaultReadingPresenter) AlertColor() sevenseg.RGB {
	return p.scale(COLOR_ALERT)
}

func (p *DefaultReadingPresenter) StartupColor() sevenseg.RGB {
	return p.scale(COLOR_STARTUP)
}

func (p *DefaultReadingPresenter) scale(c sevenseg.RGB) sevenseg.RGB {
	if p.Brightness >= 1 {
		return c
	}
	mul := func(v uint8) uint8 {
		return uint8(math.Round(float64(v) * p.Brightness))
	}
	return sevenseg.RGB{R: mul(c.R), G: mul(c.G), B: mul(c.B)}
}

// FormatKilowatts renders |watts| in kW with one decimal. When that does not
// fit in cells digits the decimal is dropped; a value that still does not fit
// is returned as is and rejected by the view.
func FormatKilowatts(watts int32, cells int) string {
	kw := math.Abs(float64(watts)) / 1000
	value := strconv.FormatFloat(kw, 'f', 1, 64)
	if glyphCount(value) <= cells {
		return value
	}
	return strconv.FormatFloat(kw, 'f', 0, 64)
}

// FormatBatteryLevel clamps to [0, 99] and right-aligns in two digits.
func FormatBatteryLevel(percent float64) string {
	return fmt.Sprintf("%2d", clampBatteryLevel(percent))
}

func BatteryPowerColor(watts int32) sevenseg.RGB {
	if watts < -DeadZoneWatts {
		return COLOR_BATTERY_DISCHARGE
	}
	return COLOR_BATTERY_CHARGE
}

func GridPowerColor(watts int32) sevenseg.RGB {
	switch {
	case watts > DeadZoneWatts:
		return COLOR_GRID_IMPORT
	case watts < -DeadZoneWatts:
		return COLOR_GRID_EXPORT
	default:
		return COLOR_GRID_IDLE
	}
}

// BatteryLevelColor blends from the empty to the full colour in HCL space.
func BatteryLevelColor(percent float64) sevenseg.RGB {
	t := float64(clampBatteryLevel(percent)) / 99
	empty := toColorful(COLOR_BATTERY_LEVEL_EMPTY)
	full := toColorful(COLOR_BATTERY_LEVEL_FULL)
	r, g, b := empty.BlendHcl(full, t).Clamped().RGB255()
	return sevenseg.RGB{R: r, G: g, B: b}
}

func clampBatteryLevel(percent float64) int {
	if math.IsNaN(percent) {
		return 0
	}
	return int(math.Max(0, math.Min(99, percent)))
}

func toColorful(c sevenseg.RGB) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// glyphCount is the number of cells a formatted number takes: a '.' rides on
// the preceding digit.
func glyphCount(value string) int {
	return utf8.RuneCountInString(value) - strings.Count(value, ".")
}

// ensure interface compliance
var _ port.ReadingPresenter = (*DefaultReadingPresenter)(nil)
