package display

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"solarspy/internal/core/domain"
	"solarspy/internal/core/port"
	"solarspy/pkg/powerwall"
	"solarspy/pkg/sevenseg"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// ConsoleWidths are the field widths used when printing to a terminal.
var ConsoleWidths = domain.ViewWidths{
	Solar:        3,
	House:        3,
	Battery:      3,
	Grid:         3,
	BatteryLevel: 2,
}

// ConsoleDisplay prints one coloured line per reading. Used when no digit
// hardware is attached.
type ConsoleDisplay struct {
	out       io.Writer
	renderer  *lipgloss.Renderer
	presenter port.ReadingPresenter
	logger    *zap.Logger
}

func NewConsoleDisplay(out io.Writer, presenter port.ReadingPresenter, logger *zap.Logger) *ConsoleDisplay {
	return &ConsoleDisplay{
		out:       out,
		renderer:  lipgloss.NewRenderer(out),
		presenter: presenter,
		logger:    logger,
	}
}

// Startup prints the test pattern and holds it until ctx is done.
func (d *ConsoleDisplay) Startup(ctx context.Context) error {
	_, err := fmt.Fprintln(d.out, d.paint("888 888 888 888 88", d.presenter.StartupColor()))
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (d *ConsoleDisplay) ShowStatus(reading *powerwall.Reading) error {
	p := d.presenter.Present(reading, ConsoleWidths)
	fields := []struct {
		label   string
		content domain.ViewContent
	}{
		{"solar", p.Solar},
		{"house", p.House},
		{"battery", p.Battery},
		{"grid", p.Grid},
		{"level", p.BatteryLevel},
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.label+" "+d.paint(f.content.Value, f.content.Color))
	}
	_, err := fmt.Fprintf(d.out, "%s %s\n", reading.Timestamp.Format(time.TimeOnly), strings.Join(parts, "  "))
	return err
}

func (d *ConsoleDisplay) ShowError(err error) error {
	_, werr := fmt.Fprintf(d.out, "%s %v\n", d.paint("E", d.presenter.AlertColor()), err)
	return werr
}

func (d *ConsoleDisplay) Clear() error {
	return nil
}

func (d *ConsoleDisplay) Shutdown() error {
	d.logger.Debug("console display closed")
	return nil
}

func (d *ConsoleDisplay) paint(text string, color sevenseg.RGB) string {
	return d.renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(hexColor(color))).Render(text)
}

// hexColor stretches the dim LED palette to the full terminal range.
func hexColor(c sevenseg.RGB) string {
	top := max(c.R, c.G, c.B)
	if top == 0 {
		return "#000000"
	}
	scale := func(v uint8) uint8 {
		return uint8(uint32(v) * 255 / uint32(top))
	}
	return fmt.Sprintf("#%02x%02x%02x", scale(c.R), scale(c.G), scale(c.B))
}

// ensure interface compliance
var _ port.StatusDisplay = (*ConsoleDisplay)(nil)
