package port

import (
	"context"

	"solarspy/pkg/powerwall"
)

// StatusDisplay is the capability set of an indicator. Implementations are
// driven by a single owner and need not be safe for concurrent use.
type StatusDisplay interface {
	// Startup runs the power-on animation until ctx is cancelled, then
	// returns nil. An error means the indicator itself failed.
	Startup(ctx context.Context) error
	ShowStatus(reading *powerwall.Reading) error
	ShowError(err error) error
	Clear() error
	Shutdown() error
}
