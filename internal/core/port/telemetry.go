package port

import (
	"context"

	"solarspy/pkg/powerwall"
)

type TelemetryClient interface {
	WaitForConnection(ctx context.Context) error
	GetStats(ctx context.Context) (*powerwall.Reading, error)
}

// ensure interface compliance
var (
	_ TelemetryClient = (*powerwall.Client)(nil)
	_ TelemetryClient = (*powerwall.TestClient)(nil)
)
