package port

import (
	"solarspy/internal/core/domain"
	"solarspy/pkg/powerwall"
	"solarspy/pkg/sevenseg"
)

type ReadingPresenter interface {
	Present(reading *powerwall.Reading, widths domain.ViewWidths) domain.Presentation
	AlertColor() sevenseg.RGB
	StartupColor() sevenseg.RGB
}
