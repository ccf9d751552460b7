package domain

import "solarspy/pkg/sevenseg"

// ViewContent is what one display field shows: a formatted value in the
// seven-segment alphabet and the colour to draw it with.
type ViewContent struct {
	Value string
	Color sevenseg.RGB
}

type Presentation struct {
	Solar        ViewContent
	House        ViewContent
	Battery      ViewContent
	Grid         ViewContent
	BatteryLevel ViewContent
}

// ViewWidths holds the number of digit cells assigned to each field.
type ViewWidths struct {
	Solar        int
	House        int
	Battery      int
	Grid         int
	BatteryLevel int
}
