package sevenseg

import (
	"errors"
	"fmt"
)

var ErrInsufficientDigits = errors.New("sevenseg: insufficient digits")

type glyph struct {
	char    Char
	decimal bool
}

// NumericView renders a formatted value over a run of cells of a Buffer.
type NumericView struct {
	buffer  *Buffer
	indices []int
	value   *string
	color   RGB
}

func (v *NumericView) SetValue(value string) {
	v.value = &value
}

func (v *NumericView) Clear() {
	v.value = nil
}

func (v *NumericView) Value() (string, bool) {
	if v.value == nil {
		return "", false
	}
	return *v.value, true
}

func (v *NumericView) SetColor(color RGB) {
	v.color = color
}

func (v *NumericView) Color() RGB {
	return v.color
}

func (v *NumericView) Len() int {
	return len(v.indices)
}

func (v *NumericView) Indices() []int {
	return append([]int(nil), v.indices...)
}

// Write stores the pending value into the buffer cells. Either every cell of
// the view is updated or none is. Cells past the end of the value are blanked.
func (v *NumericView) Write() error {
	var glyphs []glyph
	if v.value != nil {
		var err error
		glyphs, err = parseValue(*v.value)
		if err != nil {
			return err
		}
	}
	if len(glyphs) > len(v.indices) {
		return fmt.Errorf("%w to display value [%q] on %d cells", ErrInsufficientDigits, *v.value, len(v.indices))
	}

	for i, idx := range v.indices {
		g := glyph{char: Blank}
		if i < len(glyphs) {
			g = glyphs[i]
		}
		v.buffer.setCell(idx, Encode(g.char, g.decimal), v.color)
	}
	return nil
}

func parseValue(value string) ([]glyph, error) {
	runes := []rune(value)
	glyphs := make([]glyph, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		c, err := ParseChar(runes[i])
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", value, err)
		}
		decimal := i+1 < len(runes) && runes[i+1] == '.'
		if decimal {
			i++
		}
		glyphs = append(glyphs, glyph{char: c, decimal: decimal})
	}
	return glyphs, nil
}
