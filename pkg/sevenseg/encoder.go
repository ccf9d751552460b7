package sevenseg

import (
	"errors"
	"fmt"
)

/*
Segment layout, bit index in parentheses:

	 aaaa          (0)
	f    b     (5)     (1)
	f    b
	 gggg          (6)
	e    c     (4)     (2)
	e    c
	 dddd   dp     (3)    (7)
*/

// Mask holds one bit per segment, bit 7 being the decimal point.
type Mask uint8

const (
	SegmentA Mask = 1 << iota
	SegmentB
	SegmentC
	SegmentD
	SegmentE
	SegmentF
	SegmentG
	DecimalPoint
)

const SegmentsPerCell = 8

var digitMasks = [10]Mask{
	0b00111111, // 0
	0b00000110, // 1
	0b01011011, // 2
	0b01001111, // 3
	0b01100110, // 4
	0b01101101, // 5
	0b01111101, // 6
	0b00000111, // 7
	0b01111111, // 8
	0b01101111, // 9
}

const (
	minusMask   Mask = 0b01000000
	letterEMask Mask = 0b01111001
)

var ErrUnsupportedChar = errors.New("sevenseg: unsupported character")

type charKind uint8

const (
	kindBlank charKind = iota
	kindNumber
	kindMinus
	kindLetterE
)

// Char is a displayable character. The zero value is Blank.
type Char struct {
	kind  charKind
	digit uint8
}

var (
	Blank   = Char{kind: kindBlank}
	Minus   = Char{kind: kindMinus}
	LetterE = Char{kind: kindLetterE}
)

// Digit returns the Char for n, which must be in 0..9.
func Digit(n int) Char {
	if n < 0 || n > 9 {
		panic(fmt.Sprintf("sevenseg: single digits only [%d sent]", n))
	}
	return Char{kind: kindNumber, digit: uint8(n)}
}

func (c Char) String() string {
	switch c.kind {
	case kindNumber:
		return string(rune('0' + c.digit))
	case kindMinus:
		return "-"
	case kindLetterE:
		return "E"
	default:
		return " "
	}
}

// ParseChar maps '0'-'9', '-' and ' ' to their Char.
func ParseChar(r rune) (Char, error) {
	switch {
	case r >= '0' && r <= '9':
		return Digit(int(r - '0')), nil
	case r == '-':
		return Minus, nil
	case r == ' ':
		return Blank, nil
	}
	return Blank, fmt.Errorf("%w %q", ErrUnsupportedChar, r)
}

// Encode returns the segments to light for c. The colour is up to the caller.
func Encode(c Char, decimal bool) Mask {
	var m Mask
	switch c.kind {
	case kindNumber:
		m = digitMasks[c.digit]
	case kindMinus:
		m = minusMask
	case kindLetterE:
		m = letterEMask
	}
	if decimal {
		m |= DecimalPoint
	}
	return m
}

// Lit reports whether segment index i (0..7) is on.
func (m Mask) Lit(i int) bool {
	return m>>i&1 == 1
}
