package sevenseg

import (
	"errors"
	"fmt"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColor = RGB{R: 10, G: 20, B: 30}

func newTestBuffer(t *testing.T, cells int) (*Buffer, *MemorySink) {
	sink := &MemorySink{}
	buf, err := NewBuffer(sink, cells)
	require.NoError(t, err)
	return buf, sink
}

func TestEncodeDigits(t *testing.T) {

	assert := assert.New(t)

	for i := 0; i <= 9; i++ {
		m := Encode(Digit(i), false)
		assert.Equal(m, Encode(Digit(i), false), "deterministic for %d", i)
		assert.LessOrEqual(bits.OnesCount8(uint8(m)), 7, "popcount for %d", i)
		assert.False(m.Lit(7), "no decimal point for %d", i)

		withDP := Encode(Digit(i), true)
		assert.Equal(m|DecimalPoint, withDP, "decimal point for %d", i)
	}
	assert.Equal(Mask(0b01111111), Encode(Digit(8), false), "eight lights a..g")
	assert.Equal(SegmentB|SegmentC, Encode(Digit(1), false), "one")
}

func TestEncodeSpecialChars(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(Mask(0), Encode(Blank, false))
	assert.Equal(DecimalPoint, Encode(Blank, true))
	assert.Equal(SegmentG, Encode(Minus, false))
	assert.Equal(SegmentA|SegmentD|SegmentE|SegmentF|SegmentG, Encode(LetterE, false))
	assert.Equal(Mask(0), Encode(Char{}, false), "zero value is blank")
}

func TestParseChar(t *testing.T) {

	c, err := ParseChar('7')
	require.NoError(t, err)
	assert.Equal(t, Digit(7), c)

	c, err = ParseChar('-')
	require.NoError(t, err)
	assert.Equal(t, Minus, c)

	c, err = ParseChar(' ')
	require.NoError(t, err)
	assert.Equal(t, Blank, c)

	_, err = ParseChar('x')
	assert.ErrorIs(t, err, ErrUnsupportedChar)

	assert.Panics(t, func() { Digit(10) })
}

func TestNewBufferOpenFails(t *testing.T) {

	_, err := NewBuffer(&MemorySink{OpenErr: errors.New("no such device")}, 4)
	assert.ErrorIs(t, err, ErrHardwareIO)

	_, err = NewBuffer(&MemorySink{}, 0)
	assert.Error(t, err)
}

func TestFlushWritesWholeFrame(t *testing.T) {

	buf, sink := newTestBuffer(t, 3)

	buf.SetAll(Digit(8), testColor, true)
	require.NoError(t, buf.Flush())

	frame := sink.Frame()
	require.Len(t, frame, 3*SegmentsPerCell*3)
	for i := 0; i < len(frame); i += 3 {
		assert.Equal(t, []byte{10, 20, 30}, frame[i:i+3], "led %d", i/3)
	}

	buf.SetAll(Blank, testColor, false)
	require.NoError(t, buf.Flush())
	assert.Equal(t, make([]byte, 3*SegmentsPerCell*3), sink.Frame())
	assert.Equal(t, 2, sink.Writes())
}

func TestFlushFailureIsHardwareError(t *testing.T) {

	buf, sink := newTestBuffer(t, 1)
	sink.SetWriteErr(errors.New("spi: broken pipe"))

	err := buf.Flush()
	assert.ErrorIs(t, err, ErrHardwareIO)
}

func TestDeriveViewValidatesIndices(t *testing.T) {

	buf, _ := newTestBuffer(t, 4)

	_, err := buf.DeriveView()
	assert.Error(t, err)
	_, err = buf.DeriveView(0, 4)
	assert.Error(t, err)

	v, err := buf.DeriveView(3, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, v.Indices())
}

func TestViewWriteDecimal(t *testing.T) {

	assert := assert.New(t)
	buf, _ := newTestBuffer(t, 2)
	v, err := buf.DeriveView(0, 1)
	require.NoError(t, err)

	v.SetColor(testColor)
	v.SetValue("5.0")
	require.NoError(t, v.Write())

	assert.Equal(cellFor(Digit(5), true, testColor), buf.Cell(0))
	assert.Equal(cellFor(Digit(0), false, testColor), buf.Cell(1))
}

func TestViewRoundTripDigits(t *testing.T) {

	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprintf("%d cells", k), func(t *testing.T) {
			buf, _ := newTestBuffer(t, k)
			indices := make([]int, k)
			for i := range indices {
				indices[i] = i
			}
			v, err := buf.DeriveView(indices...)
			require.NoError(t, err)
			v.SetColor(testColor)

			n := 1
			for i := 1; i < k; i++ {
				n *= 10
			}
			v.SetValue(fmt.Sprint(n))
			require.NoError(t, v.Write(), "%d digits fit %d cells", k, k)

			before := make([]Cell, k)
			for i := range before {
				before[i] = buf.Cell(i)
			}

			v.SetValue(fmt.Sprint(n * 10))
			err = v.Write()
			assert.ErrorIs(t, err, ErrInsufficientDigits)
			for i := range before {
				assert.Equal(t, before[i], buf.Cell(i), "cell %d untouched", i)
			}
		})
	}
}

func TestViewWriteIsIdempotent(t *testing.T) {

	buf, sink := newTestBuffer(t, 3)
	v, err := buf.DeriveView(0, 1, 2)
	require.NoError(t, err)
	v.SetColor(testColor)
	v.SetValue("-1.5")

	require.NoError(t, v.Write())
	require.NoError(t, buf.Flush())
	first := sink.Frame()

	require.NoError(t, v.Write())
	require.NoError(t, buf.Flush())
	assert.Equal(t, first, sink.Frame())
}

func TestViewUnsupportedChar(t *testing.T) {

	buf, _ := newTestBuffer(t, 3)
	v, err := buf.DeriveView(0, 1, 2)
	require.NoError(t, err)

	v.SetValue("1e3")
	err = v.Write()
	assert.ErrorIs(t, err, ErrUnsupportedChar)
	assert.Equal(t, Cell{}, buf.Cell(0), "nothing written")
}

func TestViewClearAndShortValues(t *testing.T) {

	assert := assert.New(t)
	buf, _ := newTestBuffer(t, 3)
	v, err := buf.DeriveView(0, 1, 2)
	require.NoError(t, err)
	v.SetColor(testColor)

	v.SetValue("888")
	require.NoError(t, v.Write())

	v.SetValue("7")
	require.NoError(t, v.Write())
	assert.Equal(cellFor(Digit(7), false, testColor), buf.Cell(0))
	assert.Equal(Cell{}, buf.Cell(1), "trailing cells are blanked")
	assert.Equal(Cell{}, buf.Cell(2), "trailing cells are blanked")

	v.Clear()
	_, ok := v.Value()
	assert.False(ok)
	require.NoError(t, v.Write())
	for i := 0; i < 3; i++ {
		assert.Equal(Cell{}, buf.Cell(i))
	}
}

func TestOverlappingViews(t *testing.T) {

	buf, _ := newTestBuffer(t, 3)
	left, err := buf.DeriveView(0, 1)
	require.NoError(t, err)
	right, err := buf.DeriveView(1, 2)
	require.NoError(t, err)

	other := RGB{R: 1}
	left.SetColor(testColor)
	left.SetValue("12")
	right.SetColor(other)
	right.SetValue("34")

	require.NoError(t, left.Write())
	require.NoError(t, right.Write())

	assert.Equal(t, cellFor(Digit(1), false, testColor), buf.Cell(0))
	assert.Equal(t, cellFor(Digit(3), false, other), buf.Cell(1), "last writer wins")
	assert.Equal(t, cellFor(Digit(4), false, other), buf.Cell(2))
}

func TestEncodeWS28xx(t *testing.T) {

	out := EncodeWS28xx([]byte{0x00, 0xFF, 0x00})

	require.Len(t, out, 9+latchBytes)
	assert.Equal(t, []byte{0xDB, 0x6D, 0xB6}, out[0:3], "green goes first")
	assert.Equal(t, []byte{0x92, 0x49, 0x24}, out[3:6], "red")
	assert.Equal(t, []byte{0x92, 0x49, 0x24}, out[6:9], "blue")
	assert.Equal(t, make([]byte, latchBytes), out[9:], "latch")
}

func cellFor(c Char, decimal bool, color RGB) Cell {
	var cell Cell
	cell.set(Encode(c, decimal), color)
	return cell
}
