package sevenseg

import (
	"errors"
	"fmt"
)

var ErrHardwareIO = errors.New("sevenseg: hardware I/O error")

type RGB struct {
	R, G, B uint8
}

// Cell is the colour state of one digit: 8 segment LEDs, 3 channels each.
type Cell [SegmentsPerCell * 3]byte

func (c *Cell) set(mask Mask, color RGB) {
	*c = Cell{}
	for i := 0; i < SegmentsPerCell; i++ {
		if mask.Lit(i) {
			c[i*3] = color.R
			c[i*3+1] = color.G
			c[i*3+2] = color.B
		}
	}
}

// Segment returns the colour of segment index i.
func (c Cell) Segment(i int) RGB {
	return RGB{R: c[i*3], G: c[i*3+1], B: c[i*3+2]}
}

// Sink receives full frames of concatenated cells.
type Sink interface {
	Open() error
	Write(frame []byte) error
	Close() error
}

// Buffer owns a string of digit cells and the sink they are flushed to.
// Views reference cells by index, so any number of views may share one Buffer.
type Buffer struct {
	cells []Cell
	sink  Sink
}

func NewBuffer(sink Sink, cellCount int) (*Buffer, error) {
	if sink == nil {
		return nil, errors.New("sevenseg: nil sink")
	}
	if cellCount <= 0 {
		return nil, fmt.Errorf("sevenseg: invalid cell count %d", cellCount)
	}
	if err := sink.Open(); err != nil {
		return nil, fmt.Errorf("%w: open sink: %w", ErrHardwareIO, err)
	}
	return &Buffer{
		cells: make([]Cell, cellCount),
		sink:  sink,
	}, nil
}

func (b *Buffer) Len() int {
	return len(b.cells)
}

// Cell returns a copy of cell i.
func (b *Buffer) Cell(i int) Cell {
	return b.cells[i]
}

// Flush writes the whole buffer to the sink. There is no partial flush.
func (b *Buffer) Flush() error {
	frame := make([]byte, 0, len(b.cells)*SegmentsPerCell*3)
	for i := range b.cells {
		frame = append(frame, b.cells[i][:]...)
	}
	if err := b.sink.Write(frame); err != nil {
		return fmt.Errorf("%w: write frame: %w", ErrHardwareIO, err)
	}
	return nil
}

func (b *Buffer) SetAll(c Char, color RGB, decimal bool) {
	mask := Encode(c, decimal)
	for i := range b.cells {
		b.cells[i].set(mask, color)
	}
}

// DeriveView binds a view to the given cells, in display order.
func (b *Buffer) DeriveView(indices ...int) (*NumericView, error) {
	if len(indices) == 0 {
		return nil, errors.New("sevenseg: a view needs at least one cell")
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(b.cells) {
			return nil, fmt.Errorf("sevenseg: cell index %d out of range [0, %d)", idx, len(b.cells))
		}
	}
	return &NumericView{
		buffer:  b,
		indices: append([]int(nil), indices...),
	}, nil
}

func (b *Buffer) Close() error {
	return b.sink.Close()
}

func (b *Buffer) setCell(i int, mask Mask, color RGB) {
	b.cells[i].set(mask, color)
}
