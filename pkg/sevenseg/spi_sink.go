package sevenseg

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// Each WS28xx data bit is sent as 3 SPI bits: 110 for one, 100 for zero.
	// At 2.4MHz that gives the ~0.4us/0.8us high times the LEDs expect.
	DefaultSPISpeed = 2400 * physic.KiloHertz

	// >50us low at 2.4MHz latches the frame.
	latchBytes = 32
)

// SPISink drives a chain of WS2812/WS2818 LEDs through a spidev MOSI line.
type SPISink struct {
	device string
	speed  physic.Frequency
	port   spi.PortCloser
	conn   spi.Conn
}

// NewSPISink returns a sink for device (e.g. "/dev/spidev0.0"; "" picks the
// first bus). A zero speed uses DefaultSPISpeed.
func NewSPISink(device string, speed physic.Frequency) *SPISink {
	if speed == 0 {
		speed = DefaultSPISpeed
	}
	return &SPISink{
		device: device,
		speed:  speed,
	}
}

func (s *SPISink) Open() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("sevenseg: periph host init failed: %w", err)
	}
	port, err := spireg.Open(s.device)
	if err != nil {
		return fmt.Errorf("sevenseg: failed to open SPI port %q: %w", s.device, err)
	}
	conn, err := port.Connect(s.speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("sevenseg: failed to connect SPI: %w", err)
	}
	s.port = port
	s.conn = conn
	return nil
}

func (s *SPISink) Write(frame []byte) error {
	if s.conn == nil {
		return fmt.Errorf("sevenseg: SPI sink %q is not open", s.device)
	}
	return s.conn.Tx(EncodeWS28xx(frame), nil)
}

func (s *SPISink) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.conn = nil
	return err
}

// EncodeWS28xx converts an RGB frame (3 bytes per LED) into the SPI bit
// stream for WS28xx LEDs: GRB order, MSB first, followed by the latch.
// A trailing incomplete triple is ignored.
func EncodeWS28xx(frame []byte) []byte {
	leds := len(frame) / 3
	out := make([]byte, 0, leds*9+latchBytes)

	var acc uint32
	var n uint
	for i := 0; i < leds; i++ {
		r, g, b := frame[i*3], frame[i*3+1], frame[i*3+2]
		for _, channel := range [3]byte{g, r, b} {
			for bit := 7; bit >= 0; bit-- {
				symbol := uint32(0b100)
				if channel>>bit&1 == 1 {
					symbol = 0b110
				}
				acc = acc<<3 | symbol
				n += 3
				for n >= 8 {
					n -= 8
					out = append(out, byte(acc>>n))
				}
			}
		}
	}
	return append(out, make([]byte, latchBytes)...)
}
