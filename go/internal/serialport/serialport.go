// Package serialport opens the console's serial lines, or a logging
// stand-in when running without hardware.
package serialport

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Open opens name at baud, 8N1.
func Open(name string, baud int) (io.WriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	log.Info().Str("port", name).Int("baud", baud).Msg("opened serial port")
	return port, nil
}

// Virtual swallows writes and traces them at debug level.
type Virtual struct {
	Name string
}

func (v Virtual) Write(p []byte) (int, error) {
	log.Debug().Str("port", v.Name).Hex("frame", p).Msg("virtual serial write")
	return len(p), nil
}

func (v Virtual) Close() error { return nil }
