package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/chainball/scoreboard/go/internal/announce"
	"github.com/chainball/scoreboard/go/internal/config"
	"github.com/chainball/scoreboard/go/internal/remote"
	"github.com/chainball/scoreboard/go/internal/score"
	"github.com/chainball/scoreboard/go/internal/serialport"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Hardware is everything the console talks to over wires or radio.
type Hardware struct {
	Display  *score.Link
	Matrix   announce.Matrix
	Remotes  *remote.Link
	Registry remote.Registry
	Decoder  *remote.Decoder
	// Virtual is set when running without a transceiver.
	Virtual  *remote.VirtualRadio

	ports []io.Closer
}

// setupHardware opens the serial lines and the radio and starts both
// links. Any failure here is fatal to the caller.
func setupHardware(ctx context.Context, cfg config.HardwareConfig, clock clockwork.Clock) (*Hardware, error) {
	hw := &Hardware{}

	scorePort, err := openPort(cfg.Virtual, cfg.ScorePort, cfg.ScoreBaud)
	if err != nil {
		return nil, err
	}
	hw.ports = append(hw.ports, scorePort)

	matrixPort, err := openPort(cfg.Virtual, cfg.MatrixPort, cfg.MatrixBaud)
	if err != nil {
		hw.closePorts()
		return nil, err
	}
	hw.ports = append(hw.ports, matrixPort)
	hw.Matrix = announce.NewSerialMatrix(matrixPort)

	var radio remote.Radio
	if cfg.Virtual {
		hw.Virtual = remote.NewVirtualRadio()
		radio = hw.Virtual
	} else {
		nrf := remote.DefaultNRF24Config()
		nrf.SPIPort = cfg.SPIPort
		nrf.CEPin = cfg.CEPin
		nrf.Channel = uint8(cfg.RadioChannel)
		radio = remote.NewNRF24(nrf)
	}

	hw.Registry = remote.OpenFileRegistry(cfg.RemoteRegistry)
	hw.Decoder = remote.NewDecoder(hw.Registry)

	hw.Display = score.NewLink(scorePort, clock, score.DefaultLinkConfig())
	if err := hw.Display.Start(ctx); err != nil {
		hw.closePorts()
		return nil, fmt.Errorf("failed to start score display link: %w", err)
	}

	hw.Remotes = remote.NewLink(radio, clock, remote.LinkConfig{
		PollInterval: time.Duration(cfg.RemotePollMs) * time.Millisecond,
	})
	if err := hw.Remotes.Start(ctx); err != nil {
		_ = hw.Display.Stop()
		hw.closePorts()
		return nil, fmt.Errorf("failed to start remote receiver: %w", err)
	}

	log.Info().Bool("virtual", cfg.Virtual).Msg("hardware ready")
	return hw, nil
}

func openPort(virtual bool, name string, baud int) (io.WriteCloser, error) {
	if virtual {
		return serialport.Virtual{Name: name}, nil
	}
	return serialport.Open(name, baud)
}

// Close releases the serial lines. The links must already be stopped.
func (hw *Hardware) Close() {
	hw.closePorts()
}

func (hw *Hardware) closePorts() {
	for _, p := range hw.ports {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close serial port")
		}
	}
	hw.ports = nil
}
