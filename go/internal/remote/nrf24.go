package remote

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// nRF24L01 commands and registers.
const (
	nrfCmdReadReg   = 0x00
	nrfCmdWriteReg  = 0x20
	nrfCmdReadPay   = 0x61
	nrfCmdFlushRx   = 0xE2
	nrfCmdNop       = 0xFF
	nrfRegConfig    = 0x00
	nrfRegEnRxAddr  = 0x02
	nrfRegRfCh      = 0x05
	nrfRegRfSetup   = 0x06
	nrfRegStatus    = 0x07
	nrfRegRxAddrP0  = 0x0A
	nrfRegTxAddr    = 0x10
	nrfRegRxPwP0    = 0x11
	nrfRegFifoStat  = 0x17
	nrfConfigEnCRC  = 0x08
	nrfConfigCRCO   = 0x04
	nrfConfigPwrUp  = 0x02
	nrfConfigPrimRx = 0x01
	nrfStatusRxDR   = 0x40
	nrfStatusTxDS   = 0x20
	nrfStatusMaxRT  = 0x10
	nrfRfDr250k     = 0x20
	nrfRfPwrMinus6  = 0x04
	nrfErxP0        = 0x01
	nrfFifoRxEmpty  = 0x01
)

// maxFifoDrain bounds the FIFO drain loop so a stuck status register cannot
// hang the polling goroutine.
const maxFifoDrain = 3

type NRF24Config struct {
	SPIPort string
	CEPin   string
	Speed   physic.Frequency
	Address [5]byte
	Channel uint8
}

func DefaultNRF24Config() NRF24Config {
	return NRF24Config{
		SPIPort: "/dev/spidev0.0",
		CEPin:   "GPIO1",
		Speed:   2 * physic.MegaHertz,
		Address: [5]byte{0x11, 0x22, 0x33, 0x44, 0x55},
		Channel: 2,
	}
}

// NRF24 drives an nRF24L01 in primary-receiver mode over SPI.
type NRF24 struct {
	config NRF24Config
	port   spi.PortCloser
	conn   spi.Conn
	ce     gpio.PinIO
}

func NewNRF24(cfg NRF24Config) *NRF24 {
	return &NRF24{config: cfg}
}

func (n *NRF24) Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initialize periph host: %w", err)
	}

	port, err := spireg.Open(n.config.SPIPort)
	if err != nil {
		return fmt.Errorf("open spi port %s: %w", n.config.SPIPort, err)
	}
	conn, err := port.Connect(n.config.Speed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return fmt.Errorf("connect spi port: %w", err)
	}

	ce := gpioreg.ByName(n.config.CEPin)
	if ce == nil {
		port.Close()
		return fmt.Errorf("unknown CE pin %q", n.config.CEPin)
	}

	n.port = port
	n.conn = conn
	n.ce = ce

	return n.configure()
}

func (n *NRF24) configure() error {
	log.Debug().
		Str("component", "remote_link").
		Hex("address", n.config.Address[:]).
		Uint8("channel", n.config.Channel).
		Msg("initializing nrf24")

	if err := n.ce.Out(gpio.Low); err != nil {
		return fmt.Errorf("clear CE: %w", err)
	}

	steps := []struct {
		reg  byte
		data []byte
	}{
		{nrfRegRfSetup, []byte{nrfRfPwrMinus6 | nrfRfDr250k}},
		{nrfRegRxPwP0, []byte{PayloadSize}},
		{nrfRegRfCh, []byte{n.config.Channel}},
		{nrfRegRxAddrP0, n.config.Address[:]},
		{nrfRegTxAddr, n.config.Address[:]},
	}
	for _, s := range steps {
		if err := n.writeReg(s.reg, s.data...); err != nil {
			return err
		}
	}

	readBack, err := n.readReg(nrfRegRxAddrP0, len(n.config.Address))
	if err != nil {
		return err
	}
	if !bytes.Equal(readBack, n.config.Address[:]) {
		log.Warn().
			Str("component", "remote_link").
			Hex("read_back", readBack).
			Msg("nrf24 address read back mismatch, communication not reliable")
	}

	if err := n.writeReg(nrfRegEnRxAddr, nrfErxP0); err != nil {
		return err
	}
	if err := n.resetIRQ(nrfStatusRxDR | nrfStatusTxDS | nrfStatusMaxRT); err != nil {
		return err
	}
	if err := n.command(nrfCmdFlushRx); err != nil {
		return err
	}
	if err := n.writeReg(nrfRegConfig, nrfConfigEnCRC|nrfConfigCRCO|nrfConfigPwrUp|nrfConfigPrimRx); err != nil {
		return err
	}
	if err := n.ce.Out(gpio.High); err != nil {
		return fmt.Errorf("set CE: %w", err)
	}
	return nil
}

func (n *NRF24) Poll() ([][]byte, error) {
	status, err := n.status()
	if err != nil {
		return nil, err
	}

	var payloads [][]byte
	if status&nrfStatusRxDR != 0 {
		p, err := n.readPayload()
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
		if err := n.resetIRQ(nrfStatusRxDR | nrfStatusTxDS | nrfStatusMaxRT); err != nil {
			return payloads, err
		}
	} else if flags := status & (nrfStatusTxDS | nrfStatusMaxRT); flags != 0 {
		if err := n.resetIRQ(flags); err != nil {
			return nil, err
		}
	}

	for i := 0; i < maxFifoDrain; i++ {
		fifo, err := n.readReg(nrfRegFifoStat, 1)
		if err != nil {
			return payloads, err
		}
		if fifo[0]&nrfFifoRxEmpty != 0 {
			break
		}
		p, err := n.readPayload()
		if err != nil {
			return payloads, err
		}
		payloads = append(payloads, p)
	}

	return payloads, nil
}

func (n *NRF24) Close() error {
	if n.ce != nil {
		_ = n.ce.Out(gpio.Low)
	}
	if n.port != nil {
		return n.port.Close()
	}
	return nil
}

// tx performs one SPI transaction and returns the bytes clocked in.
func (n *NRF24) tx(w []byte) ([]byte, error) {
	r := make([]byte, len(w))
	if err := n.conn.Tx(w, r); err != nil {
		return nil, fmt.Errorf("spi transfer: %w", err)
	}
	time.Sleep(100 * time.Microsecond)
	return r, nil
}

func (n *NRF24) command(cmd byte) error {
	_, err := n.tx([]byte{cmd})
	return err
}

func (n *NRF24) status() (byte, error) {
	r, err := n.tx([]byte{nrfCmdNop})
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

func (n *NRF24) writeReg(reg byte, data ...byte) error {
	_, err := n.tx(append([]byte{nrfCmdWriteReg | reg}, data...))
	return err
}

func (n *NRF24) readReg(reg byte, size int) ([]byte, error) {
	r, err := n.tx(append([]byte{nrfCmdReadReg | reg}, make([]byte, size)...))
	if err != nil {
		return nil, err
	}
	return r[1:], nil
}

func (n *NRF24) resetIRQ(flags byte) error {
	return n.writeReg(nrfRegStatus, flags)
}

// readPayload reads one full payload and drops the status byte that leads
// every SPI response.
func (n *NRF24) readPayload() ([]byte, error) {
	r, err := n.tx(append([]byte{nrfCmdReadPay}, make([]byte, PayloadSize)...))
	if err != nil {
		return nil, err
	}
	return r[1:], nil
}
