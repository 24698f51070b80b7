package transport

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	DefaultBaud = 115200

	// readPoll bounds each blocking serial read so Close can interrupt
	// the reader loop instead of hanging on an unbounded read.
	readPoll = 200 * time.Millisecond
)

// SerialConfig describes one serial port attachment.
type SerialConfig struct {
	Port string
	Baud int
}

// OpenSerial opens the port at 8N1 and deasserts RTS/DTR. On CP2102
// bridges those lines are wired to the ESP32 reset and boot pins; a
// previous process may leave them asserted, which holds the radio in
// reset and produces silence on every command.
func OpenSerial(cfg SerialConfig) (Conn, error) {
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(readPoll); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: set read timeout on %s: %w", cfg.Port, err)
	}
	if err := port.SetRTS(false); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: deassert RTS on %s: %w", cfg.Port, err)
	}
	if err := port.SetDTR(false); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: deassert DTR on %s: %w", cfg.Port, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: reset input on %s: %w", cfg.Port, err)
	}

	log.Debug().Str("port", cfg.Port).Int("baud", cfg.Baud).Msg("serial opened")
	return &serialConn{port: port, name: cfg.Port}, nil
}

type serialConn struct {
	port   serial.Port
	name   string
	closed atomic.Bool
}

// Read polls the port at the configured timeout. The serial layer reports
// a timeout as a zero-count read with no error; those are swallowed here
// so callers only ever see data or a terminal error.
func (c *serialConn) Read(p []byte) (int, error) {
	for {
		if c.closed.Load() {
			return 0, io.EOF
		}
		n, err := c.port.Read(p)
		if err != nil {
			if c.closed.Load() {
				return 0, io.EOF
			}
			return n, fmt.Errorf("transport: read %s: %w", c.name, err)
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (c *serialConn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	n, err := c.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: write %s: %w", c.name, err)
	}
	return n, nil
}

func (c *serialConn) ResetInput() error {
	return c.port.ResetInputBuffer()
}

func (c *serialConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.port.Close()
}
