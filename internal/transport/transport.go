// Package transport owns the raw byte link to the companion radio. It is
// the only package that touches serial I/O; everything above it sees one
// small connection interface, implemented once for the real port and once
// in memory so the framing path is never duplicated for tests.
package transport

import (
	"errors"
	"io"
)

var (
	ErrNoPortsFound = errors.New("transport: no serial ports found")
	ErrClosed       = errors.New("transport: connection closed")
)

// Conn is a byte-oriented duplex link to the radio. Read blocks until at
// least one byte arrives or the connection closes; it never returns a
// zero-count success, which keeps io.ReadFull safe on top of it.
type Conn interface {
	io.ReadWriteCloser
	// ResetInput discards any bytes buffered on the inbound side.
	ResetInput() error
}
