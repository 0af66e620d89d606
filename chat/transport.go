package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=chat

// Transport represents an established, bidirectional byte stream to a modem
// or similar line-oriented device.
//
// A Transport is assumed to be already connected and ready for use. Reads may
// return any number of bytes with no line-boundary guarantee; writes may be
// partial. Typical implementations include serial ports, TCP connections to
// emulators, or in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a device.
//
// Dialer abstracts how the connection is created (for example, via a serial
// port, TCP-based emulator, or test double). Once a Transport is obtained,
// the Dialer is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation and deadlines
	// provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens a Transport over a local serial port.
type SerialDialer struct {
	// PortName is the device path of the serial port, e.g. "/dev/ttyUSB0".
	PortName string
	// Mode holds the serial parameters. When nil, 115200 8N1 is used.
	Mode *serial.Mode
}

// Dial opens the configured serial port.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: 115200,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}
	return port, nil
}
