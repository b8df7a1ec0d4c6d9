package transport

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// port is the subset of serial.Port that Serial relies on.
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetReadTimeout(t time.Duration) error
}

// Serial is a byte channel to a device on a serial port.
type Serial struct {
	port port

	readTimeout  time.Duration
	maxFrameSize int

	log   *zap.Logger
	trace bool
}

// OpenSerial opens options.Port as 8N1 at options.BaudRate.
func OpenSerial(options Options) (*Serial, error) {
	baudRate := options.BaudRate
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	p, err := serial.Open(options.Port, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to open %s: %w", options.Port, err)
	}

	s := newSerial(p, options)

	s.log.Info("Opened serial port",
		zap.String("port", options.Port),
		zap.Int("baudRate", baudRate),
		zap.Duration("readTimeout", s.readTimeout))

	return s, nil
}

func newSerial(p port, options Options) *Serial {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	readTimeout := options.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return &Serial{
		port:         p,
		readTimeout:  readTimeout,
		maxFrameSize: options.MaxFrameSize,
		log:          log,
		trace:        options.Trace,
	}
}

func (s *Serial) Write(data []byte) (int, error) {
	if s.trace {
		s.log.Debug("Write", zap.ByteString("data", data))
	}

	return s.port.Write(data)
}

// Flush discards any stale bytes waiting in the input buffer.
func (s *Serial) Flush() error {
	return s.port.ResetInputBuffer()
}

// ReadUntil reads until delim, the read timeout, or MaxFrameSize bytes. On
// timeout it returns whatever was read so far, which is empty if the device
// never answered.
func (s *Serial) ReadUntil(delim byte) ([]byte, error) {
	deadline := time.Now().Add(s.readTimeout)
	data := make([]byte, 0, 64)
	one := make([]byte, 1)

	for {
		// Each read only gets what is left of the budget
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		if err := s.port.SetReadTimeout(remaining); err != nil {
			return data, fmt.Errorf("Failed to set read timeout: %w", err)
		}

		n, err := s.port.Read(one)
		if err != nil {
			return data, err
		}

		if n == 0 {
			// The port timed out without a byte
			continue
		}

		data = append(data, one[0])

		if one[0] == delim {
			break
		}

		if s.maxFrameSize > 0 && len(data) >= s.maxFrameSize {
			break
		}
	}

	if s.trace {
		s.log.Debug("Read", zap.ByteString("data", data))
	}

	return data, nil
}

// Close drops unsent output and closes the port.
func (s *Serial) Close() error {
	return multierr.Append(s.port.ResetOutputBuffer(), s.port.Close())
}
