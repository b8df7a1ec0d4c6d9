package protocol

import "fmt"

const (
	STX byte = 0x02
	ETX byte = 0x03

	// DefaultMaxFrameSize matches the packet buffers of the reference firmware.
	DefaultMaxFrameSize = 128
)

// Config is the immutable codec configuration of a channel.
type Config struct {
	Format NumberFormat

	// MaxFrameSize bounds the framed length, delimiters included. Zero
	// disables the check.
	MaxFrameSize int
}

func DefaultConfig() Config {
	return Config{
		Format:       FormatHex,
		MaxFrameSize: DefaultMaxFrameSize,
	}
}

// Frame wraps payload in STX and ETX.
func Frame(payload []byte, maxFrameSize int) ([]byte, error) {
	size := len(payload) + 2

	if maxFrameSize > 0 && size > maxFrameSize {
		return nil, fmt.Errorf("Failed to frame payload of %d bytes, max frame size is %d: %w",
			len(payload), maxFrameSize, ErrSizeExceeded)
	}

	framed := make([]byte, 0, size)
	framed = append(framed, STX)
	framed = append(framed, payload...)
	framed = append(framed, ETX)

	return framed, nil
}

// Unframe validates the delimiters of raw and returns the payload between them.
func Unframe(raw []byte) ([]byte, error) {
	if len(raw) < 2 || raw[0] != STX || raw[len(raw)-1] != ETX {
		return nil, fmt.Errorf("Failed to unframe %q: %w", raw, ErrFrame)
	}

	return raw[1 : len(raw)-1], nil
}
