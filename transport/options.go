package transport

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 400 * time.Millisecond
)

type Options struct {
	// Port is the serial device, e.g. /dev/ttyUSB0 or COM5
	Port string

	BaudRate int

	// ReadTimeout bounds a whole ReadUntil call
	ReadTimeout time.Duration

	// MaxFrameSize stops a ReadUntil that never sees its delimiter. Zero
	// means unbounded.
	MaxFrameSize int

	// Trace will log every frame written and read. This is only useful in local debugging
	Trace bool

	Log *zap.Logger
}
