package client

import (
	"errors"
	"fmt"

	"github.com/luma/sci/protocol"
)

var (
	ErrTimeout        = errors.New("Timed out waiting for a device response")
	ErrDeviceRejected = errors.New("Device rejected the command as unknown")
	ErrNoUpstream     = errors.New("Device did not announce an upstream transfer")

	ErrUnexpectedDesignator = fmt.Errorf("Unexpected response designator: %w", protocol.ErrFormat)
	ErrNoProgress           = fmt.Errorf("Continuation frame carried no data: %w", protocol.ErrFormat)
	ErrTooManyValues        = fmt.Errorf("Device returned more values than declared: %w", protocol.ErrFormat)
)

// DeviceError is returned when the device answers ERR. Code is the device
// specific error code.
type DeviceError struct {
	Number uint32
	Kind   protocol.CommandKind
	Code   protocol.Value
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s %d failed: device error %s", e.Kind, e.Number, e.Code)
}
