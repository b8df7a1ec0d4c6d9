package protocol

import "errors"

var (
	ErrFrame              = errors.New("Frame is malformed, missing STX or ETX delimiter")
	ErrFormat             = errors.New("Payload is malformed")
	ErrConfig             = errors.New("Command is misconfigured")
	ErrSizeExceeded       = errors.New("Frame exceeds the maximum frame size")
	ErrUnknownDesignator  = errors.New("Unknown response designator")
	ErrUnknownDatatype    = errors.New("Unknown datatype")
	ErrUnknownCommandKind = errors.New("Unknown command kind")
)
