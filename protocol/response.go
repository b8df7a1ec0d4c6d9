package protocol

import "fmt"

// Designator classifies the outcome of an exchange.
type Designator string

const (
	DesignatorNone Designator = ""
	DesignatorAck  Designator = "ACK"
	DesignatorNak  Designator = "NAK"
	DesignatorErr  Designator = "ERR"
	DesignatorDat  Designator = "DAT"
	DesignatorUps  Designator = "UPS"
)

// ParseDesignator maps designator text onto its Designator.
func ParseDesignator(s string) (Designator, error) {
	switch d := Designator(s); d {
	case DesignatorAck, DesignatorNak, DesignatorErr, DesignatorDat, DesignatorUps:
		return d, nil
	default:
		return DesignatorNone, fmt.Errorf("Failed to parse designator '%s': %w", s, ErrUnknownDesignator)
	}
}

// Response is a decoded device reply. Values is populated on the normal path,
// Upstream on the upstream path.
type Response struct {
	Number     uint32
	Designator Designator

	// RawDesignator holds the designator text as received. It is set even
	// when the text is not a known designator, in which case Designator is
	// DesignatorNone.
	RawDesignator string

	DeclaredLength uint32
	Values         []Value
	Upstream       []byte
}

// Classified reports whether the response carried a known designator.
func (r *Response) Classified() bool {
	return r.Designator != DesignatorNone
}
