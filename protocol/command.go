package protocol

import "fmt"

// CommandKind is the single character that identifies a request type. It also
// separates the command number from the body on the wire.
type CommandKind byte

const (
	KindRejected   CommandKind = '#'
	KindGetVar     CommandKind = '?'
	KindSetVar     CommandKind = '!'
	KindInvoke     CommandKind = ':'
	KindUpstream   CommandKind = '>'
	KindDownstream CommandKind = '<'
)

// Char returns the wire character of the kind.
func (k CommandKind) Char() byte {
	return byte(k)
}

func (k CommandKind) String() string {
	switch k {
	case KindRejected:
		return "REJECTED"
	case KindGetVar:
		return "GETVAR"
	case KindSetVar:
		return "SETVAR"
	case KindInvoke:
		return "COMMAND"
	case KindUpstream:
		return "UPSTREAM"
	case KindDownstream:
		return "DOWNSTREAM"
	default:
		return fmt.Sprintf("CommandKind(%q)", byte(k))
	}
}

// ParseCommandKind maps a wire character onto its CommandKind.
func ParseCommandKind(c byte) (CommandKind, error) {
	switch k := CommandKind(c); k {
	case KindRejected, KindGetVar, KindSetVar, KindInvoke, KindUpstream, KindDownstream:
		return k, nil
	default:
		return 0, fmt.Errorf("Failed to parse kind %q: %w", c, ErrUnknownCommandKind)
	}
}

// Command is a single request to the device. Values and Types are parallel;
// Types[i] is the fixed width representation Values[i] is packed into.
type Command struct {
	Number uint32
	Kind   CommandKind
	Values []Value
	Types  []Datatype
}

// Parameter identifies a device variable.
type Parameter struct {
	Number uint32
	Type   Datatype
}

// Function identifies an invokable device routine with its declared argument
// and result types.
type Function struct {
	Number      uint32
	ArgTypes    []Datatype
	ReturnTypes []Datatype
}
