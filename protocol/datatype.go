package protocol

import (
	"fmt"
	"strings"
)

// Datatype is a fixed width numeric representation. Its value is the wire
// format code.
type Datatype byte

const (
	TypeU8  Datatype = 'B'
	TypeI8  Datatype = 'b'
	TypeU16 Datatype = 'H'
	TypeI16 Datatype = 'h'
	TypeU32 Datatype = 'L'
	TypeI32 Datatype = 'l'
	TypeF32 Datatype = 'f'
)

// Code returns the wire format code.
func (d Datatype) Code() byte {
	return byte(d)
}

// Width returns the size of the representation in bytes, or 0 for an unknown
// datatype.
func (d Datatype) Width() int {
	switch d {
	case TypeU8, TypeI8:
		return 1
	case TypeU16, TypeI16:
		return 2
	case TypeU32, TypeI32, TypeF32:
		return 4
	default:
		return 0
	}
}

func (d Datatype) IsSigned() bool {
	return d == TypeI8 || d == TypeI16 || d == TypeI32
}

func (d Datatype) IsFloat() bool {
	return d == TypeF32
}

// Valid reports whether d is one of the known datatypes.
func (d Datatype) Valid() bool {
	return d.Width() != 0
}

func (d Datatype) String() string {
	switch d {
	case TypeU8:
		return "u8"
	case TypeI8:
		return "i8"
	case TypeU16:
		return "u16"
	case TypeI16:
		return "i16"
	case TypeU32:
		return "u32"
	case TypeI32:
		return "i32"
	case TypeF32:
		return "f32"
	default:
		return fmt.Sprintf("Datatype(%q)", byte(d))
	}
}

// ParseDatatype accepts either a datatype name such as "u16" or a single wire
// format code such as "H". Wire codes are case sensitive, names are not.
func ParseDatatype(s string) (Datatype, error) {
	if len(s) == 1 {
		if d := Datatype(s[0]); d.Valid() {
			return d, nil
		}
	}

	switch strings.ToLower(s) {
	case "u8":
		return TypeU8, nil
	case "i8":
		return TypeI8, nil
	case "u16":
		return TypeU16, nil
	case "i16":
		return TypeI16, nil
	case "u32":
		return TypeU32, nil
	case "i32":
		return TypeI32, nil
	case "f32", "float":
		return TypeF32, nil
	}

	return 0, fmt.Errorf("Failed to parse datatype '%s': %w", s, ErrUnknownDatatype)
}

// ParseDatatypes parses a comma separated datatype list. An empty string is an
// empty list.
func ParseDatatypes(s string) ([]Datatype, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	types := make([]Datatype, 0, len(parts))

	for _, part := range parts {
		d, err := ParseDatatype(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}

		types = append(types, d)
	}

	return types, nil
}
