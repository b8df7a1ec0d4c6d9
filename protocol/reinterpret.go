package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reinterpret maps a generically decoded wide integer onto the datatype d.
//
// The hex wire encoding does not carry widths, so raw is packed into a 4 byte
// big endian buffer and only the trailing d.Width() bytes are kept before they
// are read back with the signedness or float encoding of d. Unknown datatypes
// yield raw unchanged.
func Reinterpret(raw uint32, d Datatype) Value {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], raw)

	tail := buf[4-d.Width():]

	switch d {
	case TypeU8:
		return IntValue(int64(tail[0]))
	case TypeI8:
		return IntValue(int64(int8(tail[0])))
	case TypeU16:
		return IntValue(int64(binary.BigEndian.Uint16(tail)))
	case TypeI16:
		return IntValue(int64(int16(binary.BigEndian.Uint16(tail))))
	case TypeU32:
		return IntValue(int64(binary.BigEndian.Uint32(tail)))
	case TypeI32:
		return IntValue(int64(int32(binary.BigEndian.Uint32(tail))))
	case TypeF32:
		return FloatValue(float64(math.Float32frombits(binary.BigEndian.Uint32(tail))))
	default:
		return IntValue(int64(raw))
	}
}

// ConvertResult turns a decoded response value into the caller facing value
// for d. Hex values are reinterpreted bit for bit, decimal values stay floats
// for float types and are truncated for integer types, failing when the
// result is outside the range of d.
func ConvertResult(format NumberFormat, raw Value, d Datatype) (Value, error) {
	if !d.Valid() {
		return Value{}, fmt.Errorf("Failed to convert %s: %w", raw, ErrUnknownDatatype)
	}

	if format == FormatHex {
		if raw.IsFloat() {
			return Value{}, fmt.Errorf("Failed to convert %s as %s, hex data must be integral: %w", raw, d, ErrFormat)
		}

		i := raw.Int()
		if i < 0 || i > math.MaxUint32 {
			return Value{}, fmt.Errorf("Failed to convert %s as %s, out of range: %w", raw, d, ErrFormat)
		}

		return Reinterpret(uint32(i), d), nil
	}

	if d.IsFloat() {
		return FloatValue(raw.Float()), nil
	}

	t := math.Trunc(raw.Float())
	lo, hi := intRange(d)

	if math.IsNaN(t) || t < float64(lo) || t > float64(hi) {
		return Value{}, fmt.Errorf("Failed to convert %s as %s, out of range: %w", raw, d, ErrFormat)
	}

	return IntValue(int64(t)), nil
}
