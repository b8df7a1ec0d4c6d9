package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a number that is either an integer or a float. Command arguments
// and decoded response data are carried as Values.
type Value struct {
	float bool
	i     int64
	f     float64
}

func IntValue(i int64) Value {
	return Value{i: i}
}

func FloatValue(f float64) Value {
	return Value{float: true, f: f}
}

func (v Value) IsFloat() bool {
	return v.float
}

// Int returns the integer value. Floats are truncated towards zero.
func (v Value) Int() int64 {
	if v.float {
		return int64(v.f)
	}

	return v.i
}

func (v Value) Float() float64 {
	if v.float {
		return v.f
	}

	return float64(v.i)
}

// Interface returns the value as an int64 or a float64.
func (v Value) Interface() interface{} {
	if v.float {
		return v.f
	}

	return v.i
}

func (v Value) String() string {
	if v.float {
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}

	return strconv.FormatInt(v.i, 10)
}

// ParseValue reads decimal text. Text containing a decimal point, an exponent,
// or naming inf/nan becomes a Float, everything else an Int.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return Value{}, fmt.Errorf("Failed to parse value: empty field: %w", ErrFormat)
	}

	unsigned := strings.TrimPrefix(s, "-")
	isHex := strings.HasPrefix(unsigned, "0x") || strings.HasPrefix(unsigned, "0X")

	if !isHex && strings.ContainsAny(s, ".eEnN") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("Failed to parse value '%s': %w", s, ErrFormat)
		}

		return FloatValue(f), nil
	}

	i, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return Value{}, fmt.Errorf("Failed to parse value '%s': %w", s, ErrFormat)
	}

	return IntValue(i), nil
}

// Bits packs v into the representation of d and returns the raw bits in the
// low Width() bytes. It fails when v does not fit into d.
func (v Value) Bits(d Datatype) (uint32, error) {
	if d.IsFloat() {
		return math.Float32bits(float32(v.Float())), nil
	}

	i, err := v.Integer(d)
	if err != nil {
		return 0, err
	}

	mask := uint64(1)<<(8*uint(d.Width())) - 1

	return uint32(uint64(i) & mask), nil
}

// Integer returns v as a whole number within the range of the integer
// datatype d. Integral floats such as 2.0 are accepted.
func (v Value) Integer(d Datatype) (int64, error) {
	if !d.Valid() || d.IsFloat() {
		return 0, fmt.Errorf("Failed to pack %s as an integer: %w", v, ErrUnknownDatatype)
	}

	lo, hi := intRange(d)

	if v.float {
		if v.f != math.Trunc(v.f) || math.IsInf(v.f, 0) {
			return 0, fmt.Errorf("Failed to pack %s as %s, value is not integral: %w", v, d, ErrConfig)
		}

		if v.f < float64(lo) || v.f > float64(hi) {
			return 0, fmt.Errorf("Failed to pack %s as %s, value out of range: %w", v, d, ErrConfig)
		}

		return int64(v.f), nil
	}

	if v.i < lo || v.i > hi {
		return 0, fmt.Errorf("Failed to pack %s as %s, value out of range: %w", v, d, ErrConfig)
	}

	return v.i, nil
}

func intRange(d Datatype) (int64, int64) {
	switch d {
	case TypeU8:
		return 0, math.MaxUint8
	case TypeI8:
		return math.MinInt8, math.MaxInt8
	case TypeU16:
		return 0, math.MaxUint16
	case TypeI16:
		return math.MinInt16, math.MaxInt16
	case TypeU32:
		return 0, math.MaxUint32
	default:
		return math.MinInt32, math.MaxInt32
	}
}
