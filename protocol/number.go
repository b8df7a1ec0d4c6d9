package protocol

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NumberFormat governs how every numeric field of a payload is rendered and
// parsed. Both ends of a channel must agree on it.
type NumberFormat int

const (
	FormatHex NumberFormat = iota
	FormatDecimal
)

func (f NumberFormat) String() string {
	switch f {
	case FormatHex:
		return "hex"
	case FormatDecimal:
		return "decimal"
	default:
		return fmt.Sprintf("NumberFormat(%d)", int(f))
	}
}

func ParseNumberFormat(s string) (NumberFormat, error) {
	switch strings.ToLower(s) {
	case "hex":
		return FormatHex, nil
	case "decimal", "float":
		return FormatDecimal, nil
	default:
		return 0, fmt.Errorf("Failed to parse number format '%s': %w", s, ErrConfig)
	}
}

// EncodeUint renders an unsigned field such as the command number.
func (f NumberFormat) EncodeUint(v uint32) string {
	if f == FormatHex {
		return compactHex(v)
	}

	return strconv.FormatUint(uint64(v), 10)
}

// DecodeUint parses an unsigned field. In decimal mode the text may be a float
// and is rounded to the nearest integer.
func (f NumberFormat) DecodeUint(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("Failed to parse number: empty field: %w", ErrFormat)
	}

	if f == FormatHex {
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("Failed to parse hex number '%s': %w", s, ErrFormat)
		}

		return uint32(v), nil
	}

	fv, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("Failed to parse decimal number '%s': %w", s, ErrFormat)
	}

	rounded := math.Floor(fv + 0.5)
	if rounded < 0 || rounded > math.MaxUint32 || math.IsNaN(rounded) {
		return 0, fmt.Errorf("Failed to parse decimal number '%s', out of range: %w", s, ErrFormat)
	}

	return uint32(rounded), nil
}

// EncodeValue renders a data value. Integer datatypes only accept whole
// numbers within their range in both formats; in hex mode the value is then
// packed to the exact width of d.
func (f NumberFormat) EncodeValue(v Value, d Datatype) (string, error) {
	if f == FormatHex {
		bits, err := v.Bits(d)
		if err != nil {
			return "", err
		}

		return compactHex(bits), nil
	}

	if !d.IsFloat() {
		i, err := v.Integer(d)
		if err != nil {
			return "", err
		}

		return strconv.FormatInt(i, 10), nil
	}

	if !v.IsFloat() {
		return strconv.FormatInt(v.Int(), 10), nil
	}

	fv := v.Float()
	if math.IsInf(fv, 0) || math.IsNaN(fv) {
		return "", fmt.Errorf("Failed to encode %s, not a finite number: %w", v, ErrConfig)
	}

	return formatDecimal(fv, 32), nil
}

// DecodeValue parses a data value. Hex values come back as raw unsigned
// integers, decimal values as floats.
func (f NumberFormat) DecodeValue(s string) (Value, error) {
	if s == "" {
		return Value{}, fmt.Errorf("Failed to parse value: empty field: %w", ErrFormat)
	}

	if f == FormatHex {
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return Value{}, fmt.Errorf("Failed to parse hex value '%s': %w", s, ErrFormat)
		}

		return IntValue(int64(v)), nil
	}

	fv, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Value{}, fmt.Errorf("Failed to parse decimal value '%s': %w", s, ErrFormat)
	}

	return FloatValue(fv), nil
}

// DecodeValues parses a comma separated value list.
func (f NumberFormat) DecodeValues(s string) ([]Value, error) {
	fields := strings.Split(s, ",")
	values := make([]Value, 0, len(fields))

	for _, field := range fields {
		v, err := f.DecodeValue(field)
		if err != nil {
			return nil, err
		}

		values = append(values, v)
	}

	return values, nil
}

// DecodeBytes parses a raw upstream payload. Upstream data is always hex,
// regardless of the number format.
func DecodeBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse upstream payload '%s': %w", s, ErrFormat)
	}

	return b, nil
}

// compactHex renders v as uppercase big endian hex without leading zero
// nibbles. Zero renders as "0".
func compactHex(v uint32) string {
	return strings.ToUpper(strconv.FormatUint(uint64(v), 16))
}

// formatDecimal renders the shortest decimal text of f that round trips at
// bitSize precision, without exponent and without a trailing decimal point.
func formatDecimal(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'f', -1, bitSize)

	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}

	if s == "" || s == "-" || s == "-0" {
		return "0"
	}

	return s
}
