package protocol

import (
	"fmt"
	"strings"
)

// ReadResponse unframes raw and decodes the payload, see DecodeResponse.
func ReadResponse(cfg Config, raw []byte, kind CommandKind, ongoing bool) (*Response, error) {
	payload, err := Unframe(raw)
	if err != nil {
		return nil, err
	}

	return DecodeResponse(cfg, payload, kind, ongoing)
}

// DecodeResponse parses an unframed payload that answers a request of the
// given kind. ongoing marks a continuation frame of a multi frame exchange,
// which carries only data and no designator or length. A continuation frame
// that nevertheless starts with a known designator is decoded as a header
// frame, so an ERR or NAK can end an exchange at any point.
//
// The returned Response is only built once every field has been parsed; on
// error it is nil.
func DecodeResponse(cfg Config, payload []byte, kind CommandKind, ongoing bool) (*Response, error) {
	for _, c := range payload {
		if c > 0x7F {
			return nil, fmt.Errorf("Failed to decode %q, payload is not ASCII: %w", payload, ErrFormat)
		}
	}

	text := string(payload)

	parts := strings.SplitN(text, string(kind.Char()), 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("Failed to decode '%s', missing '%c' separator: %w", text, kind.Char(), ErrFormat)
	}

	number, err := cfg.Format.DecodeUint(parts[0])
	if err != nil {
		return nil, fmt.Errorf("Failed to decode command number of '%s': %w", text, err)
	}

	var (
		fields     = strings.Split(parts[1], ";")
		designator = DesignatorNone
		raw        string
		length     uint32
		values     []Value
		upstream   []byte
	)

	known, derr := ParseDesignator(fields[0])
	header := derr == nil || (!ongoing && kind != KindUpstream)

	if header {
		raw = fields[0]
		designator = known
	}

	switch {
	case kind == KindUpstream && !header:
		if upstream, err = DecodeBytes(fields[0]); err != nil {
			return nil, err
		}

	case kind == KindInvoke:
		switch {
		case len(fields) > 2:
			if length, err = cfg.Format.DecodeUint(fields[1]); err != nil {
				return nil, fmt.Errorf("Failed to decode data length of '%s': %w", text, err)
			}

			if values, err = cfg.Format.DecodeValues(fields[2]); err != nil {
				return nil, fmt.Errorf("Failed to decode data of '%s': %w", text, err)
			}

		case !header:
			if values, err = cfg.Format.DecodeValues(fields[0]); err != nil {
				return nil, fmt.Errorf("Failed to decode continuation data of '%s': %w", text, err)
			}

		case len(fields) == 2 && designator == DesignatorErr:
			if values, err = decodeSingle(cfg, fields[1]); err != nil {
				return nil, fmt.Errorf("Failed to decode error code of '%s': %w", text, err)
			}

		case len(fields) == 2:
			if length, err = cfg.Format.DecodeUint(fields[1]); err != nil {
				return nil, fmt.Errorf("Failed to decode data length of '%s': %w", text, err)
			}
		}

	case len(fields) > 1 && (kind == KindGetVar || designator == DesignatorErr):
		if values, err = decodeSingle(cfg, fields[1]); err != nil {
			return nil, fmt.Errorf("Failed to decode value of '%s': %w", text, err)
		}
	}

	return &Response{
		Number:         number,
		Designator:     designator,
		RawDesignator:  raw,
		DeclaredLength: length,
		Values:         values,
		Upstream:       upstream,
	}, nil
}

func decodeSingle(cfg Config, field string) ([]Value, error) {
	v, err := cfg.Format.DecodeValue(field)
	if err != nil {
		return nil, err
	}

	return []Value{v}, nil
}
