package protocol

import (
	"fmt"
	"io"
	"strings"
)

// EncodeCommand renders cmd as an unframed payload:
//
//   <number><kind>[<value>,<value>,...]
func EncodeCommand(cfg Config, cmd Command) ([]byte, error) {
	if cmd.Values != nil && cmd.Types != nil && len(cmd.Values) != len(cmd.Types) {
		return nil, fmt.Errorf("Failed to encode command %d, %d values for %d types: %w",
			cmd.Number, len(cmd.Values), len(cmd.Types), ErrConfig)
	}

	if len(cmd.Values) > 0 && len(cmd.Types) == 0 {
		return nil, fmt.Errorf("Failed to encode command %d, values have no types: %w",
			cmd.Number, ErrConfig)
	}

	var b strings.Builder

	b.WriteString(cfg.Format.EncodeUint(cmd.Number))
	b.WriteByte(cmd.Kind.Char())

	for i, v := range cmd.Values {
		field, err := cfg.Format.EncodeValue(v, cmd.Types[i])
		if err != nil {
			return nil, fmt.Errorf("Failed to encode argument %d of command %d: %w", i, cmd.Number, err)
		}

		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteString(field)
	}

	return []byte(b.String()), nil
}

// WriteCommand encodes and frames cmd and writes the frame to w in one call.
func WriteCommand(w io.Writer, cfg Config, cmd Command) error {
	payload, err := EncodeCommand(cfg, cmd)
	if err != nil {
		return err
	}

	frame, err := Frame(payload, cfg.MaxFrameSize)
	if err != nil {
		return err
	}

	_, err = w.Write(frame)
	return err
}
