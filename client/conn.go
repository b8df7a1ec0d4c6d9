package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luma/sci/protocol"
)

// DefaultFrameDelay is the pause between two frames of the same exchange.
const DefaultFrameDelay = 2 * time.Millisecond

// upstreamPrealloc bounds the buffer reserved before upstream data arrives.
const upstreamPrealloc = 256

// Channel is the byte link to the device.
type Channel interface {
	io.Writer

	// Flush discards anything pending on the link before a new request.
	Flush() error

	// ReadUntil blocks until delim has been read or the read timeout
	// expires. It returns an empty slice on timeout.
	ReadUntil(delim byte) ([]byte, error)
}

type Options struct {
	Config protocol.Config

	// FrameDelay is slept between successive frames of one exchange
	FrameDelay time.Duration

	Log *zap.Logger
}

// Conn dispatches commands to a device over a Channel. Exactly one exchange,
// including all of its continuation frames, is in flight at a time; concurrent
// callers block until the current exchange completes, fails, or times out.
type Conn struct {
	ch         Channel
	cfg        protocol.Config
	frameDelay time.Duration

	mu sync.Mutex

	log *zap.Logger
}

func New(ch Channel, options Options) *Conn {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Conn{
		ch:         ch,
		cfg:        options.Config,
		frameDelay: options.FrameDelay,
		log:        log,
	}
}

// Config returns the codec configuration of the connection.
func (c *Conn) Config() protocol.Config {
	return c.cfg
}

// Invoke calls fn with params and returns its results typed per
// fn.ReturnTypes. Results spanning several frames are reassembled. ACK and
// UPS end the exchange, ERR and NAK fail it; a frame with an unknown
// designator counts as data and the exchange goes on.
func (c *Conn) Invoke(ctx context.Context, fn protocol.Function, params ...protocol.Value) ([]protocol.Value, error) {
	if err := checkArity(fn, params); err != nil {
		return nil, err
	}

	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	raw, _, err := c.invoke(fn, params)
	if err != nil {
		return nil, err
	}

	return c.convertAll(raw, fn.ReturnTypes)
}

// GetValue reads the device variable p.
func (c *Conn) GetValue(ctx context.Context, p protocol.Parameter) (protocol.Value, error) {
	if err := c.lock(ctx); err != nil {
		return protocol.Value{}, err
	}
	defer c.mu.Unlock()

	cmd := protocol.Command{Number: p.Number, Kind: protocol.KindGetVar}

	resp, err := c.exchange(cmd, false)
	if err != nil {
		return protocol.Value{}, err
	}

	if err := c.classify(cmd, resp, protocol.DesignatorAck); err != nil {
		return protocol.Value{}, err
	}

	if len(resp.Values) == 0 {
		return protocol.Value{}, fmt.Errorf("Failed to read parameter %d, response carried no value: %w",
			p.Number, protocol.ErrFormat)
	}

	return protocol.ConvertResult(c.cfg.Format, resp.Values[0], p.Type)
}

// SetValue writes v to the device variable p.
func (c *Conn) SetValue(ctx context.Context, p protocol.Parameter, v protocol.Value) error {
	if err := c.lock(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	cmd := protocol.Command{
		Number: p.Number,
		Kind:   protocol.KindSetVar,
		Values: []protocol.Value{v},
		Types:  []protocol.Datatype{p.Type},
	}

	resp, err := c.exchange(cmd, false)
	if err != nil {
		return err
	}

	return c.classify(cmd, resp, protocol.DesignatorAck)
}

// RequestUpstream calls fn, which must answer with an upstream announcement,
// and then polls the announced number of bytes from the device.
func (c *Conn) RequestUpstream(ctx context.Context, fn protocol.Function, params ...protocol.Value) ([]byte, error) {
	if err := checkArity(fn, params); err != nil {
		return nil, err
	}

	if err := c.lock(ctx); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	_, last, err := c.invoke(fn, params)
	if err != nil {
		return nil, err
	}

	if last.Designator != protocol.DesignatorUps {
		return nil, fmt.Errorf("Failed to request upstream of %d, got %q: %w",
			fn.Number, last.RawDesignator, ErrNoUpstream)
	}

	expected := last.DeclaredLength

	// The declared length is device supplied
	prealloc := upstreamPrealloc
	if expected < upstreamPrealloc {
		prealloc = int(expected)
	}

	data := make([]byte, 0, prealloc)
	cmd := protocol.Command{Number: fn.Number, Kind: protocol.KindUpstream}

	for uint32(len(data)) < expected {
		c.pace()

		resp, err := c.exchange(cmd, true)
		if err != nil {
			return nil, err
		}

		if resp.Classified() {
			return nil, c.classify(cmd, resp, protocol.DesignatorNone)
		}

		if len(resp.Upstream) == 0 {
			return nil, fmt.Errorf("Failed to request upstream of %d after %d of %d bytes: %w",
				fn.Number, len(data), expected, ErrNoProgress)
		}

		data = append(data, resp.Upstream...)
	}

	c.log.Debug("Upstream complete",
		zap.Uint32("number", fn.Number),
		zap.Int("bytes", len(data)))

	return data, nil
}

// invoke runs the command exchange of fn and returns the raw accumulated
// values together with the last response. The caller holds the lock.
func (c *Conn) invoke(fn protocol.Function, params []protocol.Value) ([]protocol.Value, *protocol.Response, error) {
	cmd := protocol.Command{
		Number: fn.Number,
		Kind:   protocol.KindInvoke,
		Values: params,
		Types:  fn.ArgTypes,
	}

	var acc []protocol.Value

	for i := 0; ; i++ {
		if i > 0 {
			c.pace()

			// Continuation requests carry no arguments
			cmd.Values, cmd.Types = nil, nil
		}

		resp, err := c.exchange(cmd, i > 0)
		if err != nil {
			return nil, nil, err
		}

		switch resp.Designator {
		case protocol.DesignatorAck, protocol.DesignatorUps:
			return acc, resp, nil

		case protocol.DesignatorErr, protocol.DesignatorNak:
			return nil, nil, c.classify(cmd, resp, protocol.DesignatorNone)
		}

		if resp.RawDesignator != "" && !resp.Classified() {
			c.log.Warn("Unknown designator, reading frame as data",
				zap.Uint32("number", cmd.Number),
				zap.String("designator", resp.RawDesignator))
		}

		acc = append(acc, resp.Values...)

		if len(acc) >= len(fn.ReturnTypes) {
			return acc, resp, nil
		}

		if len(resp.Values) == 0 {
			return nil, nil, fmt.Errorf("Failed to invoke %d after %d of %d values: %w",
				fn.Number, len(acc), len(fn.ReturnTypes), ErrNoProgress)
		}
	}
}

// exchange sends one frame and reads one frame back. The caller holds the lock.
func (c *Conn) exchange(cmd protocol.Command, ongoing bool) (*protocol.Response, error) {
	if err := c.ch.Flush(); err != nil {
		return nil, fmt.Errorf("Failed to flush channel: %w", err)
	}

	if err := protocol.WriteCommand(c.ch, c.cfg, cmd); err != nil {
		return nil, err
	}

	raw, err := c.ch.ReadUntil(protocol.ETX)
	if err != nil {
		return nil, fmt.Errorf("Failed to read response to %s %d: %w", cmd.Kind, cmd.Number, err)
	}

	if len(raw) == 0 {
		c.log.Warn("Timed out waiting for response",
			zap.Uint32("number", cmd.Number),
			zap.Stringer("kind", cmd.Kind))

		return nil, fmt.Errorf("Failed to read response to %s %d: %w", cmd.Kind, cmd.Number, ErrTimeout)
	}

	resp, err := protocol.ReadResponse(c.cfg, raw, cmd.Kind, ongoing)
	if err != nil {
		return nil, err
	}

	c.log.Debug("Exchanged frame",
		zap.Uint32("number", cmd.Number),
		zap.Stringer("kind", cmd.Kind),
		zap.Bool("ongoing", ongoing),
		zap.String("designator", resp.RawDesignator),
		zap.Int("values", len(resp.Values)))

	return resp, nil
}

// classify turns a response designator into the outcome of the exchange.
// success is the designator that ends the exchange without error.
func (c *Conn) classify(cmd protocol.Command, resp *protocol.Response, success protocol.Designator) error {
	switch {
	case success != protocol.DesignatorNone && resp.Designator == success:
		return nil

	case resp.Designator == protocol.DesignatorErr:
		code := protocol.IntValue(0)
		if len(resp.Values) > 0 {
			code = resp.Values[0]
		}

		c.log.Warn("Device reported an error",
			zap.Uint32("number", cmd.Number),
			zap.Stringer("kind", cmd.Kind),
			zap.Stringer("code", code))

		return &DeviceError{Number: cmd.Number, Kind: cmd.Kind, Code: code}

	case resp.Designator == protocol.DesignatorNak:
		c.log.Warn("Device rejected command",
			zap.Uint32("number", cmd.Number),
			zap.Stringer("kind", cmd.Kind))

		return fmt.Errorf("%s %d: %w", cmd.Kind, cmd.Number, ErrDeviceRejected)

	default:
		return fmt.Errorf("%s %d answered %q: %w", cmd.Kind, cmd.Number, resp.RawDesignator, ErrUnexpectedDesignator)
	}
}

func (c *Conn) convertAll(raw []protocol.Value, types []protocol.Datatype) ([]protocol.Value, error) {
	if len(raw) > len(types) {
		return nil, fmt.Errorf("Failed to convert %d values for %d return types: %w",
			len(raw), len(types), ErrTooManyValues)
	}

	values := make([]protocol.Value, 0, len(raw))

	for i, v := range raw {
		converted, err := protocol.ConvertResult(c.cfg.Format, v, types[i])
		if err != nil {
			return nil, fmt.Errorf("Failed to convert result %d: %w", i, err)
		}

		values = append(values, converted)
	}

	return values, nil
}

// lock acquires exclusive access to the channel. A context that is already
// done fails before and after waiting; an exchange that has started is never
// interrupted.
func (c *Conn) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()

	if err := ctx.Err(); err != nil {
		c.mu.Unlock()
		return err
	}

	return nil
}

func (c *Conn) pace() {
	if c.frameDelay > 0 {
		time.Sleep(c.frameDelay)
	}
}

func checkArity(fn protocol.Function, params []protocol.Value) error {
	if len(params) != len(fn.ArgTypes) {
		return fmt.Errorf("Failed to invoke %d, %d params for %d argument types: %w",
			fn.Number, len(params), len(fn.ArgTypes), protocol.ErrConfig)
	}

	return nil
}
