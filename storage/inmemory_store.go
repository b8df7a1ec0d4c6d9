package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/luma/sci/protocol"
)

var ErrClosed = errors.New("Catalog store is closed")

// InmemoryStore keeps the catalog as a single JSON document:
//
//   {
//     "parameters": {"<name>": {"number": 26, "type": "u16"}},
//     "functions":  {"<name>": {"number": 3, "args": ["u8"], "returns": ["f32"]}}
//   }
type InmemoryStore struct {
	mu     sync.RWMutex
	values []byte

	// stop will be closed when Close() is called
	stop chan struct{}
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values: []byte(""),
		stop:   make(chan struct{}),
	}
}

func (i *InmemoryStore) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.isRunning() {
		close(i.stop)
	}

	return nil
}

func (i *InmemoryStore) Parameter(ctx context.Context, name string) (protocol.Parameter, error) {
	entry, err := i.get("parameters", name)
	if err != nil {
		return protocol.Parameter{}, err
	}

	d, err := protocol.ParseDatatype(entry.Get("type").String())
	if err != nil {
		return protocol.Parameter{}, fmt.Errorf("Failed to read parameter '%s': %w", name, err)
	}

	return protocol.Parameter{
		Number: uint32(entry.Get("number").Uint()),
		Type:   d,
	}, nil
}

func (i *InmemoryStore) Function(ctx context.Context, name string) (protocol.Function, error) {
	entry, err := i.get("functions", name)
	if err != nil {
		return protocol.Function{}, err
	}

	args, err := datatypes(entry.Get("args"))
	if err != nil {
		return protocol.Function{}, fmt.Errorf("Failed to read arguments of function '%s': %w", name, err)
	}

	returns, err := datatypes(entry.Get("returns"))
	if err != nil {
		return protocol.Function{}, fmt.Errorf("Failed to read returns of function '%s': %w", name, err)
	}

	return protocol.Function{
		Number:      uint32(entry.Get("number").Uint()),
		ArgTypes:    args,
		ReturnTypes: returns,
	}, nil
}

func (i *InmemoryStore) SetParameter(ctx context.Context, name string, p protocol.Parameter) error {
	return i.set("parameters", name, map[string]interface{}{
		"number": p.Number,
		"type":   p.Type.String(),
	})
}

func (i *InmemoryStore) SetFunction(ctx context.Context, name string, fn protocol.Function) error {
	return i.set("functions", name, map[string]interface{}{
		"number":  fn.Number,
		"args":    names(fn.ArgTypes),
		"returns": names(fn.ReturnTypes),
	})
}

func (i *InmemoryStore) Restore(values []byte) error {
	if len(values) > 0 && !gjson.ValidBytes(values) {
		return fmt.Errorf("Failed to restore catalog: invalid JSON: %w", protocol.ErrFormat)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.values = append([]byte(nil), values...)
	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.values) == 0 {
		return []byte("{}"), nil
	}

	return append([]byte(nil), i.values...), nil
}

func (i *InmemoryStore) get(section, name string) (gjson.Result, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if !i.isRunning() {
		return gjson.Result{}, ErrClosed
	}

	entry := gjson.GetBytes(i.values, path(section, name))
	if !entry.IsObject() {
		return gjson.Result{}, fmt.Errorf("Failed to find %s '%s': %w", strings.TrimSuffix(section, "s"), name, ErrNotFound)
	}

	return entry, nil
}

func (i *InmemoryStore) set(section, name string, value interface{}) (err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isRunning() {
		return ErrClosed
	}

	i.values, err = sjson.SetBytes(i.values, path(section, name), value)
	return err
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

// path builds a gjson/sjson path, escaping the path syntax characters in name.
func path(section, name string) string {
	var b strings.Builder

	b.WriteString(section)
	b.WriteByte('.')

	for _, c := range name {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}

		b.WriteRune(c)
	}

	return b.String()
}

func datatypes(list gjson.Result) ([]protocol.Datatype, error) {
	if !list.Exists() {
		return nil, nil
	}

	if !list.IsArray() {
		return nil, fmt.Errorf("Failed to read datatypes, not a list: %w", protocol.ErrFormat)
	}

	var types []protocol.Datatype

	for _, item := range list.Array() {
		d, err := protocol.ParseDatatype(item.String())
		if err != nil {
			return nil, err
		}

		types = append(types, d)
	}

	return types, nil
}

func names(types []protocol.Datatype) []string {
	out := make([]string, 0, len(types))

	for _, d := range types {
		out = append(out, d.String())
	}

	return out
}

var _ Store = (*InmemoryStore)(nil)
