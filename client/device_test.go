package client_test

import (
	"sync"
	"time"

	"github.com/luma/sci/protocol"
)

// fakeDevice is an in-memory Channel. Every framed write is answered by
// respond; an empty answer simulates a read timeout.
type fakeDevice struct {
	mu      sync.Mutex
	respond func(req string) string
	pending [][]byte
	writes  []string

	// unframed sends answers without STX/ETX
	unframed bool

	// latency is slept on every read
	latency time.Duration
}

func newDevice(respond func(req string) string) *fakeDevice {
	return &fakeDevice{respond: respond}
}

// newScriptedDevice answers requests with replies in order, then times out.
func newScriptedDevice(replies ...string) *fakeDevice {
	var mu sync.Mutex

	return newDevice(func(string) string {
		mu.Lock()
		defer mu.Unlock()

		if len(replies) == 0 {
			return ""
		}

		reply := replies[0]
		replies = replies[1:]
		return reply
	})
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload, err := protocol.Unframe(p)
	if err != nil {
		return 0, err
	}

	req := string(payload)
	d.writes = append(d.writes, req)

	if reply := d.respond(req); reply != "" {
		if d.unframed {
			d.pending = append(d.pending, []byte(reply))
		} else {
			d.pending = append(d.pending, append(append([]byte{protocol.STX}, reply...), protocol.ETX))
		}
	}

	return len(p), nil
}

func (d *fakeDevice) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = nil
	return nil
}

func (d *fakeDevice) ReadUntil(delim byte) ([]byte, error) {
	if d.latency > 0 {
		time.Sleep(d.latency)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) == 0 {
		return []byte{}, nil
	}

	reply := d.pending[0]
	d.pending = d.pending[1:]
	return reply, nil
}

func (d *fakeDevice) Writes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.writes...)
}
