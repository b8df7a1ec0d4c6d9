package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/luma/sci/protocol"
	"github.com/luma/sci/storage"
)

// Device is the command surface the gateway exposes over HTTP. It is
// satisfied by *client.Conn.
type Device interface {
	GetValue(ctx context.Context, p protocol.Parameter) (protocol.Value, error)
	SetValue(ctx context.Context, p protocol.Parameter, v protocol.Value) error
	Invoke(ctx context.Context, fn protocol.Function, params ...protocol.Value) ([]protocol.Value, error)
	RequestUpstream(ctx context.Context, fn protocol.Function, params ...protocol.Value) ([]byte, error)
}

type Options struct {
	// The host to listen on
	Host string

	// The port to listen for http requests on
	Port int

	// Reuseport sets SO_REUSEPORT on the listener
	Reuseport bool

	// DebugHTTP leaves gin in debug mode
	DebugHTTP bool

	Store  storage.Store
	Device Device

	Log *zap.Logger
}
