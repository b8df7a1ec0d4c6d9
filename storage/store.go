package storage

import (
	"context"
	"errors"

	"github.com/luma/sci/protocol"
)

var ErrNotFound = errors.New("Catalog entry not found")

// Store is a catalog of named device parameters and functions.
type Store interface {
	Parameter(ctx context.Context, name string) (protocol.Parameter, error)
	Function(ctx context.Context, name string) (protocol.Function, error)

	SetParameter(ctx context.Context, name string, p protocol.Parameter) error
	SetFunction(ctx context.Context, name string, fn protocol.Function) error

	Restore(values []byte) error
	Backup() ([]byte, error)

	Close() error
}
