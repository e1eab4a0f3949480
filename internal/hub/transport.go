package hub

import "context"

// Transport is one live client connection. Send and Ping are called from a
// single goroutine; Close may be called concurrently with both.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	Ping(ctx context.Context) error
	Close(reason string) error
}
