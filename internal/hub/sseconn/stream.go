// Package sseconn adapts a Server-Sent Events response to hub.Transport.
package sseconn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrStreamClosed is returned by writes after Close.
var ErrStreamClosed = errors.New("event stream closed")

// Stream is a one-way hub.Transport. The hub keeps it alive as long as
// keep-alive comments are written successfully.
type Stream struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	onAlive func()

	mu     sync.Mutex
	closed chan struct{}
	once   sync.Once
}

// New writes the event-stream headers and flushes them.
func New(w http.ResponseWriter) (*Stream, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("streaming unsupported: %w", err)
	}
	return &Stream{w: w, rc: rc, onAlive: func() {}, closed: make(chan struct{})}, nil
}

// OnAlive registers fn to run after every successful keep-alive. Call before serving.
func (s *Stream) OnAlive(fn func()) {
	if fn != nil {
		s.onAlive = fn
	}
}

// Send writes frame as a single data event.
func (s *Stream) Send(ctx context.Context, frame []byte) error {
	return s.write(ctx, func() error {
		_, err := fmt.Fprintf(s.w, "data: %s\n\n", frame)
		return err
	})
}

// Ping writes a comment line.
func (s *Stream) Ping(ctx context.Context) error {
	if err := s.write(ctx, func() error {
		_, err := fmt.Fprint(s.w, ": ping\n\n")
		return err
	}); err != nil {
		return err
	}
	s.onAlive()
	return nil
}

// Close marks the stream closed. The response ends when the handler returns.
func (s *Stream) Close(string) error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// Done is closed by Close.
func (s *Stream) Done() <-chan struct{} { return s.closed }

func (s *Stream) write(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return ErrStreamClosed
	default:
	}

	if d, ok := ctx.Deadline(); ok {
		if err := s.rc.SetWriteDeadline(d); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	if err := fn(); err != nil {
		return err
	}
	return s.rc.Flush()
}
