// Package wsconn adapts a gorilla WebSocket connection to hub.Transport.
package wsconn

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"delivery-dispatch/internal/hub"
)

const (
	maxFrameSize   = 4096
	controlTimeout = time.Second
)

// Upgrader returns a websocket upgrader. Origin checks are left to the gateway in front of the service.
func Upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

// Conn is a hub.Transport over a websocket.
type Conn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// New wraps ws.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes frame as a text message.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	if err := c.ws.SetWriteDeadline(deadline(ctx)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Ping writes a ping control frame. The pong arrives through ReadLoop.
func (c *Conn) Ping(ctx context.Context) error {
	return c.ws.WriteControl(websocket.PingMessage, nil, deadline(ctx))
}

// Close sends a close frame carrying reason and closes the socket.
func (c *Conn) Close(reason string) error {
	c.closeOnce.Do(func() {
		code := websocket.CloseNormalClosure
		if reason == hub.ReasonShutdown {
			code = websocket.CloseGoingAway
		}
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlTimeout))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// ReadLoop reads client frames until the socket fails or closes. onAlive runs
// on every pong; onFrame runs on every data frame. readTimeout bounds silence
// between any two inbound frames.
func (c *Conn) ReadLoop(readTimeout time.Duration, onFrame func([]byte), onAlive func()) error {
	c.ws.SetReadLimit(maxFrameSize)
	extend := func() {
		if readTimeout > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		}
	}
	extend()
	c.ws.SetPongHandler(func(string) error {
		extend()
		onAlive()
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			return err
		}
		extend()
		onFrame(data)
	}
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(controlTimeout * 5)
}
