package hub

import (
	"encoding/json"
	"time"
)

// Frame types the hub emits on its own behalf.
const (
	FrameHello        = "hello"
	FramePong         = "pong"
	FrameReconnect    = "reconnect"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameError        = "error"
)

// Client frame types.
const (
	ClientPing        = "ping"
	ClientSubscribe   = "subscribe"
	ClientUnsubscribe = "unsubscribe"
)

// Envelope is every frame sent to a client. Payload is passed through untouched.
type Envelope struct {
	Type    string    `json:"type"`
	Topic   string    `json:"topic,omitempty"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// ClientFrame is a frame received from a client.
type ClientFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// HelloPayload is sent once right after the session opens.
type HelloPayload struct {
	SessionID string   `json:"session_id"`
	Topics    []string `json:"topics"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
