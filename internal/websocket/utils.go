package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// ReadWait is how long a silent client is kept; clients ping to stay open.
	ReadWait = 5 * time.Minute
	// MaxMessageSize bounds a single operation envelope.
	MaxMessageSize = 16 << 10
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteSession sends the session after a successful operation.
func WriteSession(conn *websocket.Conn, data interface{}) error {
	return WriteTyped(conn, SessionResponse{Event: EventSession, Data: data})
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, body ErrorBody) error {
	return WriteTyped(conn, ErrorResponse{Event: EventError, Error: body})
}

// WritePong answers a client ping.
func WritePong(conn *websocket.Conn) error {
	return WriteTyped(conn, PongResponse{Event: EventPong})
}

// ReadMessage reads one raw text message. It sets a read deadline.
func ReadMessage(conn *websocket.Conn) ([]byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(ReadWait))
	_, data, err := conn.ReadMessage()
	return data, err
}
