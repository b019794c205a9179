// Package websocket defines the realtime practice-session protocol.
package websocket

// ─── Client → Server ────────────────────────────────────────────────
//
// Every inbound message is a session operation envelope, e.g.
// {"operation":"toggle-flag","questionId":"q1","flagged":true}. "ping" is answered with
// a pong and never reaches the session.

const OperationPing = "ping"

// ─── Server → Client ────────────────────────────────────────────────

type Event string

const (
	EventSession Event = "session"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// SessionResponse carries the session after an operation was applied.
type SessionResponse struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data"`
}

// ErrorBody mirrors the HTTP error body.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorResponse struct {
	Event Event     `json:"event"`
	Error ErrorBody `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
