package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/metrics"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/response"
	ws "github.com/stemsi/exstem-practice/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session operations over a WebSocket. Operations on one
// connection are applied in arrival order.
type WSHandler struct {
	sessions PracticeSessions
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions PracticeSessions, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/practice/sessions/:id/stream?token=...
// Each inbound message is an operation envelope; each reply carries the
// updated session or an error.
func (h *WSHandler) SessionStream(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	sessionID := c.Param("id")
	ctx := c.Request.Context()

	// Refuse the upgrade for sessions the caller cannot see.
	if _, err := h.sessions.Get(ctx, userID, sessionID); err != nil {
		writeServiceError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(ws.MaxMessageSize)

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	wsLog := h.log.With().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Logger()
	wsLog.Info().Msg("Session stream connected")

	for {
		raw, err := ws.ReadMessage(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env model.OperationEnvelope
		if err := json.Unmarshal(raw, &env); err == nil && env.Operation == ws.OperationPing {
			if !writeOrDrop(wsLog, func() error { return ws.WritePong(conn) }) {
				return
			}
			continue
		}

		op, fields := parseOperation(raw)
		if fields != nil {
			code := response.ErrValidation
			if _, unknown := fields["operation"]; unknown {
				code = response.ErrInvalidOperation
			}
			body := ws.ErrorBody{Code: string(code), Message: response.GetMessage(code), Fields: fields}
			if !writeOrDrop(wsLog, func() error { return ws.WriteError(conn, body) }) {
				return
			}
			continue
		}

		resp, err := h.sessions.Apply(ctx, userID, sessionID, op)
		if err != nil {
			f := classify(err)
			if f.status >= http.StatusInternalServerError {
				wsLog.Error().Err(err).Str("operation", string(op.Kind())).Msg("Operation failed")
			}
			if f.message == "" {
				f.message = response.GetMessage(f.code)
			}
			body := ws.ErrorBody{Code: string(f.code), Message: f.message, Fields: f.fields}
			if !writeOrDrop(wsLog, func() error { return ws.WriteError(conn, body) }) {
				return
			}
			continue
		}

		if !writeOrDrop(wsLog, func() error { return ws.WriteSession(conn, resp) }) {
			return
		}
	}
}

// writeOrDrop runs one frame write. It reports false when the connection is
// no longer writable and the stream should end.
func writeOrDrop(log zerolog.Logger, write func() error) bool {
	if err := write(); err != nil {
		log.Warn().Err(err).Msg("Write failed")
		return false
	}
	return true
}
