package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-practice/internal/response"
)

const (
	// HeaderClientID identifies an anonymous device for sample sessions.
	HeaderClientID = "X-Client-ID"
	// ContextKeyClientID is the Gin context key for the resolved client id.
	ContextKeyClientID = "client_id"
)

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// RequireClientID resolves the sample-session namespace. Authenticated users
// are keyed by user id; anonymous callers must send X-Client-ID.
func RequireClientID() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := ""
		if userID := UserID(c); userID != "" {
			clientID = "user:" + userID
		} else if header := c.GetHeader(HeaderClientID); clientIDPattern.MatchString(header) {
			clientID = "anon:" + header
		}

		if clientID == "" {
			response.AbortFail(c, http.StatusBadRequest, response.ErrClientID)
			return
		}

		c.Set(ContextKeyClientID, clientID)
		c.Next()
	}
}

// ClientID returns the id resolved by RequireClientID.
func ClientID(c *gin.Context) string {
	return c.GetString(ContextKeyClientID)
}
