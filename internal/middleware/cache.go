package middleware

import (
	"github.com/gin-gonic/gin"
)

// Cache-Control policies used by the router.
const (
	CachePrivateNoStore = "private, no-store"
	CacheNoCache        = "no-cache"
)

// CacheControl sets the Cache-Control header on every response of the group.
func CacheControl(policy string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", policy)
		c.Next()
	}
}
