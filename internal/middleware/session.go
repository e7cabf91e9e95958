package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextKeySessionID is the Gin context key for the browser session id.
	ContextKeySessionID = "session_id"
)

// CookieConfig describes the browser session cookie.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// SessionCookie makes sure every request carries a session id. The cookie
// only holds an opaque uuid; session values live in the session store.
func SessionCookie(cfg CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cfg.Name)
		if err != nil || uuid.Validate(id) != nil {
			id = setSessionCookie(c, cfg)
		}
		c.Set(ContextKeySessionID, id)
		c.Next()
	}
}

// RotateSessionID issues a new session id, used on login so a pre-login id
// is never promoted to an authenticated one.
func RotateSessionID(c *gin.Context, cfg CookieConfig) string {
	id := setSessionCookie(c, cfg)
	c.Set(ContextKeySessionID, id)
	return id
}

// SessionID returns the session id set by SessionCookie.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextKeySessionID)
}

func setSessionCookie(c *gin.Context, cfg CookieConfig) string {
	id := uuid.New().String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.Name, id, int(cfg.TTL/time.Second), "/", "", cfg.Secure, true)
	return id
}
