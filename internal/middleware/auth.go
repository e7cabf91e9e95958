package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-portal/internal/guard"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/session"
)

const (
	// ContextKeySession is the Gin context key for the validated session.
	ContextKeySession = "session"
)

// RequirePage guards an HTML route. Denied requests are redirected with 303.
// An empty role admits any authenticated user.
func RequirePage(g *guard.Guard, role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Check(c.Request.Context(), SessionID(c), role)
		if !d.Allow {
			c.Redirect(http.StatusSeeOther, d.Redirect)
			c.Abort()
			return
		}
		c.Set(ContextKeySession, d.Session)
		c.Next()
	}
}

// RequireAPI guards a JSON or websocket route. Denied requests get a 401 (no
// valid session) or 403 (wrong role) envelope carrying the redirect path.
func RequireAPI(g *guard.Guard, role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Check(c.Request.Context(), SessionID(c), role)
		if !d.Allow {
			if d.Session == nil {
				response.AbortRedirect(c, http.StatusUnauthorized, response.ErrSessionRequired, d.Redirect)
				return
			}
			response.AbortRedirect(c, http.StatusForbidden, response.ErrWrongRole, d.Redirect)
			return
		}
		c.Set(ContextKeySession, d.Session)
		c.Next()
	}
}

// RedirectIfAuthenticated sends signed-in users from the login page to their
// landing page.
func RedirectIfAuthenticated(g *guard.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Check(c.Request.Context(), SessionID(c), "")
		if d.Allow && d.Session.Role.Valid() {
			c.Redirect(http.StatusSeeOther, guard.LandingPath(d.Session.Role))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetSession retrieves the validated session from the Gin context.
func GetSession(c *gin.Context) *session.Session {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	sess, ok := val.(*session.Session)
	if !ok {
		return nil
	}
	return sess
}
