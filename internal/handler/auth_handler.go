package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/guard"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
)

// AuthHandler handles sign in and sign out.
type AuthHandler struct {
	base
	authService *service.AuthService
	cookie      middleware.CookieConfig
	demoEnabled bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, sessions *session.Manager, cookie middleware.CookieConfig, demoEnabled bool, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		base:        newBase(sessions, log, "auth_handler"),
		authService: authService,
		cookie:      cookie,
		demoEnabled: demoEnabled,
	}
}

// Home godoc
// GET /
// Anonymous visitors land on the login page; signed-in users are redirected
// earlier by RedirectIfAuthenticated.
func (h *AuthHandler) Home(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, guard.LoginPath)
}

// LoginPage godoc
// GET /login
func (h *AuthHandler) LoginPage(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, gin.H{})
}

// Login godoc
// POST /login
// Exchanges credentials with the backend and starts a fresh session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.renderLogin(c, http.StatusBadRequest, gin.H{"Fields": fields, "UserName": req.UserName})
		return
	}

	h.endSession(c)
	sid := middleware.RotateSessionID(c, h.cookie)

	sess, err := h.authService.Login(c.Request.Context(), sid, req)
	if err != nil {
		status, msg := http.StatusBadGateway, message(err)
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			status, msg = http.StatusUnauthorized, response.GetMessage(response.ErrInvalidCredentials)
		case errors.Is(err, service.ErrUnknownRole):
			status, msg = http.StatusForbidden, response.GetMessage(response.ErrWrongRole)
		default:
			h.logFailure(c, status, err)
		}
		h.renderLogin(c, status, gin.H{"Error": msg, "UserName": req.UserName})
		return
	}

	h.log.Info().Str("user_id", sess.UserID).Str("role", string(sess.Role)).Msg("User signed in")
	c.Redirect(http.StatusSeeOther, guard.LandingPath(sess.Role))
}

// DemoLogin godoc
// POST /login/demo
// Starts a demo session for the chosen role without contacting the backend.
func (h *AuthHandler) DemoLogin(c *gin.Context) {
	var req model.DemoLoginRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.renderLogin(c, http.StatusBadRequest, gin.H{"Fields": fields})
		return
	}

	h.endSession(c)
	sid := middleware.RotateSessionID(c, h.cookie)

	role, _ := model.ParseRole(req.Role)
	sess, err := h.authService.DemoLogin(c.Request.Context(), sid, role)
	if err != nil {
		if errors.Is(err, service.ErrDemoDisabled) {
			h.renderLogin(c, http.StatusForbidden, gin.H{"Error": "Demo login is not available."})
			return
		}
		h.logFailure(c, http.StatusInternalServerError, err)
		h.renderLogin(c, http.StatusInternalServerError, gin.H{"Error": response.GetMessage(response.ErrInternal)})
		return
	}

	c.Redirect(http.StatusSeeOther, guard.LandingPath(sess.Role))
}

// Logout godoc
// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.log.Error().Err(err).Msg("Logout failed to clear session")
	}
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusSeeOther, guard.LoginPath)
}

// Me godoc
// GET /api/session
// Returns the current session for script clients.
func (h *AuthHandler) Me(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrSessionRequired)
		return
	}

	var expiresAt *time.Time
	if !sess.Expiry.IsZero() {
		expiresAt = &sess.Expiry
	}
	response.Success(c, http.StatusOK, gin.H{
		"user_id":    sess.UserID,
		"user_name":  sess.UserName,
		"role":       sess.Role,
		"user_type":  sess.Role.UserType(),
		"demo":       sess.Demo,
		"expires_at": expiresAt,
		"landing":    guard.LandingPath(sess.Role),
	})
}

// RateLimited renders the login page for clients over the login rate.
func (h *AuthHandler) RateLimited(c *gin.Context) {
	h.renderLogin(c, http.StatusTooManyRequests, gin.H{"Error": response.GetMessage(response.ErrRateLimitExceeded)})
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, data gin.H) {
	data["DemoEnabled"] = h.demoEnabled
	data["Session"] = (*session.Session)(nil)
	page(c, status, "login.html", "Sign in", data)
}
