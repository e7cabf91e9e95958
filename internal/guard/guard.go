package guard

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
)

// Route paths the guard redirects to.
const (
	LoginPath          = "/login"
	TeacherLandingPath = "/teacher/dashboard"
	StudentLandingPath = "/student/dashboard"
)

// LandingPath returns the role's home page, or the login page for an
// unrecognized role.
func LandingPath(role model.Role) string {
	switch role {
	case model.RoleTeacher:
		return TeacherLandingPath
	case model.RoleStudent:
		return StudentLandingPath
	default:
		return LoginPath
	}
}

// Decision is the outcome of checking a session against a route.
type Decision struct {
	Allow    bool
	Redirect string
	// Clear is set when the persisted session must be wiped.
	Clear   bool
	Session *session.Session
}

// Decide evaluates persisted session values against an optional required
// role ("" means any authenticated user). It never fails: every decode
// problem becomes a clear-and-redirect-to-login decision.
func Decide(values session.Values, required model.Role, decoder *session.TokenDecoder) Decision {
	sess, err := session.Evaluate(values, decoder)
	if err != nil {
		return Decision{Redirect: LoginPath, Clear: true}
	}

	if required != "" {
		want, _ := model.ParseRole(string(required))
		if sess.Role != want {
			// Send the user to their own landing page, not the required one.
			if !sess.Role.Valid() {
				return Decision{Redirect: LoginPath, Clear: true}
			}
			return Decision{Redirect: LandingPath(sess.Role), Session: sess}
		}
	}

	return Decision{Allow: true, Session: sess}
}

// Guard applies Decide to stored sessions and performs the clearing.
type Guard struct {
	sessions *session.Manager
	log      zerolog.Logger
}

// New creates a Guard over the session manager.
func New(sessions *session.Manager, log zerolog.Logger) *Guard {
	return &Guard{
		sessions: sessions,
		log:      log.With().Str("component", "session_guard").Logger(),
	}
}

// Check decides whether the session id may access a route requiring role.
func (g *Guard) Check(ctx context.Context, sessionID string, required model.Role) Decision {
	values, err := g.sessions.Raw(ctx, sessionID)
	if errors.Is(err, session.ErrCorrupt) {
		g.log.Warn().Err(err).Msg("Corrupt session wiped")
		if err := g.sessions.Clear(ctx, sessionID); err != nil {
			g.log.Error().Err(err).Msg("Session clear failed")
		}
		return Decision{Redirect: LoginPath, Clear: true}
	}
	if err != nil {
		// Store unreachable: deny, but leave the state alone.
		g.log.Error().Err(err).Msg("Session load failed")
		return Decision{Redirect: LoginPath}
	}

	d := Decide(values, required, g.sessions.Decoder())
	if d.Clear {
		if err := g.sessions.Clear(ctx, sessionID); err != nil {
			g.log.Error().Err(err).Msg("Session clear failed")
		}
	}
	if d.Session != nil {
		d.Session.ID = sessionID
	}
	return d
}
