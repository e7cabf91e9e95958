package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/model"
)

// Session errors.
var (
	ErrNoSession    = errors.New("no authenticated session")
	ErrInvalidToken = errors.New("session token is invalid")
)

// Session is the validated view of persisted session state.
type Session struct {
	ID       string
	UserID   string
	Role     model.Role
	UserName string
	Token    string
	// Expiry is zero for the demo token.
	Expiry time.Time
	Demo   bool
}

// Evaluate validates raw session values. A session is valid only if the token
// is present, the authenticated flag is set, and the token decodes with an
// expiry in the future (or is the demo sentinel, whose role comes from the
// stored userRole). The returned Role may be unrecognized; callers decide.
func Evaluate(values Values, decoder *TokenDecoder) (*Session, error) {
	token := values[KeyToken]
	if token == "" || values[KeyAuthenticated] != "true" {
		return nil, ErrNoSession
	}

	if decoder.IsDemo(token) {
		role, _ := model.ParseRole(values[KeyUserRole])
		return &Session{
			UserID:   values[KeyUserID],
			Role:     role,
			UserName: values[KeyUserName],
			Token:    token,
			Demo:     true,
		}, nil
	}

	claims, err := decoder.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role, _ := model.ParseRole(claims.Role)
	sess := &Session{
		UserID:   claims.Subject,
		Role:     role,
		UserName: values[KeyUserName],
		Token:    token,
	}
	if claims.ExpiresAt != nil {
		sess.Expiry = claims.ExpiresAt.Time
	}
	return sess, nil
}

// Manager is the session context object: it owns the lifecycle of persisted
// session state (Init, Refresh, Clear) and is handed to the guard and every
// authenticated call site.
type Manager struct {
	store   Store
	decoder *TokenDecoder
	ttl     time.Duration
	log     zerolog.Logger
}

// NewManager creates a Manager. ttl caps how long state is kept in the store.
func NewManager(store Store, decoder *TokenDecoder, ttl time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		decoder: decoder,
		ttl:     ttl,
		log:     log.With().Str("component", "session_manager").Logger(),
	}
}

// Decoder returns the token decoder shared with the guard.
func (m *Manager) Decoder() *TokenDecoder {
	return m.decoder
}

// Init persists a fresh session for a backend-issued token. The token must
// already be valid; nothing is written otherwise.
func (m *Manager) Init(ctx context.Context, id, token, userName string) (*Session, error) {
	claims, err := m.decoder.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role, _ := model.ParseRole(claims.Role)
	values := Values{
		KeyToken:         token,
		KeyAuthenticated: "true",
		KeyUserID:        claims.Subject,
		KeyUserRole:      string(role),
		KeyUserType:      role.UserType(),
		KeyUserName:      userName,
	}

	ttl := m.ttl
	if claims.ExpiresAt != nil {
		if untilExp := time.Until(claims.ExpiresAt.Time); untilExp < ttl {
			ttl = untilExp
		}
	}

	if err := m.store.Save(ctx, id, values, ttl); err != nil {
		return nil, err
	}

	m.log.Info().Str("user_id", claims.Subject).Str("role", string(role)).Msg("Session initialized")
	return m.evaluate(id, values)
}

// InitDemo persists a session for the demo sentinel token with the given role.
func (m *Manager) InitDemo(ctx context.Context, id string, role model.Role, userName string) (*Session, error) {
	if m.decoder.demoToken == "" {
		return nil, ErrInvalidToken
	}
	values := Values{
		KeyToken:         m.decoder.demoToken,
		KeyAuthenticated: "true",
		KeyUserID:        "demo-" + role.UserType(),
		KeyUserRole:      string(role),
		KeyUserType:      role.UserType(),
		KeyUserName:      userName,
	}
	if err := m.store.Save(ctx, id, values, m.ttl); err != nil {
		return nil, err
	}
	return m.evaluate(id, values)
}

// Raw returns the persisted values without validating them.
func (m *Manager) Raw(ctx context.Context, id string) (Values, error) {
	if id == "" {
		return Values{}, nil
	}
	return m.store.Load(ctx, id)
}

// Refresh reloads and re-validates a session. Invalid or partial state is
// wiped before the error is returned.
func (m *Manager) Refresh(ctx context.Context, id string) (*Session, error) {
	values, err := m.Raw(ctx, id)
	if errors.Is(err, ErrCorrupt) {
		if clearErr := m.Clear(ctx, id); clearErr != nil {
			m.log.Error().Err(clearErr).Msg("Failed to clear corrupt session")
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	sess, err := m.evaluate(id, values)
	if err != nil {
		if clearErr := m.Clear(ctx, id); clearErr != nil {
			m.log.Error().Err(clearErr).Msg("Failed to clear invalid session")
		}
		return nil, err
	}
	return sess, nil
}

// Clear removes every persisted key of the session at once.
func (m *Manager) Clear(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Clear(ctx, id)
}

func (m *Manager) evaluate(id string, values Values) (*Session, error) {
	sess, err := Evaluate(values, m.decoder)
	if err != nil {
		return nil, err
	}
	sess.ID = id
	return sess, nil
}
