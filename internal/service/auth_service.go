package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownRole        = errors.New("account role is not supported by the portal")
	ErrDemoDisabled       = errors.New("demo login is disabled")
)

// AuthService signs users in against the backend and owns session setup.
type AuthService struct {
	cfg      *config.Config
	api      *backend.Client
	sessions *session.Manager
	log      zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, api *backend.Client, sessions *session.Manager, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		api:      api,
		sessions: sessions,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
}

// Login exchanges credentials for a token and stores it under sessionID.
func (s *AuthService) Login(ctx context.Context, sessionID string, req model.LoginRequest) (*session.Session, error) {
	tok, err := s.api.Login(ctx, req.UserName, req.Password)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	sess, err := s.sessions.Init(ctx, sessionID, tok.AccessToken, req.UserName)
	if err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}
	if !sess.Role.Valid() {
		_ = s.sessions.Clear(ctx, sessionID)
		return nil, ErrUnknownRole
	}
	return sess, nil
}

// DemoLogin stores the demo token under the chosen role without calling the backend.
func (s *AuthService) DemoLogin(ctx context.Context, sessionID string, role model.Role) (*session.Session, error) {
	if !s.cfg.DemoEnabled {
		return nil, ErrDemoDisabled
	}
	if !role.Valid() {
		return nil, ErrUnknownRole
	}
	sess, err := s.sessions.InitDemo(ctx, sessionID, role, "Demo "+role.UserType())
	if err != nil {
		return nil, fmt.Errorf("init demo session: %w", err)
	}
	s.log.Info().Str("role", string(role)).Msg("Demo session started")
	return sess, nil
}

// Logout wipes all session state for sessionID.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Clear(ctx, sessionID)
}
