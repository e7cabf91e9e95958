package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
)

// ErrAttemptNotFound is returned when no live attempt matches the id and owner.
var ErrAttemptNotFound = errors.New("attempt not found")

// AttemptService runs attempt flows for students. Live controllers are kept
// in the registry; the active attempt id of each student is mirrored to redis
// when redis is configured.
type AttemptService struct {
	api          *backend.Client
	registry     *attempt.Registry
	rdb          *redis.Client
	idle         time.Duration
	tickInterval time.Duration
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService. rdb may be nil.
func NewAttemptService(cfg *config.Config, api *backend.Client, registry *attempt.Registry, rdb *redis.Client, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		api:          api,
		registry:     registry,
		rdb:          rdb,
		idle:         cfg.AttemptIdleTimeout,
		tickInterval: time.Second,
		log:          log.With().Str("component", "attempt_service").Logger(),
	}
}

// Registry exposes the live controllers, for the sweeper.
func (s *AttemptService) Registry() *attempt.Registry {
	return s.registry
}

// NewController creates a NotStarted flow bound to the session's token.
func (s *AttemptService) NewController(sess *session.Session, assignmentID string) *attempt.Controller {
	return attempt.NewController(assignmentID, s.api.ForAttempt(sess.Token), attempt.Options{
		TickInterval: s.tickInterval,
		OnComplete:   s.completion(sess.UserID),
		Logger:       s.log.With().Str("user_id", sess.UserID).Logger(),
	})
}

// Start begins a new attempt and registers its controller.
func (s *AttemptService) Start(ctx context.Context, sess *session.Session, assignmentID string) (*attempt.Controller, error) {
	ctrl := s.NewController(sess, assignmentID)
	if err := ctrl.Start(ctx); err != nil {
		ctrl.Close()
		return nil, err
	}

	attemptID := ctrl.AttemptID()
	s.registry.Put(attemptID, sess.UserID, ctrl)
	s.markActive(ctx, sess.UserID, attemptID)
	return ctrl, nil
}

// Get returns the session user's live controller for attemptID.
func (s *AttemptService) Get(sess *session.Session, attemptID string) (*attempt.Controller, error) {
	ctrl, ok := s.registry.Get(attemptID, sess.UserID)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return ctrl, nil
}

// Touch keeps a controller alive while a client is watching it.
func (s *AttemptService) Touch(attemptID string) {
	s.registry.Touch(attemptID)
}

// Select records a choice on the current question.
func (s *AttemptService) Select(sess *session.Session, attemptID, questionID, option string) (attempt.View, error) {
	ctrl, err := s.Get(sess, attemptID)
	if err != nil {
		return attempt.View{}, err
	}
	opt, err := model.ParseOption(option)
	if err != nil {
		return ctrl.Snapshot(), err
	}
	err = ctrl.Select(questionID, opt)
	return ctrl.Snapshot(), err
}

// Advance applies an optional selection sent with the request and moves on.
func (s *AttemptService) Advance(ctx context.Context, sess *session.Session, attemptID string, req model.AttemptActionRequest) (attempt.View, error) {
	ctrl, err := s.Get(sess, attemptID)
	if err != nil {
		return attempt.View{}, err
	}
	if err := applySelection(ctrl, req); err != nil {
		return ctrl.Snapshot(), err
	}
	err = ctrl.Advance(ctx)
	return ctrl.Snapshot(), err
}

// Submit applies an optional selection sent with the request and finalizes
// the attempt.
func (s *AttemptService) Submit(ctx context.Context, sess *session.Session, attemptID string, req model.AttemptActionRequest) (attempt.View, error) {
	ctrl, err := s.Get(sess, attemptID)
	if err != nil {
		return attempt.View{}, err
	}
	if err := applySelection(ctrl, req); err != nil {
		return ctrl.Snapshot(), err
	}
	err = ctrl.Submit(ctx)
	return ctrl.Snapshot(), err
}

func applySelection(ctrl *attempt.Controller, req model.AttemptActionRequest) error {
	if req.Option == "" {
		return nil
	}
	opt, err := model.ParseOption(req.Option)
	if err != nil {
		return err
	}
	return ctrl.Select(req.QuestionID, opt)
}

// Result loads the graded detail of a submitted attempt.
func (s *AttemptService) Result(ctx context.Context, sess *session.Session, attemptID string) (*model.AttemptDetail, error) {
	return s.api.AttemptResult(ctx, sess.Token, attemptID)
}

// History lists the session student's attempts.
func (s *AttemptService) History(ctx context.Context, sess *session.Session) ([]model.AttemptSummary, error) {
	return s.api.ListMyAttempts(ctx, sess.Token)
}

// Active returns the student's resumable attempt id, or "" if none. A marker
// whose controller is gone is dropped.
func (s *AttemptService) Active(ctx context.Context, sess *session.Session) (string, error) {
	if s.rdb == nil {
		return "", nil
	}

	key := config.CacheKey.StudentActiveAttemptKey(sess.UserID)
	attemptID, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get active attempt: %w", err)
	}

	ctrl, ok := s.registry.Get(attemptID, sess.UserID)
	if !ok || ctrl.State() != attempt.InProgress {
		s.rdb.Del(ctx, key)
		return "", nil
	}
	return attemptID, nil
}

// Forget closes and drops a controller, e.g. after its summary was shown.
func (s *AttemptService) Forget(sess *session.Session, attemptID string) {
	if _, ok := s.registry.Get(attemptID, sess.UserID); ok {
		s.registry.Remove(attemptID)
	}
}

func (s *AttemptService) markActive(ctx context.Context, userID, attemptID string) {
	if s.rdb == nil {
		return
	}
	key := config.CacheKey.StudentActiveAttemptKey(userID)
	if err := s.rdb.Set(ctx, key, attemptID, s.idle).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("Failed to store active attempt marker")
	}
}

func (s *AttemptService) completion(userID string) attempt.CompletionFunc {
	return func(attemptID string, result *model.SubmissionResult) {
		s.log.Info().
			Str("user_id", userID).
			Str("attempt_id", attemptID).
			Int("answered", result.QuestionsAnswered).
			Msg("Attempt completed")

		if s.rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.rdb.Del(ctx, config.CacheKey.StudentActiveAttemptKey(userID)).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to clear active attempt marker")
		}
	}
}
