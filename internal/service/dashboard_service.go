package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
	"golang.org/x/sync/errgroup"
)

// TeacherDashboard is the teacher landing page data.
type TeacherDashboard struct {
	Classrooms []model.Classroom
}

// StudentDashboard is the student landing page data.
type StudentDashboard struct {
	Classrooms    []model.Classroom
	Attempts      []model.AttemptSummary
	ActiveAttempt string
}

// DashboardService assembles landing pages.
type DashboardService struct {
	api      *backend.Client
	attempts *AttemptService
	log      zerolog.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(api *backend.Client, attempts *AttemptService, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		api:      api,
		attempts: attempts,
		log:      log.With().Str("component", "dashboard_service").Logger(),
	}
}

// Teacher loads the teacher dashboard.
func (s *DashboardService) Teacher(ctx context.Context, sess *session.Session) (*TeacherDashboard, error) {
	classrooms, err := s.api.ListClassrooms(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	return &TeacherDashboard{Classrooms: classrooms}, nil
}

// Student loads classrooms, attempt history and the resumable attempt
// concurrently. A failing active-attempt lookup only hides the resume link.
func (s *DashboardService) Student(ctx context.Context, sess *session.Session) (*StudentDashboard, error) {
	data := &StudentDashboard{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		classrooms, err := s.api.ListClassrooms(gctx, sess.Token)
		data.Classrooms = classrooms
		return err
	})
	g.Go(func() error {
		attempts, err := s.attempts.History(gctx, sess)
		data.Attempts = attempts
		return err
	})
	g.Go(func() error {
		active, err := s.attempts.Active(gctx, sess)
		if err != nil {
			s.log.Warn().Err(err).Msg("Active attempt lookup failed")
			return nil
		}
		data.ActiveAttempt = active
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
