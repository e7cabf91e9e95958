package service

import (
	"context"
	"strings"

	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
	"golang.org/x/sync/errgroup"
)

// ClassroomPage is a classroom with its assignments.
type ClassroomPage struct {
	Classroom   *model.Classroom
	Assignments []model.Assignment
}

// ClassroomService handles classroom operations for both roles.
type ClassroomService struct {
	api *backend.Client
}

// NewClassroomService creates a new ClassroomService.
func NewClassroomService(api *backend.Client) *ClassroomService {
	return &ClassroomService{api: api}
}

// List returns the classrooms visible to the session user.
func (s *ClassroomService) List(ctx context.Context, sess *session.Session) ([]model.Classroom, error) {
	return s.api.ListClassrooms(ctx, sess.Token)
}

// Get loads a classroom and its assignments concurrently.
func (s *ClassroomService) Get(ctx context.Context, sess *session.Session, classroomID string) (*ClassroomPage, error) {
	page := &ClassroomPage{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := s.api.GetClassroom(gctx, sess.Token, classroomID)
		page.Classroom = c
		return err
	})
	g.Go(func() error {
		a, err := s.api.ListAssignments(gctx, sess.Token, classroomID)
		page.Assignments = a
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}

// Create creates a classroom owned by the session teacher.
func (s *ClassroomService) Create(ctx context.Context, sess *session.Session, req model.CreateClassroomRequest) (*model.Classroom, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	return s.api.CreateClassroom(ctx, sess.Token, req)
}

// Enroll adds a student to a classroom by user name.
func (s *ClassroomService) Enroll(ctx context.Context, sess *session.Session, classroomID string, req model.EnrollStudentRequest) error {
	return s.api.EnrollStudent(ctx, sess.Token, classroomID, strings.TrimSpace(req.UserName))
}
