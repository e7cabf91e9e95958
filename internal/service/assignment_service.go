package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
	"golang.org/x/sync/errgroup"
)

// DueAtLayout is the browser datetime-local layout.
const DueAtLayout = "2006-01-02T15:04"

// AssignmentPage is an assignment with its questions ordered by order index.
type AssignmentPage struct {
	Assignment *model.Assignment
	Questions  []model.Question
}

// AssignmentService handles assignment operations.
type AssignmentService struct {
	api *backend.Client
	loc *time.Location
}

// NewAssignmentService creates a new AssignmentService. Due dates typed into
// forms are interpreted in loc.
func NewAssignmentService(api *backend.Client, loc *time.Location) *AssignmentService {
	if loc == nil {
		loc = time.Local
	}
	return &AssignmentService{api: api, loc: loc}
}

// Create creates an assignment in a classroom.
func (s *AssignmentService) Create(ctx context.Context, sess *session.Session, classroomID string, req model.CreateAssignmentRequest) (*model.Assignment, error) {
	in := model.NewAssignment{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
	}
	if req.DueAt != "" {
		due, err := time.ParseInLocation(DueAtLayout, req.DueAt, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parse due date: %w", err)
		}
		in.DueAt = &due
	}
	return s.api.CreateAssignment(ctx, sess.Token, classroomID, in)
}

// Get loads an assignment. Questions are only loaded for teachers; students
// receive theirs when an attempt starts.
func (s *AssignmentService) Get(ctx context.Context, sess *session.Session, assignmentID string) (*AssignmentPage, error) {
	if sess.Role != model.RoleTeacher {
		a, err := s.api.GetAssignment(ctx, sess.Token, assignmentID)
		if err != nil {
			return nil, err
		}
		return &AssignmentPage{Assignment: a}, nil
	}

	page := &AssignmentPage{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.api.GetAssignment(gctx, sess.Token, assignmentID)
		page.Assignment = a
		return err
	})
	g.Go(func() error {
		qs, err := s.api.ListQuestions(gctx, sess.Token, assignmentID)
		page.Questions = qs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(page.Questions, func(i, j int) bool {
		return page.Questions[i].OrderIndex < page.Questions[j].OrderIndex
	})
	return page, nil
}
