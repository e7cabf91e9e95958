package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
)

// ErrReportLoad wraps every failure to fetch an assignment report.
var ErrReportLoad = errors.New("report could not be loaded")

// ReportService loads teacher reports.
type ReportService struct {
	api *backend.Client
}

// NewReportService creates a new ReportService.
func NewReportService(api *backend.Client) *ReportService {
	return &ReportService{api: api}
}

// Assignment loads the comprehensive report for an assignment.
func (s *ReportService) Assignment(ctx context.Context, sess *session.Session, assignmentID string) (*model.AssignmentReport, error) {
	rep, err := s.api.AssignmentReport(ctx, sess.Token, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportLoad, err)
	}
	return rep, nil
}
