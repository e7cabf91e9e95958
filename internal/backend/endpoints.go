package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/stemsi/exstem-portal/internal/model"
)

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, userName, password string) (*model.TokenResponse, error) {
	var out model.TokenResponse
	in := map[string]string{"user_name": userName, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Classrooms ──────────────────────────────────────────────────────

func (c *Client) ListClassrooms(ctx context.Context, token string) ([]model.Classroom, error) {
	var out []model.Classroom
	if err := c.do(ctx, http.MethodGet, "/classrooms", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetClassroom(ctx context.Context, token, classroomID string) (*model.Classroom, error) {
	var out model.Classroom
	if err := c.do(ctx, http.MethodGet, "/classrooms/"+url.PathEscape(classroomID), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateClassroom(ctx context.Context, token string, req model.CreateClassroomRequest) (*model.Classroom, error) {
	var out model.Classroom
	if err := c.do(ctx, http.MethodPost, "/classrooms", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EnrollStudent(ctx context.Context, token, classroomID, userName string) error {
	path := "/classrooms/" + url.PathEscape(classroomID) + "/students"
	return c.do(ctx, http.MethodPost, path, token, model.EnrollStudentRequest{UserName: userName}, nil)
}

// ─── Assignments & questions ─────────────────────────────────────────

func (c *Client) ListAssignments(ctx context.Context, token, classroomID string) ([]model.Assignment, error) {
	var out []model.Assignment
	path := "/classrooms/" + url.PathEscape(classroomID) + "/assignments"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAssignment(ctx context.Context, token, classroomID string, in model.NewAssignment) (*model.Assignment, error) {
	var out model.Assignment
	path := "/classrooms/" + url.PathEscape(classroomID) + "/assignments"
	if err := c.do(ctx, http.MethodPost, path, token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAssignment(ctx context.Context, token, assignmentID string) (*model.Assignment, error) {
	var out model.Assignment
	if err := c.do(ctx, http.MethodGet, "/assignments/"+url.PathEscape(assignmentID), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListQuestions(ctx context.Context, token, assignmentID string) ([]model.Question, error) {
	var out []model.Question
	path := "/assignments/" + url.PathEscape(assignmentID) + "/questions"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateQuestion(ctx context.Context, token, assignmentID string, req model.CreateQuestionRequest) (*model.Question, error) {
	var out model.Question
	path := "/assignments/" + url.PathEscape(assignmentID) + "/questions"
	if err := c.do(ctx, http.MethodPost, path, token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadImage stores an image in the backend's object store and returns its key.
func (c *Client) UploadImage(ctx context.Context, token, filename, contentType string, file io.Reader) (*model.UploadedImage, error) {
	var out model.UploadedImage
	if err := c.upload(ctx, "/images", token, "file", filename, contentType, file, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Attempts ────────────────────────────────────────────────────────

func (c *Client) StartAttempt(ctx context.Context, token, assignmentID string) (*model.AttemptStart, error) {
	var out model.AttemptStart
	path := "/assignments/" + url.PathEscape(assignmentID) + "/start"
	if err := c.do(ctx, http.MethodPost, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CommitAnswer(ctx context.Context, token, attemptID string, answer model.Answer) error {
	path := "/attempts/" + url.PathEscape(attemptID) + "/answer"
	return c.do(ctx, http.MethodPost, path, token, answer, nil)
}

func (c *Client) SubmitAttempt(ctx context.Context, token, attemptID string) (*model.SubmissionResult, error) {
	var out model.SubmissionResult
	path := "/attempts/" + url.PathEscape(attemptID) + "/submit"
	if err := c.do(ctx, http.MethodPost, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AttemptResult(ctx context.Context, token, attemptID string) (*model.AttemptDetail, error) {
	var out model.AttemptDetail
	path := "/attempts/" + url.PathEscape(attemptID) + "/result"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMyAttempts(ctx context.Context, token string) ([]model.AttemptSummary, error) {
	var out []model.AttemptSummary
	if err := c.do(ctx, http.MethodGet, "/students/me/attempts", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AssignmentReport(ctx context.Context, token, assignmentID string) (*model.AssignmentReport, error) {
	var out model.AssignmentReport
	path := "/assignments/" + url.PathEscape(assignmentID) + "/report"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AttemptAPI binds a token to the three calls the attempt flow needs.
type AttemptAPI struct {
	client *Client
	token  string
}

// ForAttempt returns the attempt-flow view of the client for one session token.
func (c *Client) ForAttempt(token string) *AttemptAPI {
	return &AttemptAPI{client: c, token: token}
}

func (a *AttemptAPI) StartAttempt(ctx context.Context, assignmentID string) (*model.AttemptStart, error) {
	return a.client.StartAttempt(ctx, a.token, assignmentID)
}

func (a *AttemptAPI) CommitAnswer(ctx context.Context, attemptID string, answer model.Answer) error {
	return a.client.CommitAnswer(ctx, a.token, attemptID, answer)
}

func (a *AttemptAPI) SubmitAttempt(ctx context.Context, attemptID string) (*model.SubmissionResult, error) {
	return a.client.SubmitAttempt(ctx, a.token, attemptID)
}
