package service

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
)

// QuestionService handles authoring questions.
type QuestionService struct {
	api   *backend.Client
	media *MediaService
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(api *backend.Client, media *MediaService) *QuestionService {
	return &QuestionService{api: api, media: media}
}

// Create adds a question to an assignment. When image is set it is uploaded
// first and its key replaces req.ImageKey.
func (s *QuestionService) Create(ctx context.Context, sess *session.Session, assignmentID string, req model.CreateQuestionRequest, image *multipart.FileHeader) (*model.Question, error) {
	if image != nil {
		key, err := s.media.Upload(ctx, sess, image)
		if err != nil {
			return nil, err
		}
		req.ImageKey = key
	}
	req.PromptText = strings.TrimSpace(req.PromptText)
	req.CorrectOption = strings.ToUpper(req.CorrectOption)
	return s.api.CreateQuestion(ctx, sess.Token, assignmentID, req)
}
