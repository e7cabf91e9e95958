package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/render"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
)

// AssignmentHandler handles assignment pages and question authoring.
type AssignmentHandler struct {
	base
	assignmentService *service.AssignmentService
	questionService   *service.QuestionService
	renderer          *render.Renderer
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(
	assignmentService *service.AssignmentService,
	questionService *service.QuestionService,
	renderer *render.Renderer,
	sessions *session.Manager,
	log zerolog.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		base:              newBase(sessions, log, "assignment_handler"),
		assignmentService: assignmentService,
		questionService:   questionService,
		renderer:          renderer,
	}
}

// TeacherShow godoc
// GET /teacher/assignments/:id
// Lists the questions in order with an authoring form.
func (h *AssignmentHandler) TeacherShow(c *gin.Context) {
	h.renderTeacher(c, http.StatusOK, gin.H{})
}

// StudentShow godoc
// GET /student/assignments/:id
// The NotStarted screen: details and a Start button.
func (h *AssignmentHandler) StudentShow(c *gin.Context) {
	p, err := h.assignmentService.Get(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		h.failPage(c, err)
		return
	}
	page(c, http.StatusOK, "student_assignment.html", p.Assignment.Title, gin.H{"Page": p})
}

// CreateQuestion godoc
// POST /teacher/assignments/:id/questions
// Multipart form; the optional "image" file is validated and uploaded first.
func (h *AssignmentHandler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.renderTeacher(c, http.StatusBadRequest, gin.H{"Fields": fields})
		return
	}

	image, err := c.FormFile("image")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			h.renderTeacher(c, http.StatusBadRequest, gin.H{"Error": response.GetMessage(response.ErrInvalidPayload)})
			return
		}
		image = nil
	}

	_, err = h.questionService.Create(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req, image)
	if err != nil {
		status, code := failure(err)
		switch code {
		case response.ErrInvalidPayload, response.ErrUnsupportedFile, response.ErrFileTooLarge:
			h.renderTeacher(c, status, gin.H{"Error": message(err)})
		default:
			h.failPage(c, err)
		}
		return
	}
	c.Redirect(http.StatusSeeOther, "/teacher/assignments/"+c.Param("id"))
}

func (h *AssignmentHandler) renderTeacher(c *gin.Context, status int, data gin.H) {
	p, err := h.assignmentService.Get(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		h.failPage(c, err)
		return
	}
	data["Page"] = p
	data["Questions"] = h.renderer.Questions(p.Questions)
	page(c, status, "teacher_assignment.html", p.Assignment.Title, data)
}
