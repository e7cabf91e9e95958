package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/render"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
)

// AttemptHandler drives a student's attempt: HTML forms for browsers without
// scripts and a JSON API for the attempt page script.
type AttemptHandler struct {
	base
	attemptService *service.AttemptService
	renderer       *render.Renderer
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, renderer *render.Renderer, sessions *session.Manager, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		base:           newBase(sessions, log, "attempt_handler"),
		attemptService: attemptService,
		renderer:       renderer,
	}
}

func attemptPath(attemptID, suffix string) string {
	return "/student/attempts/" + attemptID + suffix
}

// Start godoc
// POST /student/assignments/:id/start
// Starts an attempt. On failure the assignment page is shown again with the
// error so the student can retry.
func (h *AttemptHandler) Start(c *gin.Context) {
	ctrl, err := h.attemptService.Start(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		status, code := failure(err)
		if status == http.StatusUnauthorized {
			h.failPage(c, err)
			return
		}
		h.logFailure(c, status, err)
		page(c, status, "error.html", "Could not start", gin.H{"Message": response.GetMessage(code)})
		return
	}
	c.Redirect(http.StatusSeeOther, attemptPath(ctrl.AttemptID(), ""))
}

// Show godoc
// GET /student/attempts/:id
func (h *AttemptHandler) Show(c *gin.Context) {
	ctrl, err := h.attemptService.Get(middleware.GetSession(c), c.Param("id"))
	if err != nil {
		h.failPage(c, err)
		return
	}
	v := ctrl.Snapshot()
	if v.State == attempt.Submitted {
		c.Redirect(http.StatusSeeOther, attemptPath(v.AttemptID, "/summary"))
		return
	}
	h.renderAttempt(c, http.StatusOK, v, "")
}

// Advance godoc
// POST /student/attempts/:id/advance
// Form fields question_id and option; option may be empty to skip.
func (h *AttemptHandler) Advance(c *gin.Context) {
	var req model.AttemptActionRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.actionFailed(c, model.ErrInvalidOption)
		return
	}
	v, err := h.attemptService.Advance(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req)
	if err != nil {
		h.renderActionError(c, v, err)
		return
	}
	c.Redirect(http.StatusSeeOther, attemptPath(v.AttemptID, ""))
}

// Submit godoc
// POST /student/attempts/:id/submit
func (h *AttemptHandler) Submit(c *gin.Context) {
	var req model.AttemptActionRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.actionFailed(c, model.ErrInvalidOption)
		return
	}
	v, err := h.attemptService.Submit(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req)
	if err != nil {
		h.renderActionError(c, v, err)
		return
	}
	c.Redirect(http.StatusSeeOther, attemptPath(v.AttemptID, "/summary"))
}

// Summary godoc
// GET /student/attempts/:id/summary
// Shows the submission result held by the finished flow. Once the flow is
// gone the full result page takes over.
func (h *AttemptHandler) Summary(c *gin.Context) {
	attemptID := c.Param("id")
	ctrl, err := h.attemptService.Get(middleware.GetSession(c), attemptID)
	if err != nil {
		c.Redirect(http.StatusSeeOther, attemptPath(attemptID, "/result"))
		return
	}
	v := ctrl.Snapshot()
	if v.State != attempt.Submitted {
		c.Redirect(http.StatusSeeOther, attemptPath(attemptID, ""))
		return
	}
	page(c, http.StatusOK, "summary.html", "Attempt submitted", gin.H{
		"Summary": h.renderer.Submission(attemptID, v.Result),
	})
}

// Result godoc
// GET /student/attempts/:id/result
func (h *AttemptHandler) Result(c *gin.Context) {
	sess := middleware.GetSession(c)
	attemptID := c.Param("id")

	detail, err := h.attemptService.Result(c.Request.Context(), sess, attemptID)
	if err != nil {
		status, code := failure(err)
		if status == http.StatusUnauthorized {
			h.failPage(c, err)
			return
		}
		h.logFailure(c, status, err)
		page(c, status, "result.html", "Result", gin.H{"Error": response.GetMessage(code)})
		return
	}

	// The flow is finished; the result page is the record from now on.
	h.attemptService.Forget(sess, attemptID)
	page(c, http.StatusOK, "result.html", detail.AssignmentTitle, gin.H{"Result": h.renderer.Result(detail)})
}

// ─── JSON API ────────────────────────────────────────────────────────

// State godoc
// GET /api/student/attempts/:id
func (h *AttemptHandler) State(c *gin.Context) {
	ctrl, err := h.attemptService.Get(middleware.GetSession(c), c.Param("id"))
	if err != nil {
		h.failAPI(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.apiView(ctrl.Snapshot()))
}

// Select godoc
// POST /api/student/attempts/:id/select
func (h *AttemptHandler) Select(c *gin.Context) {
	var req model.SelectOptionRequest
	if fields := validator.BindAny(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	v, err := h.attemptService.Select(middleware.GetSession(c), c.Param("id"), req.QuestionID, req.Option)
	if err != nil {
		h.failAPI(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.apiView(v))
}

// AdvanceAPI godoc
// POST /api/student/attempts/:id/advance
func (h *AttemptHandler) AdvanceAPI(c *gin.Context) {
	var req model.AttemptActionRequest
	if fields := validator.BindAny(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	v, err := h.attemptService.Advance(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req)
	if err != nil {
		h.failAPI(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.apiView(v))
}

// SubmitAPI godoc
// POST /api/student/attempts/:id/submit
func (h *AttemptHandler) SubmitAPI(c *gin.Context) {
	var req model.AttemptActionRequest
	if fields := validator.BindAny(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	v, err := h.attemptService.Submit(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req)
	if err != nil {
		h.failAPI(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.apiView(v))
}

// attemptState is the JSON form of a flow snapshot.
type attemptState struct {
	Attempt    render.AttemptPage        `json:"attempt"`
	Submission *render.SubmissionSummary `json:"submission,omitempty"`
}

func (h *AttemptHandler) apiView(v attempt.View) attemptState {
	out := attemptState{Attempt: h.renderer.Attempt(v)}
	if v.State == attempt.Submitted {
		s := h.renderer.Submission(v.AttemptID, v.Result)
		out.Submission = &s
	}
	return out
}

func (h *AttemptHandler) renderAttempt(c *gin.Context, status int, v attempt.View, errMsg string) {
	p := h.renderer.Attempt(v)
	if errMsg != "" {
		p.Error = errMsg
	}
	data := gin.H{"Attempt": p}
	if p.Error != "" {
		data["Error"] = p.Error
	}
	page(c, status, "attempt.html", "Attempt", data)
}

// renderActionError re-renders the attempt page with the failure inline.
func (h *AttemptHandler) renderActionError(c *gin.Context, v attempt.View, err error) {
	status, _ := failure(err)
	if status == http.StatusUnauthorized || v.State != attempt.InProgress {
		h.failPage(c, err)
		return
	}
	h.logFailure(c, status, err)
	h.renderAttempt(c, status, v, message(err))
}

func (h *AttemptHandler) actionFailed(c *gin.Context, err error) {
	ctrl, getErr := h.attemptService.Get(middleware.GetSession(c), c.Param("id"))
	if getErr != nil {
		h.failPage(c, getErr)
		return
	}
	h.renderActionError(c, ctrl.Snapshot(), err)
}
