package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/guard"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
)

// base carries what every authenticated handler needs to turn failures into
// responses. A backend 401 means the stored token is no longer accepted, so
// the whole session is wiped before redirecting to login.
type base struct {
	sessions *session.Manager
	log      zerolog.Logger
}

func newBase(sessions *session.Manager, log zerolog.Logger, component string) base {
	return base{sessions: sessions, log: log.With().Str("component", component).Logger()}
}

// page renders an HTML template with the shared layout data.
func page(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	if _, ok := data["Session"]; !ok {
		data["Session"] = middleware.GetSession(c)
	}
	c.HTML(status, name, data)
}

// failure maps service, flow and backend errors to an HTTP status and code.
func failure(err error) (int, response.ErrCode) {
	var (
		startErr  *attempt.StartError
		commitErr *attempt.CommitError
		submitErr *attempt.SubmitError
		apiErr    *backend.APIError
	)

	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized, response.ErrSessionInvalid
	case errors.Is(err, service.ErrAttemptNotFound), errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, attempt.ErrBusy):
		return http.StatusConflict, response.ErrBusy
	case errors.Is(err, attempt.ErrStaleResult), errors.Is(err, attempt.ErrNotCurrent):
		return http.StatusConflict, response.ErrStaleResult
	case errors.Is(err, attempt.ErrInvalidTransition), errors.Is(err, attempt.ErrCancelled):
		return http.StatusConflict, response.ErrInvalidTransition
	case errors.Is(err, model.ErrInvalidOption):
		return http.StatusBadRequest, response.ErrValidation
	case errors.As(err, &startErr):
		return http.StatusBadGateway, response.ErrAttemptStart
	case errors.As(err, &commitErr):
		return http.StatusBadGateway, response.ErrAnswerCommit
	case errors.As(err, &submitErr):
		return http.StatusBadGateway, response.ErrSubmit
	case errors.Is(err, service.ErrReportLoad):
		return http.StatusBadGateway, response.ErrReportLoad
	case errors.Is(err, service.ErrUnsupportedFileType):
		return http.StatusBadRequest, response.ErrUnsupportedFile
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, response.ErrFileTooLarge
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusServiceUnavailable, response.ErrBackendUnavailable
	case errors.As(err, &apiErr):
		if apiErr.StatusCode < 500 {
			return http.StatusBadRequest, response.ErrInvalidPayload
		}
		return http.StatusBadGateway, response.ErrBackendUnavailable
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// message is the text shown to the user for err. Backend validation
// messages are passed through; everything else uses the code's message.
func message(err error) string {
	_, code := failure(err)
	var apiErr *backend.APIError
	if code == response.ErrInvalidPayload && errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return response.GetMessage(code)
}

// endSession wipes the current session. Returns false if the store failed.
func (b base) endSession(c *gin.Context) bool {
	if err := b.sessions.Clear(c.Request.Context(), middleware.SessionID(c)); err != nil {
		b.log.Error().Err(err).Msg("Failed to clear session")
		return false
	}
	return true
}

func (b base) logFailure(c *gin.Context, status int, err error) {
	ev := b.log.Warn()
	if status >= http.StatusInternalServerError {
		ev = b.log.Error()
	}
	ev.Err(err).
		Str("request_id", c.GetString(response.ContextKeyRequestID)).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Msg("Request failed")
}

// failPage renders the error page for err.
func (b base) failPage(c *gin.Context, err error) {
	status, _ := failure(err)
	if status == http.StatusUnauthorized {
		b.endSession(c)
		c.Redirect(http.StatusSeeOther, guard.LoginPath)
		return
	}
	b.logFailure(c, status, err)
	page(c, status, "error.html", "Something went wrong", gin.H{"Message": message(err)})
}

// failAPI sends the JSON error envelope for err.
func (b base) failAPI(c *gin.Context, err error) {
	status, code := failure(err)
	if status == http.StatusUnauthorized {
		b.endSession(c)
		response.AbortRedirect(c, status, code, guard.LoginPath)
		return
	}
	b.logFailure(c, status, err)
	response.Fail(c, status, code)
}
