package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/render"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
)

// ReportHandler serves teacher reports.
type ReportHandler struct {
	base
	reportService *service.ReportService
	renderer      *render.Renderer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService, renderer *render.Renderer, sessions *session.Manager, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		base:          newBase(sessions, log, "report_handler"),
		reportService: reportService,
		renderer:      renderer,
	}
}

// Page godoc
// GET /teacher/assignments/:id/report
// A load failure keeps the page and shows a retry link.
func (h *ReportHandler) Page(c *gin.Context) {
	rep, err := h.reportService.Assignment(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		status, code := failure(err)
		if status == http.StatusUnauthorized {
			h.failPage(c, err)
			return
		}
		h.logFailure(c, status, err)
		page(c, status, "report.html", "Report", gin.H{"Error": response.GetMessage(code)})
		return
	}
	page(c, http.StatusOK, "report.html", rep.AssignmentTitle, gin.H{"Report": h.renderer.Report(rep)})
}

// JSON godoc
// GET /api/teacher/assignments/:id/report
func (h *ReportHandler) JSON(c *gin.Context) {
	rep, err := h.reportService.Assignment(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		h.failAPI(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"report": rep, "view": h.renderer.Report(rep)})
}
