package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/render"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
)

// DashboardHandler renders the role landing pages.
type DashboardHandler struct {
	base
	dashboardService *service.DashboardService
	renderer         *render.Renderer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, renderer *render.Renderer, sessions *session.Manager, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		base:             newBase(sessions, log, "dashboard_handler"),
		dashboardService: dashboardService,
		renderer:         renderer,
	}
}

// Teacher godoc
// GET /teacher/dashboard
func (h *DashboardHandler) Teacher(c *gin.Context) {
	data, err := h.dashboardService.Teacher(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		h.failPage(c, err)
		return
	}
	page(c, http.StatusOK, "teacher_dashboard.html", "Dashboard", gin.H{"Dashboard": data})
}

// Student godoc
// GET /student/dashboard
func (h *DashboardHandler) Student(c *gin.Context) {
	data, err := h.dashboardService.Student(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		h.failPage(c, err)
		return
	}
	page(c, http.StatusOK, "student_dashboard.html", "Dashboard", gin.H{
		"Dashboard": data,
		"History":   h.renderer.History(data.Attempts),
	})
}
