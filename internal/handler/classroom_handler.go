package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
)

// ClassroomHandler handles classroom pages for both roles.
type ClassroomHandler struct {
	base
	classroomService  *service.ClassroomService
	assignmentService *service.AssignmentService
	dashboardService  *service.DashboardService
}

// NewClassroomHandler creates a new ClassroomHandler.
func NewClassroomHandler(
	classroomService *service.ClassroomService,
	assignmentService *service.AssignmentService,
	dashboardService *service.DashboardService,
	sessions *session.Manager,
	log zerolog.Logger,
) *ClassroomHandler {
	return &ClassroomHandler{
		base:              newBase(sessions, log, "classroom_handler"),
		classroomService:  classroomService,
		assignmentService: assignmentService,
		dashboardService:  dashboardService,
	}
}

// Show godoc
// GET /teacher/classrooms/:id and GET /student/classrooms/:id
func (h *ClassroomHandler) Show(c *gin.Context) {
	h.renderClassroom(c, http.StatusOK, gin.H{})
}

// Create godoc
// POST /teacher/classrooms
func (h *ClassroomHandler) Create(c *gin.Context) {
	sess := middleware.GetSession(c)

	var req model.CreateClassroomRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.renderDashboard(c, http.StatusBadRequest, gin.H{"Fields": fields})
		return
	}

	classroom, err := h.classroomService.Create(c.Request.Context(), sess, req)
	if err != nil {
		if status, code := failure(err); code == response.ErrInvalidPayload {
			h.renderDashboard(c, status, gin.H{"Error": message(err)})
			return
		}
		h.failPage(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/teacher/classrooms/"+classroom.ID)
}

// Enroll godoc
// POST /teacher/classrooms/:id/students
func (h *ClassroomHandler) Enroll(c *gin.Context) {
	var req model.EnrollStudentRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.renderClassroom(c, http.StatusBadRequest, gin.H{"Fields": fields})
		return
	}

	err := h.classroomService.Enroll(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req)
	if err != nil {
		if status, code := failure(err); code == response.ErrInvalidPayload || code == response.ErrNotFound {
			h.renderClassroom(c, status, gin.H{"Error": message(err)})
			return
		}
		h.failPage(c, err)
		return
	}
	h.renderClassroom(c, http.StatusOK, gin.H{"Notice": req.UserName + " was enrolled."})
}

// CreateAssignment godoc
// POST /teacher/classrooms/:id/assignments
func (h *ClassroomHandler) CreateAssignment(c *gin.Context) {
	var req model.CreateAssignmentRequest
	if fields := validator.BindForm(c, &req); fields != nil {
		h.renderClassroom(c, http.StatusBadRequest, gin.H{"Fields": fields})
		return
	}

	assignment, err := h.assignmentService.Create(c.Request.Context(), middleware.GetSession(c), c.Param("id"), req)
	if err != nil {
		if status, code := failure(err); code == response.ErrInvalidPayload {
			h.renderClassroom(c, status, gin.H{"Error": message(err)})
			return
		}
		h.failPage(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/teacher/assignments/"+assignment.ID)
}

func (h *ClassroomHandler) renderClassroom(c *gin.Context, status int, data gin.H) {
	sess := middleware.GetSession(c)
	classroom, err := h.classroomService.Get(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		h.failPage(c, err)
		return
	}
	data["Page"] = classroom
	data["IsTeacher"] = sess.Role == model.RoleTeacher
	page(c, status, "classroom.html", classroom.Classroom.Name, data)
}

func (h *ClassroomHandler) renderDashboard(c *gin.Context, status int, data gin.H) {
	dash, err := h.dashboardService.Teacher(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		h.failPage(c, err)
		return
	}
	data["Dashboard"] = dash
	page(c, status, "teacher_dashboard.html", "Dashboard", data)
}
