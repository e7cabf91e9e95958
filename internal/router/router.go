package router

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/guard"
	"github.com/stemsi/exstem-portal/internal/handler"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/view"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Dashboard  *handler.DashboardHandler
	Classroom  *handler.ClassroomHandler
	Assignment *handler.AssignmentHandler
	Attempt    *handler.AttemptHandler
	Report     *handler.ReportHandler
	Media      *handler.MediaHandler
	WS         *handler.WSHandler
	System     *handler.SystemHandler
}

// Dependencies are the non-handler pieces the router wires into middleware.
type Dependencies struct {
	Guard        *guard.Guard
	Cookie       middleware.CookieConfig
	LoginLimiter *middleware.RateLimiter
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(deps Dependencies, handlers *Handlers, cfg *config.Config) (*gin.Engine, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	tmpl, err := view.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	// ─── CORS ──────────────────────────────────────────────────────────
	// Only the JSON and websocket surfaces are meant for other origins.
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.AllowCredentials = len(cfg.AllowedOrigins) > 0
	corsConfig.MaxAge = 12 * time.Hour
	corsMiddleware := cors.New(corsConfig)

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Websocket upgrades must reach the handler uncompressed.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:      middleware.DefaultBrotliConfig.Quality,
		MinLength:    middleware.DefaultBrotliConfig.MinLength,
		SkipPrefixes: []string{"/ws/"},
	}))

	// Embedded assets change only with a new build (1 day).
	staticGroup := router.Group("/static")
	staticGroup.Use(middleware.CacheControl(86400))
	{
		staticGroup.StaticFS("/", view.Static())
	}

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Every route below carries the browser session cookie.
	app := router.Group("/")
	app.Use(middleware.SessionCookie(deps.Cookie))

	// ─── 1. Auth Pages (Public, Rate Limited) ──────────────────────────
	app.GET("/", middleware.RedirectIfAuthenticated(deps.Guard), handlers.Auth.Home)

	auth := app.Group("")
	auth.Use(middleware.NoStore())
	{
		auth.GET("/login", middleware.RedirectIfAuthenticated(deps.Guard), handlers.Auth.LoginPage)
		auth.POST("/login", deps.LoginLimiter.Middleware(handlers.Auth.RateLimited), handlers.Auth.Login)
		auth.POST("/login/demo", deps.LoginLimiter.Middleware(handlers.Auth.RateLimited), handlers.Auth.DemoLogin)
		auth.POST("/logout", handlers.Auth.Logout)
	}

	// ─── 2. Teacher Pages ──────────────────────────────────────────────
	teacher := app.Group("/teacher")
	teacher.Use(middleware.RequirePage(deps.Guard, model.RoleTeacher), middleware.NoStore())
	{
		teacher.GET("/dashboard", handlers.Dashboard.Teacher)
		teacher.POST("/classrooms", handlers.Classroom.Create)
		teacher.GET("/classrooms/:id", handlers.Classroom.Show)
		teacher.POST("/classrooms/:id/students", handlers.Classroom.Enroll)
		teacher.POST("/classrooms/:id/assignments", handlers.Classroom.CreateAssignment)
		teacher.GET("/assignments/:id", handlers.Assignment.TeacherShow)
		teacher.POST("/assignments/:id/questions", handlers.Assignment.CreateQuestion)
		teacher.GET("/assignments/:id/report", handlers.Report.Page)
	}

	// ─── 3. Student Pages ──────────────────────────────────────────────
	student := app.Group("/student")
	student.Use(middleware.RequirePage(deps.Guard, model.RoleStudent), middleware.NoStore())
	{
		student.GET("/dashboard", handlers.Dashboard.Student)
		student.GET("/classrooms/:id", handlers.Classroom.Show)
		student.GET("/assignments/:id", handlers.Assignment.StudentShow)
		student.POST("/assignments/:id/start", handlers.Attempt.Start)
		student.GET("/attempts/:id", handlers.Attempt.Show)
		student.POST("/attempts/:id/advance", handlers.Attempt.Advance)
		student.POST("/attempts/:id/submit", handlers.Attempt.Submit)
		student.GET("/attempts/:id/summary", handlers.Attempt.Summary)
		student.GET("/attempts/:id/result", handlers.Attempt.Result)
	}

	// ─── 4. JSON API ───────────────────────────────────────────────────
	api := app.Group("/api")
	api.Use(corsMiddleware, middleware.NoStore())
	{
		api.GET("/session", middleware.RequireAPI(deps.Guard, ""), handlers.Auth.Me)

		studentAPI := api.Group("/student")
		studentAPI.Use(middleware.RequireAPI(deps.Guard, model.RoleStudent))
		{
			studentAPI.GET("/attempts/:id", handlers.Attempt.State)
			studentAPI.POST("/attempts/:id/select", handlers.Attempt.Select)
			studentAPI.POST("/attempts/:id/advance", handlers.Attempt.AdvanceAPI)
			studentAPI.POST("/attempts/:id/submit", handlers.Attempt.SubmitAPI)
		}

		teacherAPI := api.Group("/teacher")
		teacherAPI.Use(middleware.RequireAPI(deps.Guard, model.RoleTeacher))
		{
			teacherAPI.POST("/images", handlers.Media.UploadImage)
			teacherAPI.GET("/assignments/:id/report", handlers.Report.JSON)
		}
	}

	// ─── 5. WebSocket Group (Student Session) ──────────────────────────
	ws := app.Group("/ws")
	ws.Use(corsMiddleware, middleware.RequireAPI(deps.Guard, model.RoleStudent))
	{
		ws.GET("/student/attempts/:id/timer", handlers.WS.AttemptTimerStream)
	}

	return router, nil
}
