package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/guard"
	"github.com/stemsi/exstem-portal/internal/handler"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/render"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
)

const startPayload = `{"attempt_id":"at-1","questions":[
	{"id":"q2","prompt_text":"second","option_a":"a","option_b":"b","option_c":"c","option_d":"d","per_question_seconds":30,"points":1,"order_index":2},
	{"id":"q1","prompt_text":"first","option_a":"a","option_b":"b","option_c":"c","option_d":"d","per_question_seconds":30,"points":1,"order_index":1}]}`

type fakeBackend struct {
	mu      sync.Mutex
	answers int
	token   string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		io.WriteString(w, `{"access_token":"`+f.token+`","token_type":"bearer"}`)
	case "/assignments/as-1/start":
		io.WriteString(w, startPayload)
	case "/attempts/at-1/answer":
		f.mu.Lock()
		f.answers++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	case "/attempts/at-1/submit":
		f.mu.Lock()
		n := f.answers
		f.mu.Unlock()
		fmt.Fprintf(w, `{"total_score":0.5,"questions_answered":%d,"total_questions":2,"submitted_at":"2026-01-01T00:00:00Z"}`, n)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"not found"}`)
	}
}

func studentToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "stu-1",
		"role": "student",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newTestPortal(t *testing.T) (*httptest.Server, *fakeBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()

	fb := &fakeBackend{token: studentToken(t)}
	backendSrv := httptest.NewServer(fb)
	t.Cleanup(backendSrv.Close)

	log := zerolog.Nop()
	cfg := &config.Config{
		GinMode:            gin.TestMode,
		BackendURL:         backendSrv.URL,
		ImageBaseURL:       "http://img.test",
		SessionCookie:      "portal_session",
		SessionTTL:         time.Hour,
		DemoToken:          "demo-token",
		MaxUploadBytes:     1 << 20,
		AttemptIdleTimeout: time.Hour,
		LoginRatePerMinute: 100,
	}

	sessions := session.NewManager(session.NewMemoryStore(), session.NewTokenDecoder("", cfg.DemoToken), cfg.SessionTTL, log)
	cookie := middleware.CookieConfig{Name: cfg.SessionCookie, TTL: cfg.SessionTTL}
	api := backend.NewClient(cfg.BackendURL, 5*time.Second, log)
	renderer := render.New(cfg.ImageBaseURL)
	registry := attempt.NewRegistry()

	authService := service.NewAuthService(cfg, api, sessions, log)
	attemptService := service.NewAttemptService(cfg, api, registry, nil, log)
	classroomService := service.NewClassroomService(api)
	assignmentService := service.NewAssignmentService(api, time.UTC)
	mediaService := service.NewMediaService(cfg, api)
	dashboardService := service.NewDashboardService(api, attemptService, log)

	handlers := &Handlers{
		Auth:       handler.NewAuthHandler(authService, sessions, cookie, cfg.DemoEnabled, log),
		Dashboard:  handler.NewDashboardHandler(dashboardService, renderer, sessions, log),
		Classroom:  handler.NewClassroomHandler(classroomService, assignmentService, dashboardService, sessions, log),
		Assignment: handler.NewAssignmentHandler(assignmentService, service.NewQuestionService(api, mediaService), renderer, sessions, log),
		Attempt:    handler.NewAttemptHandler(attemptService, renderer, sessions, log),
		Report:     handler.NewReportHandler(service.NewReportService(api), renderer, sessions, log),
		Media:      handler.NewMediaHandler(mediaService, renderer, sessions, log),
		WS:         handler.NewWSHandler(attemptService, sessions, log, nil),
		System:     handler.NewSystemHandler(nil, api, registry, log),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r, err := SetupRouter(Dependencies{
		Guard:        guard.New(sessions, log),
		Cookie:       cookie,
		LoginLimiter: middleware.NewRateLimiter(ctx, cfg.LoginRatePerMinute, time.Minute),
	}, handlers, cfg)
	if err != nil {
		t.Fatalf("SetupRouter: %v", err)
	}

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		registry.Sweep(0)
	})
	return srv, fb
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d, want 303: %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func decodeData(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestPortal(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var body struct {
		Status       string `json:"status"`
		Redis        string `json:"redis"`
		LiveAttempts int    `json:"live_attempts"`
	}
	decodeData(t, resp, &body)
	if body.Status != "ok" || body.Redis != "disabled" || body.LiveAttempts != 0 {
		t.Errorf("health = %+v", body)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	srv, _ := newTestPortal(t)
	browser := newBrowser(t)

	resp, err := browser.Get(srv.URL + "/teacher/dashboard")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	expectRedirect(t, resp, guard.LoginPath)

	resp, err = browser.Get(srv.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("api status = %d, want 401", resp.StatusCode)
	}
}

func TestStudentAttemptFlow(t *testing.T) {
	srv, fb := newTestPortal(t)
	browser := newBrowser(t)

	resp, err := browser.PostForm(srv.URL+"/login", url.Values{"user_name": {"alice"}, "password": {"secret"}})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	expectRedirect(t, resp, "/student/dashboard")

	// Wrong role: students may not reach teacher pages or APIs.
	resp, err = browser.Get(srv.URL + "/teacher/dashboard")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	expectRedirect(t, resp, "/student/dashboard")

	resp, err = browser.Post(srv.URL+"/api/teacher/images", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("teacher api status = %d, want 403", resp.StatusCode)
	}

	resp, err = browser.PostForm(srv.URL+"/student/assignments/as-1/start", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	expectRedirect(t, resp, "/student/attempts/at-1")

	resp, err = browser.Get(srv.URL + "/api/student/attempts/at-1")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	var state struct {
		Attempt struct {
			QuestionID string `json:"question_id"`
			Total      int    `json:"total"`
		} `json:"attempt"`
	}
	decodeData(t, resp, &state)
	if state.Attempt.QuestionID != "q1" || state.Attempt.Total != 2 {
		t.Fatalf("state = %+v", state)
	}

	resp, err = browser.Post(srv.URL+"/api/student/attempts/at-1/select", "application/json",
		strings.NewReader(`{"question_id":"q1","option":"b"}`))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select status = %d", resp.StatusCode)
	}

	resp, err = browser.Post(srv.URL+"/api/student/attempts/at-1/submit", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var submitted struct {
		Submission *struct {
			Score string `json:"score"`
		} `json:"submission"`
	}
	decodeData(t, resp, &submitted)
	if submitted.Submission == nil || submitted.Submission.Score != "50%" {
		t.Fatalf("submission = %+v", submitted.Submission)
	}
	fb.mu.Lock()
	committed := fb.answers
	fb.mu.Unlock()
	if committed != 1 {
		t.Errorf("answers committed = %d, want 1", committed)
	}

	resp, err = browser.PostForm(srv.URL+"/logout", nil)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	expectRedirect(t, resp, guard.LoginPath)

	resp, err = browser.Get(srv.URL + "/student/dashboard")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	expectRedirect(t, resp, guard.LoginPath)
}
