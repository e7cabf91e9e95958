package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/guard"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testCookie = CookieConfig{Name: "sid", TTL: time.Hour}

func newGuardedRouter(t *testing.T, store session.Store) *gin.Engine {
	t.Helper()
	sessions := session.NewManager(store, session.NewTokenDecoder("", "demo-token"), time.Hour, zerolog.Nop())
	g := guard.New(sessions, zerolog.Nop())

	r := gin.New()
	r.Use(SessionCookie(testCookie))
	r.GET("/student/dashboard", RequirePage(g, model.RoleStudent), func(c *gin.Context) {
		c.String(http.StatusOK, GetSession(c).UserID)
	})
	r.GET("/api/student/ping", RequireAPI(g, model.RoleStudent), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.GET("/login", RedirectIfAuthenticated(g), func(c *gin.Context) {
		c.String(http.StatusOK, "login")
	})
	return r
}

func demoSession(role string) session.Values {
	return session.Values{
		session.KeyToken:         "demo-token",
		session.KeyAuthenticated: "true",
		session.KeyUserID:        "u-" + role,
		session.KeyUserRole:      role,
	}
}

func request(r http.Handler, path, sid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: sid})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const sid = "5b7f3c0e-8a43-4f61-9a8b-2f1de4a0c111"

func TestRequirePageRedirects(t *testing.T) {
	store := session.NewMemoryStore()
	r := newGuardedRouter(t, store)

	w := request(r, "/student/dashboard", "")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != guard.LoginPath {
		t.Fatalf("anonymous: %d %s", w.Code, w.Header().Get("Location"))
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), "sid=") {
		t.Error("session cookie not issued")
	}

	_ = store.Save(context.Background(), sid, demoSession("TEACHER"), time.Hour)
	w = request(r, "/student/dashboard", sid)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != guard.TeacherLandingPath {
		t.Fatalf("teacher on student page: %d %s", w.Code, w.Header().Get("Location"))
	}

	_ = store.Save(context.Background(), sid, demoSession("student"), time.Hour)
	w = request(r, "/student/dashboard", sid)
	if w.Code != http.StatusOK || w.Body.String() != "u-student" {
		t.Fatalf("student: %d %s", w.Code, w.Body.String())
	}
}

func TestRequireAPIStatusCodes(t *testing.T) {
	store := session.NewMemoryStore()
	r := newGuardedRouter(t, store)

	if w := request(r, "/api/student/ping", sid); w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), `"redirect":"/login"`) {
		t.Errorf("anonymous: %d %s", w.Code, w.Body.String())
	}

	_ = store.Save(context.Background(), sid, demoSession("TEACHER"), time.Hour)
	if w := request(r, "/api/student/ping", sid); w.Code != http.StatusForbidden || !strings.Contains(w.Body.String(), "WRONG_ROLE") {
		t.Errorf("teacher: %d %s", w.Code, w.Body.String())
	}
}

func TestRedirectIfAuthenticated(t *testing.T) {
	store := session.NewMemoryStore()
	r := newGuardedRouter(t, store)

	if w := request(r, "/login", sid); w.Code != http.StatusOK {
		t.Errorf("anonymous login page: %d", w.Code)
	}
	_ = store.Save(context.Background(), sid, demoSession("STUDENT"), time.Hour)
	if w := request(r, "/login", sid); w.Code != http.StatusSeeOther || w.Header().Get("Location") != guard.StudentLandingPath {
		t.Errorf("student login page: %d %s", w.Code, w.Header().Get("Location"))
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(ctx, 2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("ip") || !rl.Allow("ip") {
		t.Fatal("first two requests rejected")
	}
	if rl.Allow("ip") {
		t.Fatal("third request allowed")
	}
	if !rl.Allow("other") {
		t.Fatal("other client limited")
	}
	now = now.Add(time.Minute)
	if !rl.Allow("ip") {
		t.Fatal("tokens not refilled")
	}
}

func TestBrotliCompressesLargeBodies(t *testing.T) {
	body := strings.Repeat("question ", 500)
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{SkipPrefixes: []string{"/ws/"}}))
	r.GET("/page", func(c *gin.Context) { c.String(http.StatusOK, body) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/ws/x", func(c *gin.Context) { c.String(http.StatusOK, body) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/page")
	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("large body not compressed")
	}
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	if err != nil || string(plain) != body {
		t.Fatalf("decompressed body mismatch: %v", err)
	}

	if w := get("/small"); w.Header().Get("Content-Encoding") != "" || w.Body.String() != "ok" {
		t.Errorf("small body: %q %q", w.Header().Get("Content-Encoding"), w.Body.String())
	}
	if w := get("/ws/x"); w.Header().Get("Content-Encoding") != "" {
		t.Error("skipped prefix was compressed")
	}
}
