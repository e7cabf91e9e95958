package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
)

const startPayload = `{"attempt_id":"at-1","questions":[
	{"id":"q2","prompt_text":"second","option_a":"a","option_b":"b","option_c":"c","option_d":"d","per_question_seconds":30,"points":1,"order_index":2},
	{"id":"q1","prompt_text":"first","option_a":"a","option_b":"b","option_c":"c","option_d":"d","per_question_seconds":30,"points":1,"order_index":1}]}`

type fakeBackend struct {
	mu      sync.Mutex
	answers []string
}

func (f *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/assignments/as-1/start":
			io.WriteString(w, startPayload)
		case r.URL.Path == "/attempts/at-1/answer":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.answers = append(f.answers, string(body))
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/attempts/at-1/submit":
			f.mu.Lock()
			n := len(f.answers)
			f.mu.Unlock()
			fmt.Fprintf(w, `{"total_score":%v,"questions_answered":%d,"total_questions":2,"submitted_at":"2026-01-01T00:00:00Z"}`, float64(n)/2, n)
		case r.URL.Path == "/assignments/as-9/report":
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, `{"detail":"grading offline"}`)
		case r.URL.Path == "/auth/login":
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"bad password"}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestAPI(t *testing.T) (*backend.Client, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, 5*time.Second, zerolog.Nop()), fb
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

func studentSession() *session.Session {
	return &session.Session{ID: "sid", UserID: "stu-1", Role: model.RoleStudent, Token: "tok"}
}

func TestAttemptServiceFlow(t *testing.T) {
	api, fb := newTestAPI(t)
	rdb, mr := newTestRedis(t)
	cfg := &config.Config{AttemptIdleTimeout: 30 * time.Minute}
	svc := NewAttemptService(cfg, api, attempt.NewRegistry(), rdb, zerolog.Nop())
	sess := studentSession()
	ctx := context.Background()

	ctrl, err := svc.Start(ctx, sess, "as-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if v := ctrl.Snapshot(); v.Question.ID != "q1" {
		t.Fatalf("first question = %s, want q1", v.Question.ID)
	}

	got, _ := mr.Get(config.CacheKey.StudentActiveAttemptKey("stu-1"))
	if got != "at-1" {
		t.Errorf("active marker = %q, want at-1", got)
	}
	if active, err := svc.Active(ctx, sess); err != nil || active != "at-1" {
		t.Errorf("Active() = %q, %v", active, err)
	}

	other := &session.Session{UserID: "stu-2", Token: "tok"}
	if _, err := svc.Get(other, "at-1"); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("other student Get = %v, want ErrAttemptNotFound", err)
	}

	if _, err := svc.Select(sess, "at-1", "q1", "b"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if v, err := svc.Advance(ctx, sess, "at-1", model.AttemptActionRequest{}); err != nil || v.Index != 1 {
		t.Fatalf("Advance: index=%d err=%v", v.Index, err)
	}

	v, err := svc.Submit(ctx, sess, "at-1", model.AttemptActionRequest{QuestionID: "q2", Option: "D"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if v.State != attempt.Submitted || v.Result.QuestionsAnswered != 2 {
		t.Errorf("view = %+v", v)
	}
	if len(fb.answers) != 2 || !strings.Contains(fb.answers[0], `"chosen_option":"B"`) {
		t.Errorf("answers = %v", fb.answers)
	}
	if mr.Exists(config.CacheKey.StudentActiveAttemptKey("stu-1")) {
		t.Error("active marker not cleared after submit")
	}

	svc.Forget(sess, "at-1")
	if svc.Registry().Len() != 0 {
		t.Error("controller not removed by Forget")
	}
}

func TestAttemptServiceSelectRejectsBadOption(t *testing.T) {
	api, _ := newTestAPI(t)
	svc := NewAttemptService(&config.Config{}, api, attempt.NewRegistry(), nil, zerolog.Nop())
	sess := studentSession()

	if _, err := svc.Start(context.Background(), sess, "as-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { svc.Forget(sess, "at-1") })

	if _, err := svc.Select(sess, "at-1", "q1", "E"); !errors.Is(err, model.ErrInvalidOption) {
		t.Errorf("Select(E) = %v", err)
	}
	if active, err := svc.Active(context.Background(), sess); err != nil || active != "" {
		t.Errorf("Active() without redis = %q, %v", active, err)
	}
}

func TestReportServiceWrapsFailure(t *testing.T) {
	api, _ := newTestAPI(t)
	svc := NewReportService(api)

	_, err := svc.Assignment(context.Background(), &session.Session{Token: "tok"}, "as-9")
	var apiErr *backend.APIError
	if !errors.Is(err, ErrReportLoad) || !errors.As(err, &apiErr) || apiErr.Detail != "grading offline" {
		t.Fatalf("err = %v", err)
	}
}

func TestAuthServiceLogin(t *testing.T) {
	api, _ := newTestAPI(t)
	decoder := session.NewTokenDecoder("", "demo-token")
	sessions := session.NewManager(session.NewMemoryStore(), decoder, time.Hour, zerolog.Nop())

	svc := NewAuthService(&config.Config{}, api, sessions, zerolog.Nop())
	if _, err := svc.Login(context.Background(), "sid", model.LoginRequest{UserName: "ani", Password: "nope"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.DemoLogin(context.Background(), "sid", model.RoleTeacher); !errors.Is(err, ErrDemoDisabled) {
		t.Errorf("DemoLogin disabled = %v", err)
	}

	svc = NewAuthService(&config.Config{DemoEnabled: true}, api, sessions, zerolog.Nop())
	sess, err := svc.DemoLogin(context.Background(), "sid", model.RoleTeacher)
	if err != nil || sess.Role != model.RoleTeacher || !sess.Demo {
		t.Fatalf("DemoLogin = %+v, %v", sess, err)
	}
	if err := svc.Logout(context.Background(), "sid"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := sessions.Refresh(context.Background(), "sid"); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("Refresh after logout = %v", err)
	}
}

func TestAuthServiceRejectsUnknownRole(t *testing.T) {
	claims := session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Role:             "ADMIN",
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"bearer"}`, token)
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	sessions := session.NewManager(store, session.NewTokenDecoder("", ""), time.Hour, zerolog.Nop())
	svc := NewAuthService(&config.Config{}, backend.NewClient(srv.URL, time.Second, zerolog.Nop()), sessions, zerolog.Nop())

	if _, err := svc.Login(context.Background(), "sid", model.LoginRequest{UserName: "x", Password: "pass"}); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("Login = %v, want ErrUnknownRole", err)
	}
	if values, _ := store.Load(context.Background(), "sid"); len(values) != 0 {
		t.Errorf("session left behind: %v", values)
	}
}

func TestMediaServiceValidate(t *testing.T) {
	svc := NewMediaService(&config.Config{MaxUploadBytes: 1024}, nil)

	header := func(contentType string, size int64) *multipart.FileHeader {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Type", contentType)
		return &multipart.FileHeader{Filename: "x", Header: h, Size: size}
	}

	if ext, err := svc.Validate(header("image/png", 100)); err != nil || ext != ".png" {
		t.Errorf("png = %q, %v", ext, err)
	}
	if _, err := svc.Validate(header("application/pdf", 100)); !errors.Is(err, ErrUnsupportedFileType) {
		t.Errorf("pdf = %v", err)
	}
	if _, err := svc.Validate(header("image/jpeg", 4096)); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("large = %v", err)
	}
}
