package cli

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeBackend struct {
	mu      sync.Mutex
	starts  int
	answers []string
	token   string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/auth/login":
		io.WriteString(w, `{"access_token":"`+f.token+`","token_type":"bearer"}`)
	case "/assignments/as-1/start":
		f.starts++
		io.WriteString(w, `{"attempt_id":"at-1","questions":[
			{"id":"q1","prompt_text":"2+2?","option_a":"3","option_b":"4","option_c":"5","option_d":"6","per_question_seconds":60,"points":1,"order_index":1},
			{"id":"q2","prompt_text":"3+3?","option_a":"6","option_b":"7","option_c":"8","option_d":"9","per_question_seconds":60,"points":1,"order_index":2}]}`)
	case "/attempts/at-1/answer":
		body, _ := io.ReadAll(r.Body)
		f.answers = append(f.answers, string(body))
	case "/attempts/at-1/submit":
		fmt.Fprintf(w, `{"total_score":0.5,"questions_answered":%d,"total_questions":2,"submitted_at":"2026-01-01T00:00:00Z"}`, len(f.answers))
	case "/attempts/at-1/result":
		io.WriteString(w, `{"attempt_id":"at-1","assignment_title":"Sums","percentage":50,"points_earned":1,"points_possible":2,
			"submitted_at":"2026-01-01T00:00:00Z","questions":[
			{"question_id":"q2","prompt_text":"3+3?","option_a":"6","option_b":"7","option_c":"8","option_d":"9","correct_option":"A","points":1,"order_index":2},
			{"question_id":"q1","prompt_text":"2+2?","option_a":"3","option_b":"4","option_c":"5","option_d":"6","chosen_option":"B","correct_option":"B","is_correct":true,"points":1,"points_earned":1,"order_index":1}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"not found"}`)
	}
}

func signedToken(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "stu-1",
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (f *fakeBackend) snapshot() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, append([]string(nil), f.answers...)
}

type harness struct {
	t           *testing.T
	backend     *fakeBackend
	url         string
	sessionFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fb := &fakeBackend{token: signedToken(t, "STUDENT")}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return &harness{
		t:           t,
		backend:     fb,
		url:         srv.URL,
		sessionFile: filepath.Join(t.TempDir(), "session.yaml"),
	}
}

// run executes one command with stdin and returns its output.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(append([]string{"--backend", h.url, "--session-file", h.sessionFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	out, err := h.run(stdin, args...)
	if err != nil {
		h.t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("alice\nsecret\n", "login")
	if !strings.Contains(out, "Signed in as alice (STUDENT)") {
		t.Fatalf("login output:\n%s", out)
	}

	out = h.mustRun("", "whoami")
	if !strings.Contains(out, "Role:    STUDENT") || !strings.Contains(out, "ID:      stu-1") {
		t.Errorf("whoami output:\n%s", out)
	}

	out = h.mustRun("", "whoami", "--role", "teacher")
	if !strings.Contains(out, "would redirect to /student/dashboard") {
		t.Errorf("whoami --role output:\n%s", out)
	}

	h.mustRun("", "logout")
	out = h.mustRun("", "whoami")
	if !strings.Contains(out, "Not signed in") {
		t.Errorf("whoami after logout:\n%s", out)
	}
}

func TestLoginValidatesInput(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run("ab\nsecret\n", "login"); err == nil {
		t.Fatal("expected validation error for short user name")
	}
}

func TestTakeRequiresStudentSession(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("y\n", "take", "as-1")
	if err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("err = %v", err)
	}
}

func TestCorruptSessionFileIsWiped(t *testing.T) {
	h := newHarness(t)
	if err := os.WriteFile(h.sessionFile, []byte("cli: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := h.mustRun("", "whoami")
	if !strings.Contains(out, "Not signed in (would redirect to /login)") {
		t.Errorf("whoami output:\n%s", out)
	}
	if _, err := os.Stat(h.sessionFile); !os.IsNotExist(err) {
		t.Fatalf("corrupt session file left in place: %v", err)
	}

	if err := os.WriteFile(h.sessionFile, []byte("cli: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := h.run("y\n", "take", "as-1")
	if err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("take err = %v", err)
	}

	if err := os.WriteFile(h.sessionFile, []byte("cli: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	out = h.mustRun("alice\nsecret\n", "login")
	if !strings.Contains(out, "Signed in as alice (STUDENT)") {
		t.Fatalf("login over corrupt file:\n%s", out)
	}
	if out := h.mustRun("", "whoami"); !strings.Contains(out, "Role:    STUDENT") {
		t.Errorf("whoami after login:\n%s", out)
	}
}

func TestTakeAndSubmit(t *testing.T) {
	h := newHarness(t)
	h.mustRun("alice\nsecret\n", "login")

	// Choose B on q1, advance, submit with q2 skipped.
	out := h.mustRun("y\nb\nn\ns\n", "take", "as-1")
	if !strings.Contains(out, "Question 1 of 2") || !strings.Contains(out, "Question 2 of 2") {
		t.Errorf("questions not shown:\n%s", out)
	}
	if !strings.Contains(out, "Submitted. Score 50%, answered 1 of 2.") {
		t.Errorf("summary missing:\n%s", out)
	}
	_, answers := h.backend.snapshot()
	if len(answers) != 1 || !strings.Contains(answers[0], `"chosen_option":"B"`) {
		t.Errorf("answers = %v", answers)
	}
}

func TestTakeAdvanceFromLastQuestionIsRejected(t *testing.T) {
	h := newHarness(t)
	h.mustRun("alice\nsecret\n", "login")

	out := h.mustRun("y\nn\nn\ns\n", "take", "as-1")
	if !strings.Contains(out, "This is the last question, submit with s.") {
		t.Errorf("expected last-question notice:\n%s", out)
	}
	if !strings.Contains(out, "answered 0 of 2") {
		t.Errorf("expected empty submission:\n%s", out)
	}
}

func TestTakeCancelBeforeStart(t *testing.T) {
	h := newHarness(t)
	h.mustRun("alice\nsecret\n", "login")

	out := h.mustRun("n\n", "take", "as-1")
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("output:\n%s", out)
	}
	if starts, _ := h.backend.snapshot(); starts != 0 {
		t.Errorf("backend start called %d times", starts)
	}
}

func TestResultListsQuestionsInOrder(t *testing.T) {
	h := newHarness(t)
	h.mustRun("alice\nsecret\n", "login")

	out := h.mustRun("", "result", "at-1")
	first := strings.Index(out, "1. 2+2?")
	second := strings.Index(out, "2. 3+3?")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("questions out of order:\n%s", out)
	}
	if !strings.Contains(out, "Score 50% (1/2 points)") {
		t.Errorf("score line missing:\n%s", out)
	}
	if !strings.Contains(out, "[skipped, 0/1]") {
		t.Errorf("skipped marker missing:\n%s", out)
	}
}
