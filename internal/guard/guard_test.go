package guard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
)

func token(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(exp)},
		Role:             role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestDecide(t *testing.T) {
	decoder := session.NewTokenDecoder("", "demo-token")
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		values   session.Values
		required model.Role
		allow    bool
		redirect string
		clear    bool
	}{
		{
			name:     "no token",
			values:   session.Values{session.KeyAuthenticated: "true"},
			redirect: LoginPath,
			clear:    true,
		},
		{
			name:     "no authenticated flag",
			values:   session.Values{session.KeyToken: token(t, "STUDENT", future)},
			redirect: LoginPath,
			clear:    true,
		},
		{
			name: "expired token",
			values: session.Values{
				session.KeyToken:         token(t, "STUDENT", time.Now().Add(-time.Second)),
				session.KeyAuthenticated: "true",
			},
			redirect: LoginPath,
			clear:    true,
		},
		{
			name: "garbage token",
			values: session.Values{
				session.KeyToken:         "abc.def",
				session.KeyAuthenticated: "true",
			},
			redirect: LoginPath,
			clear:    true,
		},
		{
			name: "matching role",
			values: session.Values{
				session.KeyToken:         token(t, "STUDENT", future),
				session.KeyAuthenticated: "true",
			},
			required: "student",
			allow:    true,
		},
		{
			name: "no role required",
			values: session.Values{
				session.KeyToken:         token(t, "TEACHER", future),
				session.KeyAuthenticated: "true",
			},
			allow: true,
		},
		{
			name: "wrong role goes to own landing page",
			values: session.Values{
				session.KeyToken:         token(t, "STUDENT", future),
				session.KeyAuthenticated: "true",
			},
			required: model.RoleTeacher,
			redirect: StudentLandingPath,
		},
		{
			name: "unrecognized role is wiped",
			values: session.Values{
				session.KeyToken:         token(t, "ADMIN", future),
				session.KeyAuthenticated: "true",
			},
			required: model.RoleTeacher,
			redirect: LoginPath,
			clear:    true,
		},
		{
			name: "demo teacher asked for student page",
			values: session.Values{
				session.KeyToken:         "demo-token",
				session.KeyAuthenticated: "true",
				session.KeyUserRole:      "TEACHER",
				session.KeyUserID:        "x",
			},
			required: "student",
			redirect: TeacherLandingPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.values, tt.required, decoder)
			if d.Allow != tt.allow || d.Redirect != tt.redirect || d.Clear != tt.clear {
				t.Fatalf("got allow=%v redirect=%q clear=%v, want allow=%v redirect=%q clear=%v",
					d.Allow, d.Redirect, d.Clear, tt.allow, tt.redirect, tt.clear)
			}
			if tt.allow && d.Session == nil {
				t.Fatalf("allowed decision must carry the session")
			}
		})
	}
}

func TestCheckWipesInvalidSession(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	manager := session.NewManager(store, session.NewTokenDecoder("", "demo-token"), time.Hour, zerolog.Nop())
	g := New(manager, zerolog.Nop())

	_ = store.Save(ctx, "sid", session.Values{
		session.KeyToken:    "corrupt",
		session.KeyUserRole: "STUDENT",
		session.KeyUserName: "ana",
	}, 0)

	d := g.Check(ctx, "sid", model.RoleStudent)
	if d.Allow || d.Redirect != LoginPath {
		t.Fatalf("expected redirect to login, got %+v", d)
	}
	left, _ := store.Load(ctx, "sid")
	if len(left) != 0 {
		t.Fatalf("expected every key wiped, got %v", left)
	}
}

func TestCheckKeepsSessionOnRoleMismatch(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	manager := session.NewManager(store, session.NewTokenDecoder("", "demo-token"), time.Hour, zerolog.Nop())
	g := New(manager, zerolog.Nop())

	if _, err := manager.InitDemo(ctx, "sid", model.RoleTeacher, "demo"); err != nil {
		t.Fatalf("init demo: %v", err)
	}

	d := g.Check(ctx, "sid", model.RoleStudent)
	if d.Redirect != TeacherLandingPath {
		t.Fatalf("expected teacher landing, got %+v", d)
	}
	left, _ := store.Load(ctx, "sid")
	if left[session.KeyToken] != "demo-token" {
		t.Fatalf("role mismatch must not clear the session, got %v", left)
	}
}

func TestCheckWipesCorruptSessionFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte("cli: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	manager := session.NewManager(session.NewFileStore(path), session.NewTokenDecoder("", "demo-token"), time.Hour, zerolog.Nop())
	g := New(manager, zerolog.Nop())

	d := g.Check(ctx, "cli", model.RoleStudent)
	if d.Allow || !d.Clear || d.Redirect != LoginPath {
		t.Fatalf("expected clear and redirect to login, got %+v", d)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("corrupt file should be removed, stat err = %v", err)
	}

	if _, err := manager.InitDemo(ctx, "cli", model.RoleStudent, "demo"); err != nil {
		t.Fatalf("sign in after wipe: %v", err)
	}
	if d := g.Check(ctx, "cli", model.RoleStudent); !d.Allow {
		t.Fatalf("expected allow after new sign in, got %+v", d)
	}
}

type downStore struct{ clears int }

func (s *downStore) Load(context.Context, string) (session.Values, error) {
	return nil, errors.New("connection refused")
}

func (s *downStore) Save(context.Context, string, session.Values, time.Duration) error {
	return errors.New("connection refused")
}

func (s *downStore) Clear(context.Context, string) error {
	s.clears++
	return nil
}

func TestCheckLeavesSessionWhenStoreUnreachable(t *testing.T) {
	store := &downStore{}
	manager := session.NewManager(store, session.NewTokenDecoder("", "demo-token"), time.Hour, zerolog.Nop())
	g := New(manager, zerolog.Nop())

	d := g.Check(context.Background(), "sid", model.RoleStudent)
	if d.Allow || d.Clear || d.Session != nil || d.Redirect != LoginPath {
		t.Fatalf("expected plain deny, got %+v", d)
	}
	if store.clears != 0 {
		t.Fatalf("unreachable store must not be cleared, clears = %d", store.clears)
	}
}
