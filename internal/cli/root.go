package cli

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/guard"
	"github.com/stemsi/exstem-portal/internal/logger"
	"github.com/stemsi/exstem-portal/internal/render"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
)

// sessionID is the single entry the terminal client keeps in its session file.
const sessionID = "cli"

var (
	backendURL  string
	sessionFile string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd(os.Stdin, os.Stdout).Execute()
}

// env is everything a command needs, built after flags are parsed.
type env struct {
	cfg      *config.Config
	log      zerolog.Logger
	sessions *session.Manager
	guard    *guard.Guard
	auth     *service.AuthService
	attempts *service.AttemptService
	renderer *render.Renderer

	in  *bufio.Reader
	raw io.Reader
	out io.Writer
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	cfg := config.Load()

	envSession := os.Getenv("CLASSROOM_SESSION_FILE")
	if envSession == "" {
		envSession = defaultSessionFile()
	}

	e := &env{cfg: cfg, raw: in, in: bufio.NewReader(in), out: out}

	cmd := &cobra.Command{
		Use:          "classroom-cli",
		Short:        "Terminal client for the ExStem classroom",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			e.setup(backendURL, sessionFile)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(out)

	cmd.PersistentFlags().StringVar(&backendURL, "backend", cfg.BackendURL, "classroom backend base URL")
	cmd.PersistentFlags().StringVar(&sessionFile, "session-file", envSession, "path to the YAML session file")

	cmd.AddCommand(newLoginCmd(e))
	cmd.AddCommand(newLogoutCmd(e))
	cmd.AddCommand(newWhoamiCmd(e))
	cmd.AddCommand(newTakeCmd(e))
	cmd.AddCommand(newResultCmd(e))
	return cmd
}

// setup wires the shared core against the file session store.
func (e *env) setup(backendURL, sessionFile string) {
	e.cfg.BackendURL = backendURL
	if e.cfg.AttemptIdleTimeout <= 0 {
		e.cfg.AttemptIdleTimeout = time.Hour
	}

	// Logs go to stderr so they never mix with prompts.
	e.log = logger.New(os.Stderr, "pretty").Level(zerolog.WarnLevel)
	validator.Setup()

	decoder := session.NewTokenDecoder(e.cfg.TokenSecret, e.cfg.DemoToken)
	e.sessions = session.NewManager(session.NewFileStore(sessionFile), decoder, e.cfg.SessionTTL, e.log)
	e.guard = guard.New(e.sessions, e.log)

	api := backend.NewClient(e.cfg.BackendURL, e.cfg.BackendTimeout, e.log)
	e.auth = service.NewAuthService(e.cfg, api, e.sessions, e.log)
	e.attempts = service.NewAttemptService(e.cfg, api, attempt.NewRegistry(), nil, e.log)
	e.renderer = render.New(e.cfg.ImageBaseURL)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".classroom-session.yaml"
	}
	return filepath.Join(dir, "exstem", "session.yaml")
}
