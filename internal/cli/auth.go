package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/validator"
	"golang.org/x/term"
)

func newLoginCmd(e *env) *cobra.Command {
	var userName string
	var demoRole string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if demoRole != "" {
				role, ok := model.ParseRole(demoRole)
				if !ok {
					return fmt.Errorf("unknown role %q", demoRole)
				}
				sess, err := e.auth.DemoLogin(ctx, sessionID, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(e.out, "Signed in as %s (%s, demo)\n", sess.UserName, sess.Role)
				return nil
			}

			if userName == "" {
				var err error
				if userName, err = e.prompt("User name: "); err != nil {
					return err
				}
			}
			password, err := e.readPassword("Password: ")
			if err != nil {
				return err
			}

			req := model.LoginRequest{UserName: userName, Password: password}
			if err := binding.Validator.ValidateStruct(&req); err != nil {
				return fieldErrors(validator.TranslateErrors(err))
			}

			sess, err := e.auth.Login(ctx, sessionID, req)
			if err != nil {
				if errors.Is(err, service.ErrInvalidCredentials) {
					return errors.New("invalid user name or password")
				}
				return err
			}
			fmt.Fprintf(e.out, "Signed in as %s (%s)\n", sess.UserName, sess.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userName, "user", "u", "", "user name (prompted when empty)")
	cmd.Flags().StringVar(&demoRole, "demo", "", "start a demo session as TEACHER or STUDENT")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.auth.Logout(cmd.Context(), sessionID); err != nil {
				return err
			}
			fmt.Fprintln(e.out, "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Check the stored session the way the portal guard does",
		RunE: func(cmd *cobra.Command, args []string) error {
			required := model.Role("")
			if role != "" {
				r, ok := model.ParseRole(role)
				if !ok {
					return fmt.Errorf("unknown role %q", role)
				}
				required = r
			}

			d := e.guard.Check(cmd.Context(), sessionID, required)
			if !d.Allow {
				if d.Clear || d.Session == nil {
					fmt.Fprintf(e.out, "Not signed in (would redirect to %s)\n", d.Redirect)
				} else {
					fmt.Fprintf(e.out, "Signed in as %s, but not %s (would redirect to %s)\n", d.Session.Role, required, d.Redirect)
				}
				return nil
			}

			s := d.Session
			fmt.Fprintf(e.out, "User:    %s\nID:      %s\nRole:    %s\n", s.UserName, s.UserID, s.Role)
			if !s.Expiry.IsZero() {
				fmt.Fprintf(e.out, "Expires: %s\n", s.Expiry.Local().Format("02 Jan 2006 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "required role to check against")
	return cmd
}

// prompt reads one trimmed line.
func (e *env) prompt(label string) (string, error) {
	fmt.Fprint(e.out, label)
	line, err := e.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when stdin is a terminal.
func (e *env) readPassword(label string) (string, error) {
	if f, ok := e.raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(e.out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return e.prompt(label)
}

func fieldErrors(fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return errors.New(strings.Join(msgs, "; "))
}
