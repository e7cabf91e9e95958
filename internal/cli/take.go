package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/view"
)

const takeHelp = "[A-D] choose, n next, s submit, q quit"

func newTakeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "take <assignment-id>",
		Short: "Take an assignment interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := e.requireRole(cmd, model.RoleStudent)
			if err != nil {
				return err
			}
			return e.take(cmd, sess, args[0])
		},
	}
}

// requireRole runs the session guard and turns a denial into an error.
func (e *env) requireRole(cmd *cobra.Command, role model.Role) (*session.Session, error) {
	d := e.guard.Check(cmd.Context(), sessionID, role)
	if !d.Allow {
		if d.Clear || d.Session == nil {
			return nil, errors.New("not signed in, run: classroom-cli login")
		}
		return nil, fmt.Errorf("signed in as %s, this command needs %s", d.Session.Role, role)
	}
	return d.Session, nil
}

func (e *env) take(cmd *cobra.Command, sess *session.Session, assignmentID string) error {
	ctx := cmd.Context()
	ctrl := e.attempts.NewController(sess, assignmentID)
	defer ctrl.Close()

	answer, err := e.prompt(fmt.Sprintf("Start assignment %s now? [Y/n] ", assignmentID))
	if err != nil {
		return err
	}
	if strings.EqualFold(answer, "n") {
		if err := ctrl.Cancel(); err != nil {
			return err
		}
		fmt.Fprintln(e.out, "Cancelled.")
		return nil
	}

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, takeHelp)

	for ctrl.State() == attempt.InProgress {
		e.printQuestion(ctrl.Snapshot())

		line, err := e.prompt("> ")
		if err != nil {
			return fmt.Errorf("attempt %s left unsubmitted: %w", ctrl.AttemptID(), err)
		}

		switch cmdKey := strings.ToLower(line); cmdKey {
		case "q":
			fmt.Fprintf(e.out, "Left attempt %s without submitting.\n", ctrl.AttemptID())
			return nil
		case "n", "":
			if err := ctrl.Advance(ctx); err != nil {
				e.printFlowError(err)
			}
		case "s":
			if err := ctrl.Submit(ctx); err != nil {
				e.printFlowError(err)
			}
		default:
			opt, err := model.ParseOption(cmdKey)
			if err != nil {
				fmt.Fprintln(e.out, takeHelp)
				continue
			}
			v := ctrl.Snapshot()
			if err := ctrl.Select(v.Question.ID, opt); err != nil {
				e.printFlowError(err)
			}
		}
	}

	v := ctrl.Snapshot()
	s := e.renderer.Submission(v.AttemptID, v.Result)
	fmt.Fprintf(e.out, "\nSubmitted. Score %s, answered %d of %d.\n", s.Score, s.Answered, s.Total)
	if s.IsLate {
		fmt.Fprintln(e.out, "Submitted after the due date.")
	}
	fmt.Fprintf(e.out, "Review it with: classroom-cli result %s\n", v.AttemptID)
	return nil
}

func (e *env) printQuestion(v attempt.View) {
	p := e.renderer.Attempt(v)
	fmt.Fprintf(e.out, "\nQuestion %d of %d  (%s left, %d answered)\n", p.Number, p.Total, view.Clock(p.RemainingSeconds), p.Answered)
	fmt.Fprintln(e.out, p.Prompt)
	if p.ImageURL != "" {
		fmt.Fprintf(e.out, "Image: %s\n", p.ImageURL)
	}
	for _, o := range p.Options {
		mark := " "
		if o.Selected {
			mark = "*"
		}
		fmt.Fprintf(e.out, " %s %s) %s\n", mark, o.Letter, o.Text)
	}
	if p.IsLast {
		fmt.Fprintln(e.out, "Last question, submit with s.")
	}
}

func (e *env) printFlowError(err error) {
	var (
		commitErr *attempt.CommitError
		submitErr *attempt.SubmitError
	)
	switch {
	case errors.Is(err, attempt.ErrLastQuestion):
		fmt.Fprintln(e.out, "This is the last question, submit with s.")
	case errors.As(err, &commitErr):
		fmt.Fprintln(e.out, "Could not save your answer, try again.")
	case errors.As(err, &submitErr):
		fmt.Fprintln(e.out, "Could not submit, try again.")
	default:
		fmt.Fprintf(e.out, "Error: %v\n", err)
	}
}
