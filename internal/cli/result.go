package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-portal/internal/model"
)

func newResultCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "result <attempt-id>",
		Short: "Show the graded result of a submitted attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := e.requireRole(cmd, model.RoleStudent)
			if err != nil {
				return err
			}

			detail, err := e.attempts.Result(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}

			p := e.renderer.Result(detail)
			fmt.Fprintf(e.out, "%s\nScore %s (%d/%d points), submitted %s\n", p.Title, p.Score, p.PointsEarned, p.PointsPossible, p.Submitted)
			if p.IsLate {
				fmt.Fprintln(e.out, "Late submission")
			}
			for _, q := range p.Questions {
				status := "wrong"
				switch {
				case q.Skipped:
					status = "skipped"
				case q.IsCorrect:
					status = "correct"
				}
				fmt.Fprintf(e.out, "\n%d. %s [%s, %d/%d]\n", q.Number, q.Prompt, status, q.PointsEarned, q.Points)
				for _, o := range q.Options {
					mark := "  "
					switch {
					case o.Correct:
						mark = "+ "
					case o.Selected:
						mark = "x "
					}
					fmt.Fprintf(e.out, "   %s%s) %s\n", mark, o.Letter, o.Text)
				}
			}
			return nil
		},
	}
}
