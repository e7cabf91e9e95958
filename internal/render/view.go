package render

import (
	"sort"
	"strings"
	"time"

	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/model"
)

const timeLayout = "02 Jan 2006 15:04"

// OptionView is one of the four answer choices as displayed.
type OptionView struct {
	Letter   model.Option `json:"letter"`
	Text     string       `json:"text"`
	Selected bool         `json:"selected"`
	Correct  bool         `json:"correct"`
}

// AttemptPage is the in-progress attempt screen.
type AttemptPage struct {
	AssignmentID     string       `json:"assignment_id"`
	AttemptID        string       `json:"attempt_id"`
	State            string       `json:"state"`
	QuestionID       string       `json:"question_id"`
	Number           int          `json:"number"`
	Total            int          `json:"total"`
	Prompt           string       `json:"prompt"`
	ImageURL         string       `json:"image_url"`
	Options          []OptionView `json:"options"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Points           int          `json:"points"`
	Answered         int          `json:"answered"`
	IsLast           bool         `json:"is_last"`
	Error            string       `json:"error"`
}

// SubmissionSummary is shown right after a successful submit.
type SubmissionSummary struct {
	AttemptID  string `json:"attempt_id"`
	Score      string `json:"score"`
	Answered   int    `json:"answered"`
	Total      int    `json:"total"`
	Unanswered int    `json:"unanswered"`
	Submitted  string `json:"submitted"`
	IsLate     bool   `json:"is_late"`
}

// ResultPage is the full review of a submitted attempt.
type ResultPage struct {
	AttemptID      string
	Title          string
	Score          string
	PointsEarned   int
	PointsPossible int
	Submitted      string
	IsLate         bool
	Questions      []ResultQuestion
}

// ResultQuestion is one reviewed question.
type ResultQuestion struct {
	Number       int
	Prompt       string
	ImageURL     string
	Options      []OptionView
	Skipped      bool
	IsCorrect    bool
	Points       int
	PointsEarned int
}

// ReportPage is a teacher's per-assignment report.
type ReportPage struct {
	AssignmentID   string
	Title          string
	TotalQuestions int
	Average        string
	Rows           []ReportLine
}

// ReportLine is one student in a ReportPage.
type ReportLine struct {
	StudentName string
	AttemptID   string
	Score       string
	Answered    int
	Submitted   string
	IsLate      bool
}

// HistoryLine is one past attempt on the student dashboard.
type HistoryLine struct {
	AttemptID string
	Title     string
	Score     string
	Submitted string
	IsLate    bool
}

// QuestionLine is an authored question as listed for its teacher.
type QuestionLine struct {
	Number   int
	ID       string
	Prompt   string
	ImageURL string
	Options  []OptionView
	Seconds  int
	Points   int
}

// Renderer builds page models from backend data. It holds no state besides
// the image base URL.
type Renderer struct {
	images ImageResolver
}

// New creates a Renderer.
func New(imageBaseURL string) *Renderer {
	return &Renderer{images: NewImageResolver(imageBaseURL)}
}

// ImageURL resolves an image key.
func (r *Renderer) ImageURL(key string) string {
	return r.images.URL(key)
}

// Attempt renders a controller snapshot.
func (r *Renderer) Attempt(v attempt.View) AttemptPage {
	page := AttemptPage{
		AssignmentID: v.AssignmentID,
		AttemptID:    v.AttemptID,
		State:        v.State.String(),
		Number:       v.Index + 1,
		Total:        v.Total,
		Answered:     v.Answered,
		IsLast:       v.IsLast,
	}
	if v.Err != nil {
		page.Error = v.Err.Error()
	}
	if q := v.Question; q != nil {
		page.QuestionID = q.ID
		page.Prompt = q.PromptText
		page.ImageURL = r.images.URL(q.ImageKey)
		page.Points = q.Points
		page.RemainingSeconds = v.RemainingSeconds
		page.Options = options(q.Choices, v.Selected, "")
	}
	return page
}

// Submission renders the submit response.
func (r *Renderer) Submission(attemptID string, res *model.SubmissionResult) SubmissionSummary {
	if res == nil {
		return SubmissionSummary{AttemptID: attemptID, Score: "-"}
	}
	unanswered := res.TotalQuestions - res.QuestionsAnswered
	if unanswered < 0 {
		unanswered = 0
	}
	return SubmissionSummary{
		AttemptID:  attemptID,
		Score:      Fraction(res.TotalScore).String(),
		Answered:   res.QuestionsAnswered,
		Total:      res.TotalQuestions,
		Unanswered: unanswered,
		Submitted:  formatTime(res.SubmittedAt),
		IsLate:     res.IsLate,
	}
}

// Result renders an attempt detail. Questions are always listed by order index.
func (r *Renderer) Result(d *model.AttemptDetail) ResultPage {
	questions := make([]model.AttemptDetailQuestion, len(d.Questions))
	copy(questions, d.Questions)
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})

	page := ResultPage{
		AttemptID:      d.AttemptID,
		Title:          d.AssignmentTitle,
		Score:          Percentage(d.Percentage).String(),
		PointsEarned:   d.PointsEarned,
		PointsPossible: d.PointsPossible,
		Submitted:      formatTime(d.SubmittedAt),
		IsLate:         d.IsLate,
		Questions:      make([]ResultQuestion, 0, len(questions)),
	}
	for i, q := range questions {
		page.Questions = append(page.Questions, ResultQuestion{
			Number:       i + 1,
			Prompt:       q.PromptText,
			ImageURL:     r.images.URL(q.ImageKey),
			Options:      options(q.Choices, q.ChosenOption, q.CorrectOption),
			Skipped:      q.ChosenOption == "",
			IsCorrect:    q.IsCorrect,
			Points:       q.Points,
			PointsEarned: q.PointsEarned,
		})
	}
	return page
}

// Report renders a teacher report with rows ordered by student name.
func (r *Renderer) Report(rep *model.AssignmentReport) ReportPage {
	rows := make([]model.ReportRow, len(rep.Rows))
	copy(rows, rep.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].StudentName) < strings.ToLower(rows[j].StudentName)
	})

	page := ReportPage{
		AssignmentID:   rep.AssignmentID,
		Title:          rep.AssignmentTitle,
		TotalQuestions: rep.TotalQuestions,
		Average:        Percentage(rep.AveragePercentage).String(),
		Rows:           make([]ReportLine, 0, len(rows)),
	}
	for _, row := range rows {
		line := ReportLine{
			StudentName: row.StudentName,
			AttemptID:   row.AttemptID,
			Score:       "-",
			Answered:    row.QuestionsAnswered,
			IsLate:      row.IsLate,
		}
		if row.SubmittedAt != nil {
			line.Score = Percentage(row.Percentage).String()
			line.Submitted = formatTime(*row.SubmittedAt)
		}
		page.Rows = append(page.Rows, line)
	}
	return page
}

// History renders past attempts, most recent first. Unsubmitted attempts sort last.
func (r *Renderer) History(items []model.AttemptSummary) []HistoryLine {
	sorted := make([]model.AttemptSummary, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].SubmittedAt, sorted[j].SubmittedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	lines := make([]HistoryLine, 0, len(sorted))
	for _, s := range sorted {
		line := HistoryLine{AttemptID: s.AttemptID, Title: s.AssignmentTitle, Score: "-", IsLate: s.IsLate}
		if s.SubmittedAt != nil {
			line.Score = Percentage(s.Percentage).String()
			line.Submitted = formatTime(*s.SubmittedAt)
		}
		lines = append(lines, line)
	}
	return lines
}

// Questions renders authored questions by order index, marking the correct option.
func (r *Renderer) Questions(qs []model.Question) []QuestionLine {
	sorted := make([]model.Question, len(qs))
	copy(sorted, qs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})

	lines := make([]QuestionLine, 0, len(sorted))
	for i, q := range sorted {
		lines = append(lines, QuestionLine{
			Number:   i + 1,
			ID:       q.ID,
			Prompt:   q.PromptText,
			ImageURL: r.images.URL(q.ImageKey),
			Options:  options(q.Choices, "", q.CorrectOption),
			Seconds:  q.PerQuestionSeconds,
			Points:   q.Points,
		})
	}
	return lines
}

func options(choices model.Choices, selected, correct model.Option) []OptionView {
	out := make([]OptionView, 0, len(model.AllOptions))
	for _, opt := range model.AllOptions {
		out = append(out, OptionView{
			Letter:   opt,
			Text:     choices.Text(opt),
			Selected: opt == selected,
			Correct:  opt == correct,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}
