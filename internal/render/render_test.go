package render

import (
	"errors"
	"testing"
	"time"

	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/model"
)

func TestPercentScales(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"fraction 0.85", Fraction(0.85).String(), "85%"},
		{"percentage 85", Percentage(85).String(), "85%"},
		{"fraction rounds", Fraction(0.678).String(), "68%"},
		{"percentage rounds", Percentage(66.6).String(), "67%"},
		{"fraction zero", Fraction(0).String(), "0%"},
		{"fraction full", Fraction(1).String(), "100%"},
		{"percentage zero", Percentage(0).String(), "0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestImageResolver(t *testing.T) {
	r := NewImageResolver("https://cdn.example.com/images/")

	tests := map[string]string{
		"":                         "",
		"q/1.png":                  "https://cdn.example.com/images/q/1.png",
		"/q/2.png":                 "https://cdn.example.com/images/q/2.png",
		"https://other.host/x.png": "https://other.host/x.png",
	}
	for key, want := range tests {
		if got := r.URL(key); got != want {
			t.Errorf("URL(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestSubmission(t *testing.T) {
	r := New("")
	s := r.Submission("att-1", &model.SubmissionResult{
		TotalScore:        0.85,
		QuestionsAnswered: 2,
		TotalQuestions:    3,
	})
	if s.Score != "85%" || s.Unanswered != 1 || s.Submitted != "" {
		t.Errorf("summary = %+v", s)
	}
}

func TestResultSortsAndResolvesOptions(t *testing.T) {
	r := New("http://img")
	detail := &model.AttemptDetail{
		AttemptID:  "att-1",
		Percentage: 85,
		Questions: []model.AttemptDetailQuestion{
			{QuestionID: "q2", PromptText: "second", OrderIndex: 2, Choices: model.Choices{"a", "b", "c", "d"}, CorrectOption: model.OptionA},
			{QuestionID: "q1", PromptText: "first", OrderIndex: 1, ImageKey: "k.png", Choices: model.Choices{"w", "x", "y", "z"}, ChosenOption: model.OptionC, CorrectOption: model.OptionC, IsCorrect: true},
		},
	}

	page := r.Result(detail)
	if page.Score != "85%" {
		t.Errorf("Score = %q, want 85%%", page.Score)
	}
	if page.Questions[0].Prompt != "first" || page.Questions[1].Prompt != "second" {
		t.Fatalf("questions not sorted by order index: %+v", page.Questions)
	}
	first := page.Questions[0]
	if first.ImageURL != "http://img/k.png" || first.Skipped {
		t.Errorf("first = %+v", first)
	}
	if opt := first.Options[2]; opt.Text != "y" || !opt.Selected || !opt.Correct {
		t.Errorf("option C = %+v", opt)
	}
	if !page.Questions[1].Skipped {
		t.Error("unanswered question not marked skipped")
	}
	if detail.Questions[0].QuestionID != "q2" {
		t.Error("Result reordered its input")
	}
}

func TestReportSortsByStudentName(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := New("")
	page := r.Report(&model.AssignmentReport{
		AveragePercentage: 72.5,
		Rows: []model.ReportRow{
			{StudentName: "zara", Percentage: 90, SubmittedAt: &at},
			{StudentName: "Adi"},
			{StudentName: "budi", Percentage: 55, SubmittedAt: &at},
		},
	})

	if page.Average != "73%" {
		t.Errorf("Average = %q", page.Average)
	}
	names := []string{page.Rows[0].StudentName, page.Rows[1].StudentName, page.Rows[2].StudentName}
	if names[0] != "Adi" || names[1] != "budi" || names[2] != "zara" {
		t.Errorf("order = %v", names)
	}
	if page.Rows[0].Score != "-" || page.Rows[2].Score != "90%" {
		t.Errorf("scores = %q, %q", page.Rows[0].Score, page.Rows[2].Score)
	}
}

func TestHistoryMostRecentFirst(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	lines := New("").History([]model.AttemptSummary{
		{AttemptID: "open"},
		{AttemptID: "old", SubmittedAt: &older, Percentage: 40},
		{AttemptID: "new", SubmittedAt: &newer, Percentage: 100},
	})

	if lines[0].AttemptID != "new" || lines[1].AttemptID != "old" || lines[2].AttemptID != "open" {
		t.Errorf("order = %+v", lines)
	}
	if lines[0].Score != "100%" || lines[2].Score != "-" {
		t.Errorf("scores = %q, %q", lines[0].Score, lines[2].Score)
	}
}

func TestAttemptPage(t *testing.T) {
	q := model.AttemptQuestion{ID: "q2", PromptText: "p", Choices: model.Choices{"a", "b", "c", "d"}, Points: 2}
	page := New("").Attempt(attempt.View{
		State:            attempt.InProgress,
		AttemptID:        "att-1",
		Index:            1,
		Total:            3,
		Question:         &q,
		Selected:         model.OptionB,
		RemainingSeconds: 12,
		Err:              errors.New("commit failed"),
	})

	if page.Number != 2 || page.QuestionID != "q2" || page.RemainingSeconds != 12 {
		t.Errorf("page = %+v", page)
	}
	if !page.Options[1].Selected || page.Options[0].Selected {
		t.Errorf("options = %+v", page.Options)
	}
	if page.Error != "commit failed" || page.State != "IN_PROGRESS" {
		t.Errorf("error=%q state=%q", page.Error, page.State)
	}
}
