package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/render"
)

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	for _, name := range []string{
		"login.html", "error.html", "teacher_dashboard.html", "classroom.html",
		"teacher_assignment.html", "report.html", "student_dashboard.html",
		"student_assignment.html", "attempt.html", "summary.html", "result.html",
	} {
		if tmpl.Lookup(name) == nil {
			t.Errorf("template %s missing", name)
		}
	}
}

func TestAttemptPageRendersTimerAndOptions(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	page := render.AttemptPage{
		AttemptID:        "at-1",
		QuestionID:       "q1",
		Number:           1,
		Total:            3,
		Prompt:           "2 + 2?",
		RemainingSeconds: 75,
		Options: []render.OptionView{
			{Letter: model.OptionA, Text: "3"},
			{Letter: model.OptionB, Text: "4", Selected: true},
			{Letter: model.OptionC, Text: "5"},
			{Letter: model.OptionD, Text: "22"},
		},
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "attempt.html", map[string]interface{}{"Title": "Attempt", "Attempt": page}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"1:15", "Question 1 of 3", `value="B" checked`, "/student/attempts/at-1/advance"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	page.IsLast = true
	buf.Reset()
	_ = tmpl.ExecuteTemplate(&buf, "attempt.html", map[string]interface{}{"Title": "Attempt", "Attempt": page})
	if strings.Contains(buf.String(), "/advance") {
		t.Error("last question still offers next")
	}
}

func TestClock(t *testing.T) {
	for in, want := range map[int]string{0: "0:00", 5: "0:05", 60: "1:00", 754: "12:34", -3: "0:00"} {
		if got := Clock(in); got != want {
			t.Errorf("Clock(%d) = %q, want %q", in, got, want)
		}
	}
}
