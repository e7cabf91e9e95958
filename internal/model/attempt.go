package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidOption is returned when an option letter is not one of A-D.
var ErrInvalidOption = errors.New("option must be one of A, B, C, D")

// Option is one of the four multiple-choice letters.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// AllOptions lists the options in display order.
var AllOptions = [4]Option{OptionA, OptionB, OptionC, OptionD}

// ParseOption accepts "a".."d" in either case.
func ParseOption(raw string) (Option, error) {
	opt := Option(strings.ToUpper(strings.TrimSpace(raw)))
	if opt.Index() < 0 {
		return "", ErrInvalidOption
	}
	return opt, nil
}

// Index returns the zero-based position of the option, or -1 if invalid.
func (o Option) Index() int {
	switch o {
	case OptionA:
		return 0
	case OptionB:
		return 1
	case OptionC:
		return 2
	case OptionD:
		return 3
	default:
		return -1
	}
}

// Choices holds the four option texts of a question, indexed by Option.Index.
type Choices [4]string

// Text returns the text for opt, or "" for an invalid option.
func (c Choices) Text(opt Option) string {
	i := opt.Index()
	if i < 0 {
		return ""
	}
	return c[i]
}

// choicesWire is the backend's flat option_a..option_d representation.
type choicesWire struct {
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
	OptionC string `json:"option_c"`
	OptionD string `json:"option_d"`
}

func (w choicesWire) choices() Choices {
	return Choices{w.OptionA, w.OptionB, w.OptionC, w.OptionD}
}

func wireChoices(c Choices) choicesWire {
	return choicesWire{OptionA: c[0], OptionB: c[1], OptionC: c[2], OptionD: c[3]}
}

// AttemptQuestion is a question as served for one attempt. Immutable once fetched.
type AttemptQuestion struct {
	ID                 string  `json:"id"`
	PromptText         string  `json:"prompt_text"`
	ImageKey           string  `json:"image_key,omitempty"`
	Choices            Choices `json:"-"`
	PerQuestionSeconds int     `json:"per_question_seconds"`
	Points             int     `json:"points"`
	OrderIndex         int     `json:"order_index"`
}

type attemptQuestionAlias AttemptQuestion

func (q *AttemptQuestion) UnmarshalJSON(data []byte) error {
	var wire struct {
		attemptQuestionAlias
		choicesWire
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*q = AttemptQuestion(wire.attemptQuestionAlias)
	q.Choices = wire.choicesWire.choices()
	return nil
}

func (q AttemptQuestion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		attemptQuestionAlias
		choicesWire
	}{attemptQuestionAlias(q), wireChoices(q.Choices)})
}

// AttemptStart is the backend's response to starting an attempt.
type AttemptStart struct {
	AttemptID string            `json:"attempt_id"`
	Questions []AttemptQuestion `json:"questions"`
}

// Answer is one committed choice. At most one exists per question.
type Answer struct {
	QuestionID       string `json:"question_id"`
	ChosenOption     Option `json:"chosen_option"`
	TimeTakenSeconds int    `json:"time_taken_seconds"`
}

// SubmissionResult is returned once by the finalize call.
// TotalScore is a 0..1 fraction.
type SubmissionResult struct {
	TotalScore        float64   `json:"total_score"`
	QuestionsAnswered int       `json:"questions_answered"`
	TotalQuestions    int       `json:"total_questions"`
	SubmittedAt       time.Time `json:"submitted_at"`
	IsLate            bool      `json:"is_late"`
}

// AttemptDetail is a previously submitted attempt as reported by the result
// endpoint. Percentage is already scaled 0..100.
type AttemptDetail struct {
	AttemptID       string                  `json:"attempt_id"`
	AssignmentID    string                  `json:"assignment_id"`
	AssignmentTitle string                  `json:"assignment_title"`
	Percentage      float64                 `json:"percentage"`
	PointsEarned    int                     `json:"points_earned"`
	PointsPossible  int                     `json:"points_possible"`
	SubmittedAt     time.Time               `json:"submitted_at"`
	IsLate          bool                    `json:"is_late"`
	Questions       []AttemptDetailQuestion `json:"questions"`
}

// AttemptDetailQuestion is one graded question inside an AttemptDetail.
// ChosenOption is empty for skipped questions.
type AttemptDetailQuestion struct {
	QuestionID    string  `json:"question_id"`
	PromptText    string  `json:"prompt_text"`
	ImageKey      string  `json:"image_key,omitempty"`
	Choices       Choices `json:"-"`
	ChosenOption  Option  `json:"chosen_option,omitempty"`
	CorrectOption Option  `json:"correct_option"`
	IsCorrect     bool    `json:"is_correct"`
	Points        int     `json:"points"`
	PointsEarned  int     `json:"points_earned"`
	OrderIndex    int     `json:"order_index"`
}

type detailQuestionAlias AttemptDetailQuestion

func (q *AttemptDetailQuestion) UnmarshalJSON(data []byte) error {
	var wire struct {
		detailQuestionAlias
		choicesWire
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*q = AttemptDetailQuestion(wire.detailQuestionAlias)
	q.Choices = wire.choicesWire.choices()
	return nil
}

func (q AttemptDetailQuestion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		detailQuestionAlias
		choicesWire
	}{detailQuestionAlias(q), wireChoices(q.Choices)})
}

// AttemptSummary is one row of a student's attempt history.
type AttemptSummary struct {
	AttemptID       string     `json:"attempt_id"`
	AssignmentID    string     `json:"assignment_id"`
	AssignmentTitle string     `json:"assignment_title"`
	Percentage      float64    `json:"percentage"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	IsLate          bool       `json:"is_late"`
}

// SelectOptionRequest is the payload for choosing an option on the current question.
type SelectOptionRequest struct {
	QuestionID string `json:"question_id" form:"question_id" binding:"required"`
	Option     string `json:"option" form:"option" binding:"required,oneof=A B C D a b c d"`
}

// AttemptActionRequest carries the optional selection sent with advance/submit.
type AttemptActionRequest struct {
	QuestionID string `json:"question_id" form:"question_id"`
	Option     string `json:"option" form:"option" binding:"omitempty,oneof=A B C D a b c d"`
}
