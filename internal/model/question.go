package model

import (
	"encoding/json"
	"time"
)

// Question is an authored multiple-choice question as seen by its teacher.
type Question struct {
	ID                 string    `json:"id"`
	AssignmentID       string    `json:"assignment_id"`
	PromptText         string    `json:"prompt_text"`
	ImageKey           string    `json:"image_key,omitempty"`
	Choices            Choices   `json:"-"`
	CorrectOption      Option    `json:"correct_option"`
	PerQuestionSeconds int       `json:"per_question_seconds"`
	Points             int       `json:"points"`
	OrderIndex         int       `json:"order_index"`
	CreatedAt          time.Time `json:"created_at"`
}

type questionAlias Question

func (q *Question) UnmarshalJSON(data []byte) error {
	var wire struct {
		questionAlias
		choicesWire
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*q = Question(wire.questionAlias)
	q.Choices = wire.choicesWire.choices()
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		questionAlias
		choicesWire
	}{questionAlias(q), wireChoices(q.Choices)})
}

// CreateQuestionRequest is the form payload for adding a question to an assignment.
// The image is uploaded separately and arrives here as ImageKey.
type CreateQuestionRequest struct {
	PromptText         string `json:"prompt_text" form:"prompt_text" binding:"required,min=1,max=2000"`
	ImageKey           string `json:"image_key,omitempty" form:"image_key" binding:"omitempty,max=255"`
	OptionA            string `json:"option_a" form:"option_a" binding:"required,max=500"`
	OptionB            string `json:"option_b" form:"option_b" binding:"required,max=500"`
	OptionC            string `json:"option_c" form:"option_c" binding:"required,max=500"`
	OptionD            string `json:"option_d" form:"option_d" binding:"required,max=500"`
	CorrectOption      string `json:"correct_option" form:"correct_option" binding:"required,oneof=A B C D"`
	PerQuestionSeconds int    `json:"per_question_seconds" form:"per_question_seconds" binding:"required,min=5,max=3600"`
	Points             int    `json:"points" form:"points" binding:"required,min=1,max=100"`
	OrderIndex         int    `json:"order_index" form:"order_index" binding:"min=0"`
}

// Choices returns the four option texts in accessor form.
func (r CreateQuestionRequest) Choices() Choices {
	return Choices{r.OptionA, r.OptionB, r.OptionC, r.OptionD}
}
