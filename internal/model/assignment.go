package model

import "time"

// Assignment is a set of questions published to a classroom.
type Assignment struct {
	ID            string     `json:"id"`
	ClassroomID   string     `json:"classroom_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	DueAt         *time.Time `json:"due_at,omitempty"`
	QuestionCount int        `json:"question_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreateAssignmentRequest is the form payload for creating an assignment.
// DueAt uses the browser datetime-local layout (2006-01-02T15:04).
type CreateAssignmentRequest struct {
	Title       string `form:"title" binding:"required,min=3,max=255"`
	Description string `form:"description" binding:"max=2000"`
	DueAt       string `form:"due_at" binding:"omitempty,datetime=2006-01-02T15:04"`
}

// NewAssignment is the backend payload built from a CreateAssignmentRequest.
type NewAssignment struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}
