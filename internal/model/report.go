package model

import "time"

// AssignmentReport is the comprehensive per-student report for one assignment.
// Percentages are scaled 0..100.
type AssignmentReport struct {
	AssignmentID      string      `json:"assignment_id"`
	AssignmentTitle   string      `json:"assignment_title"`
	TotalQuestions    int         `json:"total_questions"`
	AveragePercentage float64     `json:"average_percentage"`
	Rows              []ReportRow `json:"rows"`
}

// ReportRow is one student's line in an AssignmentReport.
type ReportRow struct {
	UserID            string     `json:"user_id"`
	StudentName       string     `json:"student_name"`
	AttemptID         string     `json:"attempt_id,omitempty"`
	Percentage        float64    `json:"percentage"`
	QuestionsAnswered int        `json:"questions_answered"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`
	IsLate            bool       `json:"is_late"`
}
