package model

import "time"

// Classroom is a teacher's class group. The portal passes it through unchanged.
type Classroom struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	TeacherName  string    `json:"teacher_name"`
	StudentCount int       `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateClassroomRequest is the payload for creating a classroom.
type CreateClassroomRequest struct {
	Name        string `json:"name" form:"name" binding:"required,min=3,max=120"`
	Description string `json:"description" form:"description" binding:"max=500"`
}

// EnrollStudentRequest adds a student to a classroom by user name.
type EnrollStudentRequest struct {
	UserName string `json:"user_name" form:"user_name" binding:"required,min=3,max=64"`
}
