package attempt

import (
	"errors"
	"fmt"
)

// Flow errors.
var (
	ErrInvalidTransition = errors.New("action not valid in the current attempt state")
	ErrLastQuestion      = fmt.Errorf("%w: already at the last question", ErrInvalidTransition)
	ErrCancelled         = errors.New("attempt flow was cancelled")
	ErrBusy              = errors.New("another attempt action is in flight")
	ErrStaleResult       = errors.New("result arrived for a question that is no longer current")
	ErrNotCurrent        = errors.New("question is not the current question")
	ErrNoAssignment      = errors.New("assignment id is required")
	ErrNoQuestions       = errors.New("assignment has no questions")
	ErrNoAttemptID       = errors.New("backend returned no attempt id")
)

// StartError reports a failed start. The flow stays NotStarted; calling Start
// again retries.
type StartError struct {
	AssignmentID string
	Err          error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start attempt for assignment %q: %v", e.AssignmentID, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// CommitError reports a failed answer persist. Nothing was recorded locally.
type CommitError struct {
	QuestionID string
	Err        error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit answer for question %q: %v", e.QuestionID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// SubmitError reports a failed finalize call. The attempt stays InProgress.
type SubmitError struct {
	AttemptID string
	Err       error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit attempt %q: %v", e.AttemptID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }
