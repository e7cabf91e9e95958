package attempt

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/model"
)

// State is the attempt lifecycle position. Transitions only move forward.
type State int

const (
	NotStarted State = iota
	InProgress
	Submitted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case InProgress:
		return "IN_PROGRESS"
	case Submitted:
		return "SUBMITTED"
	default:
		return "UNKNOWN"
	}
}

// Backend is the slice of the classroom backend the flow drives.
type Backend interface {
	AnswerSink
	StartAttempt(ctx context.Context, assignmentID string) (*model.AttemptStart, error)
	SubmitAttempt(ctx context.Context, attemptID string) (*model.SubmissionResult, error)
}

// CompletionFunc is called once after a successful submit.
type CompletionFunc func(attemptID string, result *model.SubmissionResult)

// TickEvent is one countdown update for the question on screen.
type TickEvent struct {
	QuestionID string `json:"question_id"`
	Remaining  int    `json:"remaining_seconds"`
}

// Options configures a Controller.
type Options struct {
	// TickInterval defaults to one second.
	TickInterval time.Duration
	OnComplete   CompletionFunc
	Logger       zerolog.Logger
	// Now is the clock used for time taken per question. Defaults to time.Now.
	Now func() time.Time
}

// View is a consistent snapshot of the flow for rendering.
type View struct {
	State            State
	AssignmentID     string
	AttemptID        string
	Index            int
	Total            int
	Question         *model.AttemptQuestion
	Selected         model.Option
	RemainingSeconds int
	Answered         int
	IsLast           bool
	Result           *model.SubmissionResult
	Err              error
}

// Controller owns one attempt and moves it NotStarted -> InProgress -> Submitted.
//
// At most one backend call is in flight per controller; a second action while
// one is running gets ErrBusy. Backend calls run without the lock held, and
// their results are applied only if the question they were issued for is still
// the current one (tracked by epoch), otherwise ErrStaleResult.
type Controller struct {
	backend    Backend
	timer      *Timer
	collector  *Collector
	onComplete CompletionFunc
	log        zerolog.Logger

	mu           sync.Mutex
	state        State
	cancelled    bool
	closed       bool
	busy         bool
	epoch        uint64
	assignmentID string
	attemptID    string
	questions    []model.AttemptQuestion
	current      int
	result       *model.SubmissionResult
	lastErr      error

	subMu   sync.Mutex
	subs    map[int]chan TickEvent
	nextSub int
}

// NewController creates a NotStarted flow for an assignment.
func NewController(assignmentID string, backend Backend, opts Options) *Controller {
	c := &Controller{
		backend:      backend,
		collector:    NewCollector(backend),
		onComplete:   opts.OnComplete,
		assignmentID: assignmentID,
		subs:         make(map[int]chan TickEvent),
		log: opts.Logger.With().
			Str("component", "attempt_controller").
			Str("assignment_id", assignmentID).
			Logger(),
	}
	c.timer = NewTimer(opts.TickInterval, c.publish)
	if opts.Now != nil {
		c.timer.now = opts.Now
	}
	return c
}

// Start fetches the questions and a fresh attempt id, then arms the timer on
// the first question. On failure the flow stays NotStarted and a *StartError
// is returned; Start may be called again.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkStartableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.assignmentID == "" {
		err := &StartError{Err: ErrNoAssignment}
		c.lastErr = err
		c.mu.Unlock()
		return err
	}
	c.busy = true
	epoch := c.epoch
	c.mu.Unlock()

	start, err := c.backend.StartAttempt(ctx, c.assignmentID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if c.cancelled || c.closed || epoch != c.epoch {
		return ErrStaleResult
	}
	if err == nil && len(start.Questions) == 0 {
		err = ErrNoQuestions
	}
	if err == nil && start.AttemptID == "" {
		err = ErrNoAttemptID
	}
	if err != nil {
		startErr := &StartError{AssignmentID: c.assignmentID, Err: err}
		c.lastErr = startErr
		c.log.Warn().Err(err).Msg("Attempt start failed")
		return startErr
	}

	questions := make([]model.AttemptQuestion, len(start.Questions))
	copy(questions, start.Questions)
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})

	c.attemptID = start.AttemptID
	c.questions = questions
	c.current = 0
	c.state = InProgress
	c.epoch++
	c.lastErr = nil
	c.log = c.log.With().Str("attempt_id", c.attemptID).Logger()

	c.timer.Arm(questions[0].ID, questions[0].PerQuestionSeconds)
	c.log.Info().Int("questions", len(questions)).Msg("Attempt started")
	return nil
}

func (c *Controller) checkStartableLocked() error {
	switch {
	case c.cancelled:
		return ErrCancelled
	case c.closed || c.state != NotStarted:
		return ErrInvalidTransition
	case c.busy:
		return ErrBusy
	}
	return nil
}

// Select records the student's choice for the current question. questionID
// may be empty; when set it must be the current question, so a choice made on
// an outdated page is not applied to a different question.
func (c *Controller) Select(questionID string, opt model.Option) error {
	if opt.Index() < 0 {
		return model.ErrInvalidOption
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != InProgress || c.closed {
		return ErrInvalidTransition
	}
	q := c.questions[c.current]
	if questionID != "" && questionID != q.ID {
		return ErrNotCurrent
	}
	c.collector.Select(q.ID, opt)
	return nil
}

// Advance commits the current selection (if any) and moves to the next
// question. If the commit fails the index does not change and the
// *CommitError is returned; retrying Advance retries the commit.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkActiveLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.current >= len(c.questions)-1 {
		c.mu.Unlock()
		return ErrLastQuestion
	}
	q, opt, elapsed, epoch := c.beginCommitLocked()
	attemptID := c.attemptID
	c.mu.Unlock()

	err := c.collector.Commit(ctx, attemptID, q.ID, opt, elapsed)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if epoch != c.epoch || c.state != InProgress || c.closed {
		return ErrStaleResult
	}
	if err != nil {
		c.lastErr = err
		c.log.Warn().Err(err).Str("question_id", q.ID).Msg("Answer commit failed, staying on question")
		return err
	}

	c.current++
	c.epoch++
	c.lastErr = nil
	c.collector.ClearPending()
	next := c.questions[c.current]
	c.timer.Arm(next.ID, next.PerQuestionSeconds)
	return nil
}

// Submit commits the current selection (if any) and finalizes the attempt.
// It is allowed from any question. A failed final commit aborts the submit;
// a failed finalize keeps the flow InProgress. Both are retryable.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkActiveLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	q, opt, elapsed, epoch := c.beginCommitLocked()
	attemptID := c.attemptID
	c.mu.Unlock()

	if err := c.collector.Commit(ctx, attemptID, q.ID, opt, elapsed); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.busy = false
		if epoch != c.epoch || c.closed {
			return ErrStaleResult
		}
		c.lastErr = err
		c.log.Warn().Err(err).Str("question_id", q.ID).Msg("Final answer commit failed, submit aborted")
		return err
	}

	result, err := c.backend.SubmitAttempt(ctx, attemptID)

	c.mu.Lock()
	c.busy = false
	if epoch != c.epoch || c.state != InProgress || c.closed {
		c.mu.Unlock()
		return ErrStaleResult
	}
	if err != nil {
		submitErr := &SubmitError{AttemptID: attemptID, Err: err}
		c.lastErr = submitErr
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("Attempt submit failed")
		return submitErr
	}

	c.state = Submitted
	c.result = result
	c.epoch++
	c.lastErr = nil
	c.collector.ClearPending()
	c.timer.Stop()
	onComplete := c.onComplete
	c.mu.Unlock()

	c.log.Info().
		Float64("total_score", result.TotalScore).
		Int("answered", result.QuestionsAnswered).
		Int("total", result.TotalQuestions).
		Msg("Attempt submitted")

	if onComplete != nil {
		onComplete(attemptID, result)
	}
	return nil
}

func (c *Controller) checkActiveLocked() error {
	switch {
	case c.state != InProgress || c.closed:
		return ErrInvalidTransition
	case c.busy:
		return ErrBusy
	}
	return nil
}

// beginCommitLocked captures everything a commit needs and marks the flow busy.
func (c *Controller) beginCommitLocked() (model.AttemptQuestion, model.Option, int, uint64) {
	q := c.questions[c.current]
	opt, _ := c.collector.Pending(q.ID)
	c.busy = true
	return q, opt, c.timer.Elapsed(), c.epoch
}

// Cancel abandons the flow before it has started. It does not touch the
// backend; once an attempt exists it returns ErrInvalidTransition.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != NotStarted {
		return ErrInvalidTransition
	}
	c.cancelled = true
	c.epoch++
	return nil
}

// Close stops the timer and ends all tick subscriptions. Results of calls
// still in flight are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.epoch++
	c.timer.Stop()
	c.mu.Unlock()

	c.subMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subMu.Unlock()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AttemptID returns the backend attempt id, empty before a successful start.
func (c *Controller) AttemptID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attemptID
}

// Answers returns the committed answers.
func (c *Controller) Answers() []model.Answer {
	return c.collector.Answers()
}

// Snapshot returns a consistent view of the flow.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:        c.state,
		AssignmentID: c.assignmentID,
		AttemptID:    c.attemptID,
		Index:        c.current,
		Total:        len(c.questions),
		Answered:     c.collector.Answered(),
		Result:       c.result,
		Err:          c.lastErr,
	}
	if c.state == InProgress {
		q := c.questions[c.current]
		v.Question = &q
		v.Selected, _ = c.collector.Pending(q.ID)
		v.RemainingSeconds = c.timer.Remaining()
		v.IsLast = c.current == len(c.questions)-1
	}
	return v
}

// Subscribe streams countdown ticks. The returned func unsubscribes.
// Slow subscribers miss ticks rather than block the timer.
func (c *Controller) Subscribe() (<-chan TickEvent, func()) {
	ch := make(chan TickEvent, 4)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
		}
	}
}

func (c *Controller) publish(questionID string, remaining int) {
	ev := TickEvent{QuestionID: questionID, Remaining: remaining}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
