package attempt

import (
	"context"
	"sort"
	"sync"

	"github.com/stemsi/exstem-portal/internal/model"
)

// AnswerSink persists one answer remotely.
type AnswerSink interface {
	CommitAnswer(ctx context.Context, attemptID string, answer model.Answer) error
}

// Collector holds the transient selection for the question on screen and the
// answers already committed, keyed by question id.
type Collector struct {
	sink AnswerSink

	mu         sync.Mutex
	pendingQID string
	pendingOpt model.Option
	answers    map[string]model.Answer
}

// NewCollector creates an empty Collector.
func NewCollector(sink AnswerSink) *Collector {
	return &Collector{sink: sink, answers: make(map[string]model.Answer)}
}

// Select stores opt as the choice for questionID, replacing any earlier one.
// Nothing is persisted until Commit.
func (c *Collector) Select(questionID string, opt model.Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingQID = questionID
	c.pendingOpt = opt
}

// Pending returns the uncommitted choice for questionID.
func (c *Collector) Pending(questionID string) (model.Option, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingQID != questionID || c.pendingOpt == "" {
		return "", false
	}
	return c.pendingOpt, true
}

// ClearPending drops the transient choice.
func (c *Collector) ClearPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingQID = ""
	c.pendingOpt = ""
}

// Commit persists one answer and then records it locally, overwriting any
// earlier answer for the same question. An empty opt is a skip: nothing is
// sent and nothing is recorded. On remote failure nothing is recorded.
func (c *Collector) Commit(ctx context.Context, attemptID, questionID string, opt model.Option, elapsedSeconds int) error {
	if opt == "" {
		return nil
	}

	answer := model.Answer{
		QuestionID:       questionID,
		ChosenOption:     opt,
		TimeTakenSeconds: elapsedSeconds,
	}
	if err := c.sink.CommitAnswer(ctx, attemptID, answer); err != nil {
		return &CommitError{QuestionID: questionID, Err: err}
	}

	c.mu.Lock()
	c.answers[questionID] = answer
	c.mu.Unlock()
	return nil
}

// Answered is the number of questions with a committed answer.
func (c *Collector) Answered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.answers)
}

// Answer returns the committed answer for questionID.
func (c *Collector) Answer(questionID string) (model.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.answers[questionID]
	return a, ok
}

// Answers returns the committed answers ordered by question id.
func (c *Collector) Answers() []model.Answer {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Answer, 0, len(c.answers))
	for _, a := range c.answers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}
