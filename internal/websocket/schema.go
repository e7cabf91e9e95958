package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect Action = "select"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SelectRequest chooses an option on the question currently on screen.
type SelectRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"q_id"`
	Option     string `json:"option"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick     Event = "tick"
	EventExpired  Event = "expired"
	EventSelected Event = "selected"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// TickResponse carries the countdown for the current question.
type TickResponse struct {
	Event            Event  `json:"event"`
	QuestionID       string `json:"q_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// ExpiredResponse is sent once the countdown reaches zero. It is advisory:
// the attempt stays on the question until the student advances or submits.
type ExpiredResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"q_id"`
}

// SelectedResponse acknowledges a selection.
type SelectedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"q_id"`
	Option     string `json:"option"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
