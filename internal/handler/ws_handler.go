package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	ws "github.com/stemsi/exstem-portal/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the question countdown to the attempt page and accepts
// option selections over the same connection.
type WSHandler struct {
	base
	attemptService *service.AttemptService
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, sessions *session.Manager, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		base:           newBase(sessions, log, "ws_handler"),
		attemptService: attemptService,
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptTimerStream godoc
// WS /ws/student/attempts/:id/timer
// Sends a tick per second for the current question and an advisory
// "expired" event at zero. Clients may send "select" and "ping".
func (h *WSHandler) AttemptTimerStream(c *gin.Context) {
	sess := middleware.GetSession(c)
	ctrl, err := h.attemptService.Get(sess, c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", sess.UserID).
		Str("attempt_id", ctrl.AttemptID()).
		Logger()
	wsLog.Debug().Msg("Timer stream connected")

	ticks, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	// All writes happen on this goroutine; the reader hands replies over.
	replies := make(chan interface{}, 4)
	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go h.readLoop(conn, ctrl, wsLog, replies, done, stop)

	if v := ctrl.Snapshot(); v.Question != nil {
		ws.WriteTyped(conn, ws.TickResponse{Event: ws.EventTick, QuestionID: v.Question.ID, RemainingSeconds: v.RemainingSeconds})
	}

	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			wsLog.Debug().Msg("Timer stream closed")
			return
		case ev, ok := <-ticks:
			if !ok {
				ws.WriteError(conn, "attempt closed")
				return
			}
			h.attemptService.Touch(ctrl.AttemptID())
			if err := ws.WriteTyped(conn, ws.TickResponse{Event: ws.EventTick, QuestionID: ev.QuestionID, RemainingSeconds: ev.Remaining}); err != nil {
				return
			}
			if ev.Remaining == 0 {
				ws.WriteTyped(conn, ws.ExpiredResponse{Event: ws.EventExpired, QuestionID: ev.QuestionID})
			}
		case reply := <-replies:
			if err := ws.WriteTyped(conn, reply); err != nil {
				return
			}
		case <-ping.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) readLoop(conn *websocket.Conn, ctrl *attempt.Controller, wsLog zerolog.Logger, replies chan<- interface{}, done chan<- struct{}, stop <-chan struct{}) {
	defer close(done)
	ws.PrepareRead(conn)

	for {
		action, raw, err := ws.ReadRequest(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		var reply interface{}
		switch action {
		case ws.ActionPing:
			reply = ws.PongResponse{Event: ws.EventPong}
		case ws.ActionSelect:
			reply = h.handleSelect(ctrl, raw)
		default:
			wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
			reply = ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(action)}
		}
		select {
		case replies <- reply:
		case <-stop:
			return
		}
	}
}

func (h *WSHandler) handleSelect(ctrl *attempt.Controller, raw []byte) interface{} {
	var req ws.SelectRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.QuestionID == "" || req.Option == "" {
		return ws.ErrorResponse{Event: ws.EventError, Error: "q_id and option are required"}
	}

	opt, err := model.ParseOption(req.Option)
	if err != nil {
		return ws.ErrorResponse{Event: ws.EventError, Error: err.Error()}
	}
	if err := ctrl.Select(req.QuestionID, opt); err != nil {
		return ws.ErrorResponse{Event: ws.EventError, Error: message(err)}
	}
	return ws.SelectedResponse{Event: ws.EventSelected, QuestionID: req.QuestionID, Option: string(opt)}
}
