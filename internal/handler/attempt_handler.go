package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/attempt"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/notify"
	"github.com/stemsi/exam-portal/internal/response"
	ws "github.com/stemsi/exam-portal/internal/websocket"
)

const (
	streamBuffer = 64
	replyBuffer  = 16
	// examsPath is where the shell lands after a submitted exam.
	examsPath = "/exams"
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

// AttemptOptions tune the attempts created by AttemptHandler.
type AttemptOptions struct {
	RetryDelay time.Duration
	// Scheduler defaults to attempt.TimeScheduler.
	Scheduler attempt.Scheduler
}

// AttemptHandler drives exam attempts over WebSocket.
type AttemptHandler struct {
	registry *attempt.Registry
	backend  attempt.Backend
	journal  attempt.Journal
	opts     AttemptOptions
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(registry *attempt.Registry, backend attempt.Backend, journal attempt.Journal, opts AttemptOptions, log zerolog.Logger, allowedOrigins []string) *AttemptHandler {
	if opts.Scheduler == nil {
		opts.Scheduler = attempt.TimeScheduler{}
	}
	return &AttemptHandler{
		registry: registry,
		backend:  backend,
		journal:  journal,
		opts:     opts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/exams/:exam_id/attempt?token=...
// Mounts an exam attempt for the connected student. The connection carries
// answers and submit actions in, and state, toasts and navigation out.
// Disconnecting unmounts the attempt.
func (h *AttemptHandler) AttemptStream(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	if identity == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("student_id", identity.ID).
		Str("exam_id", examID.String()).
		Logger()

	stream := notify.NewStream(streamBuffer)
	replies := make(chan any, replyBuffer)
	writerDone := make(chan struct{})
	go h.writeLoop(conn, stream, replies, writerDone, wsLog)

	a := attempt.New(examID, *identity, attempt.Deps{
		Backend:    h.backend,
		Scheduler:  h.opts.Scheduler,
		Notifier:   stream,
		Navigator:  stream,
		Journal:    h.journal,
		OnChange:   func(s attempt.State) { stream.Publish(notify.Event{Type: notify.EventState, State: s}) },
		RetryDelay: h.opts.RetryDelay,
		DonePath:   examsPath,
		Log:        h.log,
	})
	h.registry.Mount(a)

	// Closing the stream lets the writer flush what is queued and exit.
	defer func() {
		h.registry.Unmount(a)
		stream.Close()
		<-writerDone
		wsLog.Info().Msg("Student disconnected")
	}()

	wsLog.Info().Str("attempt_id", a.ID().String()).Msg("Student connected")

	if err := a.Load(c.Request.Context()); err != nil {
		return
	}

	reply := func(v any) {
		select {
		case replies <- v:
		case <-writerDone:
		}
	}

	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			reply(errorReply(response.ErrInvalidPayload, ""))
			continue
		}

		switch env.Action {
		case ws.ActionAnswer:
			var req ws.AnswerRequest
			if err := json.Unmarshal(raw, &req); err != nil || req.QuestionID == "" {
				reply(errorReply(response.ErrInvalidPayload, "question_id and selected_answer are required"))
				continue
			}
			if err := a.Answer(model.ID(req.QuestionID), req.Key); err != nil {
				reply(attemptErrorReply(err))
			}
		case ws.ActionRequestSubmit:
			var unanswered *attempt.UnansweredError
			if err := a.RequestSubmit(c.Request.Context()); err != nil && !errors.As(err, &unanswered) {
				reply(attemptErrorReply(err))
			}
		case ws.ActionConfirmSubmit:
			// The submit call can take a while; keep reading meanwhile.
			go func(ctx context.Context) {
				if err := a.ConfirmSubmit(ctx); err != nil && !errors.Is(err, attempt.ErrClosed) {
					reply(attemptErrorReply(err))
				}
			}(context.WithoutCancel(c.Request.Context()))
		case ws.ActionCancelSubmit:
			if err := a.CancelSubmit(); err != nil {
				reply(attemptErrorReply(err))
			}
		case ws.ActionSnapshot:
			reply(ws.StateResponse{Event: ws.EventState, State: a.Snapshot()})
		case ws.ActionPing:
			reply(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			reply(errorReply(response.ErrInvalidPayload, "unknown action: "+string(env.Action)))
		}
	}
}

// writeLoop is the only goroutine writing to conn. After a failed write it
// closes conn, which ends the read loop, and keeps draining until the stream
// is closed.
func (h *AttemptHandler) writeLoop(conn *websocket.Conn, stream *notify.Stream, replies <-chan any, done chan<- struct{}, log zerolog.Logger) {
	defer close(done)
	events := stream.Events()
	failed := false
	for {
		var v any
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if v, ok = ws.FromStream(ev); !ok {
				continue
			}
		case v = <-replies:
		}
		if failed {
			continue
		}
		if err := ws.WriteTyped(conn, v); err != nil {
			log.Debug().Err(err).Msg("Write failed")
			failed = true
			conn.Close()
		}
	}
}

// GetAttempt godoc
// GET /api/v1/student/exams/:exam_id/attempt
// Returns the state of the caller's mounted attempt.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	identity := middleware.GetIdentity(c)
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	a, found := h.registry.Get(model.ID(identity.ID), examID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotMounted)
		return
	}
	response.Success(c, http.StatusOK, a.Snapshot())
}

func errorReply(code response.ErrCode, msg string) ws.ErrorResponse {
	if msg == "" {
		msg = response.GetMessage(code)
	}
	return ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: msg}
}

func attemptErrorReply(err error) ws.ErrorResponse {
	var unanswered *attempt.UnansweredError
	switch {
	case errors.Is(err, attempt.ErrWrongPhase):
		return errorReply(response.ErrWrongPhase, "")
	case errors.Is(err, attempt.ErrClosed):
		return errorReply(response.ErrAttemptClosed, "")
	case errors.Is(err, attempt.ErrExpired):
		return errorReply(response.ErrTimeExpired, "")
	case errors.Is(err, attempt.ErrUnknownQuestion):
		return errorReply(response.ErrUnknownQuestion, "")
	case errors.Is(err, attempt.ErrUnknownOption), errors.Is(err, attempt.ErrInvalidAnswer):
		return errorReply(response.ErrUnknownOption, "")
	case errors.Is(err, attempt.ErrSubmitInProgress):
		return errorReply(response.ErrSubmitInProgress, "")
	case errors.As(err, &unanswered):
		return errorReply(response.ErrUnanswered, err.Error())
	default:
		return errorReply(response.ErrSubmitFailed, "")
	}
}
