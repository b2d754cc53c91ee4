package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Category   int               `json:"category"`
	Difficulty domain.Difficulty `json:"difficulty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// outbox hands messages to the connection writer. It never blocks once the
// connection is closing or the writer has stopped.
type outbox struct {
	send       chan<- outboundMessage[any]
	closed     <-chan struct{}
	writerDone <-chan struct{}
}

func (o outbox) emit(msg outboundMessage[any]) {
	select {
	case o.send <- msg:
	case <-o.closed:
	case <-o.writerDone:
	}
}

// ServeWS upgrades HTTP requests to websockets and binds each connection to
// one quiz session. Every state change of the session is pushed as a "state" message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Fetches outlive a single read but not the connection.
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	session := h.service.Open(ctx)
	sessionID := session.ID()
	log := h.log.With(zap.String("session_id", sessionID))
	defer h.service.Exit(ctx, sessionID)

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine: gorilla connections support one concurrent writer.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	emit := outbox{send: send, closed: closeSignals, writerDone: writerDone}.emit
	emitError := func(message string) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				emit(outboundMessage[any]{Type: "state", Payload: update})
			case <-closeSignals:
				return
			}
		}
	}()

	var loads sync.WaitGroup
	load := func(fn func() error) {
		loads.Add(1)
		go func() {
			defer loads.Done()
			err := fn()
			switch {
			case err == nil, errors.Is(err, domain.ErrStaleFetch):
			case errors.Is(err, domain.ErrInvalidDifficulty):
				emitError(err.Error())
			default:
				// fetch failures and empty results are carried by the state message
				log.Debug("load finished", zap.Error(err))
			}
		}()
	}

	exited := false
	for !exited {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emitError("invalid start payload")
				continue
			}
			cfg := domain.QuizConfig{Category: payload.Category, Difficulty: payload.Difficulty}
			load(func() error { return h.service.Start(ctx, sessionID, cfg) })
		case "retry":
			load(func() error { return h.service.Retry(ctx, sessionID) })
		case "answer":
			var payload domain.Answer
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emitError("invalid answer payload")
				continue
			}
			err = h.service.SubmitAnswer(ctx, sessionID, payload)
		case "next":
			err = h.service.Next(ctx, sessionID)
		case "previous":
			err = h.service.Previous(ctx, sessionID)
		case "restart":
			err = h.service.Restart(ctx, sessionID)
		case "exit":
			exited = true
			emit(outboundMessage[any]{Type: "exited", Payload: map[string]string{"sessionId": sessionID}})
		default:
			emitError("unsupported message type")
		}
		if err != nil {
			emitError(err.Error())
			err = nil
		}
	}

	close(closeSignals)
	cancelCtx()
	loads.Wait()
	<-updatesDone
	cancel()
	close(send)
	<-writerDone
}
