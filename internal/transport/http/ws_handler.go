package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"finquiz-service/internal/app"
	"finquiz-service/internal/quiz"
)

// WSHandler upgrades HTTP requests to websockets and drives live quiz
// sessions over them. One connection owns one session; when the connection
// drops, the session is torn down.
type WSHandler struct {
	sessions *app.QuizSessionService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions *app.QuizSessionService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		sessions: sessions,
		log:      log,
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

type answerPayload struct {
	Option string `json:"option"`
	Track  string `json:"track,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type trackedSnapshot struct {
	Track string        `json:"track"`
	State quiz.Snapshot `json:"state"`
}

type sessionResult struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = app.ModeDaily
	}
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	var (
		session *app.LiveSession
		err     error
	)
	switch mode {
	case app.ModeDaily:
		session, err = h.sessions.StartDaily(r.Context(), userID)
	case app.ModeLevel:
		levelID, convErr := strconv.Atoi(r.URL.Query().Get("levelId"))
		if convErr != nil {
			http.Error(w, "missing or invalid levelId", http.StatusBadRequest)
			return
		}
		session, err = h.sessions.StartLevel(r.Context(), userID, levelID)
	case app.ModeBattle:
		session, err = h.sessions.StartBattle(r.Context(), userID)
	default:
		http.Error(w, "unsupported mode", http.StatusBadRequest)
		return
	}

	conn, upgradeErr := h.upgrader.Upgrade(w, r, nil)
	if upgradeErr != nil {
		h.log.Warn("ws upgrade failed", zap.Error(upgradeErr))
		if session != nil {
			h.sessions.Release(session)
		}
		return
	}
	defer conn.Close()

	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.sessions.Release(session)

	send := make(chan interface{}, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", zap.Error(err))
				return
			}
		}
	}()

	var streams sync.WaitGroup
	if session.Battle != nil {
		h.streamBattle(session.Battle, send, closeSignals, &streams)
		session.Battle.Start()
	} else {
		h.streamEngine(session.Engine, "", send, closeSignals, &streams)
		session.Engine.Start()
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				trySend(send, closeSignals, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			if err := h.applyAnswer(session, payload); err != nil {
				trySend(send, closeSignals, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			}
		default:
			trySend(send, closeSignals, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	streams.Wait()
	close(send)
	<-writerDone
}

func (h *WSHandler) applyAnswer(session *app.LiveSession, payload answerPayload) error {
	if session.Battle != nil {
		track := quiz.TrackA
		if payload.Track == string(quiz.TrackB) {
			track = quiz.TrackB
		}
		return session.Battle.Select(track, payload.Option)
	}
	return session.Engine.Select(payload.Option)
}

// streamEngine forwards engine snapshots to the writer and reports the final
// score once the stream closes on completion.
func (h *WSHandler) streamEngine(engine *quiz.Engine, track string, send chan interface{}, closeSignals chan struct{}, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case snap, ok := <-engine.Updates():
				if !ok {
					if track != "" {
						// Battle tracks report through the barrier instead.
						return
					}
					if score, total, completed := engine.Result(); completed {
						trySend(send, closeSignals, outboundMessage[sessionResult]{Type: "sessionResult", Payload: sessionResult{Score: score, Total: total}})
					}
					return
				}
				if track != "" {
					trySend(send, closeSignals, outboundMessage[trackedSnapshot]{Type: "state", Payload: trackedSnapshot{Track: track, State: snap}})
				} else {
					trySend(send, closeSignals, outboundMessage[quiz.Snapshot]{Type: "state", Payload: snap})
				}
			case <-closeSignals:
				return
			}
		}
	}()
}

func (h *WSHandler) streamBattle(battle *quiz.Battle, send chan interface{}, closeSignals chan struct{}, wg *sync.WaitGroup) {
	h.streamEngine(battle.Engine(quiz.TrackA), string(quiz.TrackA), send, closeSignals, wg)
	h.streamEngine(battle.Engine(quiz.TrackB), string(quiz.TrackB), send, closeSignals, wg)

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case result, ok := <-battle.Result():
			if ok {
				trySend(send, closeSignals, outboundMessage[quiz.BattleResult]{Type: "battleResult", Payload: result})
			}
		case <-closeSignals:
		}
	}()
}

func trySend(send chan interface{}, closeSignals chan struct{}, msg interface{}) {
	select {
	case send <- msg:
	case <-closeSignals:
	}
}
