package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"finquiz-service/internal/app"
	"finquiz-service/internal/domain"
	"finquiz-service/internal/infra/memory"
	"finquiz-service/internal/quiz"
)

func fastConfig() quiz.Config {
	return quiz.Config{
		CountdownTicks: 1,
		QuestionTime:   150 * time.Millisecond,
		LockDelay:      10 * time.Millisecond,
		TickInterval:   5 * time.Millisecond,
	}
}

func wsTestServer(t *testing.T, pools map[string][]domain.Question) *httptest.Server {
	t.Helper()
	bank := quiz.NewBankWithSeed(memory.NewStaticPoolLoader(pools), 1)
	sessions := app.NewQuizSessionService(bank, quiz.WallClock{}, fastConfig(), memory.NewSessionRegistry())
	wsHandler := NewWSHandler(sessions, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dailyPool() map[string][]domain.Question {
	questions := make([]domain.Question, app.DailyQuestionCount)
	for i := range questions {
		questions[i] = domain.Question{
			ID:     string(rune('a' + i)),
			Prompt: "Pick the right answer",
			Options: []domain.Option{
				{ID: "o1", Text: "right", Correct: true},
				{ID: "o2", Text: "wrong"},
			},
		}
	}
	return map[string][]domain.Question{
		app.ModeDaily:  questions,
		app.ModeBattle: questions,
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func TestWebSocketDailyFlow(t *testing.T) {
	server := wsTestServer(t, dailyPool())

	u := "ws" + server.URL[len("http"):] + "/ws?mode=daily&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	answered := 0
	for {
		msgType, payload := readMessage(t, conn)
		switch msgType {
		case "state":
			if payload["phase"] == string(quiz.PhaseActive) && payload["selected"] == nil {
				answer := map[string]any{
					"type":    "answer",
					"payload": map[string]any{"option": "right"},
				}
				if err := conn.WriteJSON(answer); err != nil {
					t.Fatalf("write answer: %v", err)
				}
				answered++
			}
		case "sessionResult":
			if answered == 0 {
				t.Fatalf("result arrived before any question was answered")
			}
			score := int(payload["score"].(float64))
			total := int(payload["total"].(float64))
			if total != app.DailyQuestionCount {
				t.Fatalf("expected %d questions, got %d", app.DailyQuestionCount, total)
			}
			if score == 0 {
				t.Fatalf("expected correct answers to score")
			}
			return
		case "error":
			t.Fatalf("unexpected error message: %v", payload)
		}
	}
}

func TestWebSocketRejectsShortPool(t *testing.T) {
	server := wsTestServer(t, map[string][]domain.Question{
		app.ModeDaily: dailyPool()[app.ModeDaily][:2],
	})

	u := "ws" + server.URL[len("http"):] + "/ws?mode=daily&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgType, payload := readMessage(t, conn)
	if msgType != "error" {
		t.Fatalf("expected error before any countdown, got %s", msgType)
	}
	if payload["message"] == "" {
		t.Fatalf("expected error message, got %v", payload)
	}
}

func TestWebSocketBattleResolvesToTieOnTimeout(t *testing.T) {
	server := wsTestServer(t, dailyPool())

	u := "ws" + server.URL[len("http"):] + "/ws?mode=battle&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sawTrackA := false
	sawTrackB := false
	for {
		msgType, payload := readMessage(t, conn)
		switch msgType {
		case "state":
			switch payload["track"] {
			case "A":
				sawTrackA = true
			case "B":
				sawTrackB = true
			}
		case "battleResult":
			if !sawTrackA || !sawTrackB {
				t.Fatalf("result before both tracks streamed: A=%v B=%v", sawTrackA, sawTrackB)
			}
			if payload["winner"] != string(quiz.WinnerTie) {
				t.Fatalf("expected tie on mutual timeout, got %v", payload["winner"])
			}
			if int(payload["scoreA"].(float64)) != 0 || int(payload["scoreB"].(float64)) != 0 {
				t.Fatalf("expected zero scores, got %v", payload)
			}
			return
		case "error":
			t.Fatalf("unexpected error message: %v", payload)
		}
	}
}
