package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"finquiz-service/internal/app"
	"finquiz-service/internal/domain"
)

// API exposes the reward ledger and leaderboard over REST.
type API struct {
	rewards *app.RewardLedgerService
	board   *app.LeaderboardAggregator
	log     *zap.Logger
}

func NewAPI(rewards *app.RewardLedgerService, board *app.LeaderboardAggregator, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{rewards: rewards, board: board, log: log}
}

// Register mounts the API routes under /api/v1. Everything except the public
// leaderboard read requires a bearer token.
func (a *API) Register(router *mux.Router, secret []byte) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/leaderboard", a.handleLeaderboard).Methods(http.MethodGet)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(AuthMiddleware(secret))
	protected.HandleFunc("/levels", a.handleLevels).Methods(http.MethodGet)
	protected.HandleFunc("/levels/complete", a.handleLevelComplete).Methods(http.MethodPost)
	protected.HandleFunc("/rewards", a.handleRewards).Methods(http.MethodGet)
	protected.HandleFunc("/rewards", a.handleSubmitReward).Methods(http.MethodPost)
	protected.HandleFunc("/leaderboard", a.handleSubmitScore).Methods(http.MethodPost)
	protected.HandleFunc("/leaderboard/me", a.handleOwnEntry).Methods(http.MethodGet)
}

type levelCompleteRequest struct {
	LevelID        int `json:"levelId"`
	Score          int `json:"score"`
	TotalQuestions int `json:"totalQuestions"`
}

func (a *API) handleLevelComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}
	var req levelCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := a.rewards.SubmitLevelCompletion(r.Context(), userID, req.LevelID, req.Score, req.TotalQuestions)
	if err != nil {
		writeError(w, err)
		return
	}
	a.log.Info("level completion recorded",
		zap.String("user", userID),
		zap.Int("level", req.LevelID),
		zap.Int("percentage", result.Percentage),
		zap.Bool("firstTime", result.FirstTimeCompletion))
	writeJSON(w, http.StatusOK, result)
}

type rewardRequest struct {
	Coins    int    `json:"coins"`
	QuizType string `json:"quizType"`
	Score    int    `json:"score"`
}

func (a *API) handleSubmitReward(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := a.rewards.SubmitGenericReward(r.Context(), userID, req.Coins, req.QuizType, req.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleRewards(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}
	ledger, err := a.rewards.Ledger(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

type scoreRequest struct {
	Score    int    `json:"score"`
	QuizType string `json:"quizType"`
}

func (a *API) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := a.rewards.SubmitScore(r.Context(), userID, req.Score, req.QuizType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	entries, err := a.board.TopN(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleOwnEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}
	entry, err := a.board.UserEntry(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type levelView struct {
	ID            int  `json:"id"`
	QuestionCount int  `json:"questionCount"`
	Unlocked      bool `json:"unlocked"`
	Completed     bool `json:"completed"`
	BestScore     int  `json:"bestScore"`
}

// handleLevels merges the static catalog with the caller's progress. Level 1
// is always unlocked; later levels unlock when their record exists.
func (a *API) handleLevels(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}
	ledger, err := a.rewards.Ledger(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]levelView, 0, len(domain.Levels))
	for _, def := range domain.Levels {
		view := levelView{
			ID:            def.ID,
			QuestionCount: def.QuestionCount,
			Unlocked:      def.ID == 1,
		}
		if rec := ledger.Level(def.ID); rec != nil {
			view.Unlocked = true
			view.Completed = rec.Completed
			view.BestScore = rec.BestScore
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}
