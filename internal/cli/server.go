package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"finquiz-service/internal/app"
	"finquiz-service/internal/config"
	"finquiz-service/internal/domain"
	"finquiz-service/internal/infra/memory"
	pginfra "finquiz-service/internal/infra/postgres"
	redisinfra "finquiz-service/internal/infra/redis"
	"finquiz-service/internal/logger"
	"finquiz-service/internal/quiz"
	transport "finquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		return fmt.Errorf("auth secret not configured")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pgPool *pgxpool.Pool
	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		pgPool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pgPool.Close()

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()
	}

	var loader memory.PoolLoader = memory.NewStaticPoolLoader(samplePools())
	if pgPool != nil {
		loader = pginfra.NewPoolLoader(pgPool)
	}

	poolTTL := config.TTLDuration(cfg.Quiz.PoolTTL, 10*time.Minute)
	var source quiz.PoolSource
	if redisClient != nil {
		source = redisinfra.NewPoolCache(redisClient, loader, poolTTL)
	} else {
		source = memory.NewPoolCache(loader, poolTTL)
	}

	var registry app.SessionRegistry
	if redisClient != nil {
		registry = redisinfra.NewSessionRegistry(redisClient, redisTTL)
	} else {
		registry = memory.NewSessionRegistry()
	}

	var ledgers app.LedgerRepository
	if bunDB != nil {
		ledgers = pginfra.NewLedgerStore(bunDB)
	} else {
		store := memory.NewLedgerStore()
		store.Create("demo", "Demo Player")
		ledgers = store
	}

	var index app.LeaderboardIndex
	if redisClient != nil {
		index = redisinfra.NewLeaderboardIndex(redisClient)
	} else {
		index = memory.NewLeaderboardIndex()
	}

	quizCfg := quiz.Config{
		CountdownTicks: cfg.Quiz.CountdownTicks,
		QuestionTime:   config.TTLDuration(cfg.Quiz.QuestionTime, 30*time.Second),
		LockDelay:      config.TTLDuration(cfg.Quiz.LockDelay, time.Second),
		TickInterval:   config.TTLDuration(cfg.Quiz.TickInterval, time.Second),
	}

	rewards := app.NewRewardLedgerService(ledgers, index, log)
	board := app.NewLeaderboardAggregator(ledgers, index)
	sessions := app.NewQuizSessionService(quiz.NewBank(source), quiz.WallClock{}, quizCfg, registry)

	api := transport.NewAPI(rewards, board, log)
	wsHandler := transport.NewWSHandler(sessions, log)

	router := mux.NewRouter()
	api.Register(router, secret)
	router.HandleFunc("/ws", wsHandler.ServeWS)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      corsHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting finquiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// samplePools provides built-in question pools for running without Postgres;
// production deployments load pools from the question_pools table instead.
func samplePools() map[string][]domain.Question {
	base := []domain.Question{
		{
			ID:     "q1",
			Prompt: "What does APR stand for?",
			Options: []domain.Option{
				{ID: "o1", Text: "Annual Percentage Rate", Correct: true},
				{ID: "o2", Text: "Average Payment Ratio"},
				{ID: "o3", Text: "Annual Payment Requirement"},
			},
			Category: "credit",
		},
		{
			ID:     "q2",
			Prompt: "Which account typically earns the most interest?",
			Options: []domain.Option{
				{ID: "o1", Text: "Checking account"},
				{ID: "o2", Text: "High-yield savings account", Correct: true},
				{ID: "o3", Text: "Cash under the mattress"},
			},
			Category: "savings",
		},
		{
			ID:     "q3",
			Prompt: "What is a phishing attempt?",
			Options: []domain.Option{
				{ID: "o1", Text: "A fraudulent message asking for your credentials", Correct: true},
				{ID: "o2", Text: "A bank statement sent by mail"},
				{ID: "o3", Text: "A type of savings bond"},
			},
			Category: "safety",
		},
		{
			ID:     "q4",
			Prompt: "A credit score is primarily a measure of what?",
			Options: []domain.Option{
				{ID: "o1", Text: "Your total wealth"},
				{ID: "o2", Text: "How reliably you repay borrowed money", Correct: true},
				{ID: "o3", Text: "Your monthly income"},
			},
			Category: "credit",
		},
		{
			ID:     "q5",
			Prompt: "What does diversification reduce?",
			Options: []domain.Option{
				{ID: "o1", Text: "Taxes"},
				{ID: "o2", Text: "Risk concentrated in a single investment", Correct: true},
				{ID: "o3", Text: "Brokerage fees"},
			},
			Category: "investing",
		},
		{
			ID:     "q6",
			Prompt: "An emergency fund should ideally cover how many months of expenses?",
			Options: []domain.Option{
				{ID: "o1", Text: "One week"},
				{ID: "o2", Text: "Three to six months", Correct: true},
				{ID: "o3", Text: "Ten years"},
			},
			Category: "savings",
		},
		{
			ID:     "q7",
			Prompt: "What is compound interest?",
			Options: []domain.Option{
				{ID: "o1", Text: "Interest earned on both principal and prior interest", Correct: true},
				{ID: "o2", Text: "A flat fee charged by banks"},
				{ID: "o3", Text: "Interest that never changes"},
			},
			Category: "savings",
		},
		{
			ID:     "q8",
			Prompt: "If a stranger asks for your one-time passcode, you should",
			Options: []domain.Option{
				{ID: "o1", Text: "Share it if they sound official"},
				{ID: "o2", Text: "Never share it", Correct: true},
				{ID: "o3", Text: "Post it online"},
			},
			Category: "safety",
		},
	}

	pools := map[string][]domain.Question{
		app.ModeDaily:  base,
		app.ModeBattle: base,
	}
	for _, def := range domain.Levels {
		pools[app.LevelPoolKey(def.ID)] = base
	}
	return pools
}
