package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"relay-quiz-service/internal/app"
	"relay-quiz-service/internal/config"
	"relay-quiz-service/internal/domain"
	"relay-quiz-service/internal/infra/memory"
	pgloader "relay-quiz-service/internal/infra/postgres"
	redisinfra "relay-quiz-service/internal/infra/redis"
	transport "relay-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionBanks())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	questionTTL := config.Duration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	var store app.RoomStore
	if redisClient != nil {
		store = redisinfra.NewRoomStore(redisClient, redisTTL)
	} else {
		store = memory.NewRoomStore()
	}

	var sink app.ResultSink = memory.NewResultSink()
	if pool != nil {
		sink = pgloader.NewResultSink(pool)
	}

	registry := app.NewRegistry(store, questions, sink, app.Config{
		TurnTimeout:      config.Duration(cfg.Game.TurnTimeout, 20*time.Second),
		QuestionsPerGame: cfg.Game.QuestionsPerGame,
		MaxPlayers:       cfg.Game.MaxPlayers,
		MinPlayers:       cfg.Game.MinPlayers,
		RoomIdleTTL:      config.Duration(cfg.Game.RoomIdleTTL, 5*time.Minute),
	})

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go registry.RunSweeper(sweepCtx, config.Duration(cfg.Game.SweepInterval, 30*time.Second))

	wsHandler := transport.NewWSHandler(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting relay quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestionBanks provides a minimal question source for running without
// Postgres; swap the loader for the database-backed one in production.
func sampleQuestionBanks() map[string][]domain.Question {
	return map[string][]domain.Question{
		"History": {
			{
				Prompt:  "In which year did World War II end?",
				Options: []string{"1943", "1945", "1947", "1950"},
				Answer:  "1945",
				Topic:   "History",
			},
			{
				Prompt:  "Who was the first president of the United States?",
				Options: []string{"Thomas Jefferson", "John Adams", "George Washington", "James Madison"},
				Answer:  "George Washington",
				Topic:   "History",
			},
			{
				Prompt:  "Which empire built the Colosseum?",
				Options: []string{"Greek", "Roman", "Ottoman", "Byzantine"},
				Answer:  "Roman",
				Topic:   "History",
			},
		},
		"Science": {
			{
				Prompt:  "What is the chemical symbol for gold?",
				Options: []string{"Go", "Gd", "Au", "Ag"},
				Answer:  "Au",
				Topic:   "Science",
			},
			{
				Prompt:  "How many planets orbit the Sun?",
				Options: []string{"7", "8", "9", "10"},
				Answer:  "8",
				Topic:   "Science",
			},
		},
	}
}
