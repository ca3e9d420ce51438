package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"learnhub-service/internal/app"
	"learnhub-service/internal/auth"
	"learnhub-service/internal/config"
	"learnhub-service/internal/domain"
	"learnhub-service/internal/infra/memory"
	"learnhub-service/internal/infra/postgres"
	redisinfra "learnhub-service/internal/infra/redis"
	"learnhub-service/internal/logger"
	transport "learnhub-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores groups the repositories chosen from configuration.
type stores struct {
	quizzes  app.QuizRepository
	attempts app.AttemptRepository
	polls    app.PollRepository
	messages app.MessageRepository
	users    app.UserRepository
	rooms    app.RoomRepository
	relay    app.Relay
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		return err
	}

	quizService := app.NewQuizService(st.quizzes, st.attempts, log)
	authService := app.NewAuthService(st.users, tokens, log)
	hub := app.NewHub(st.rooms, st.messages, st.polls, log, cfg.OutboundBuffer())
	if st.relay != nil {
		if err := hub.UseRelay(ctx, st.relay); err != nil {
			return err
		}
	}

	if cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewRouter(transport.RouterConfig{
		Handlers:    transport.NewHandlers(quizService, hub, authService, log),
		WS:          transport.NewWSHandler(hub, authService, log),
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log,
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting learnhub service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
			cancel()
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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// buildStores picks Postgres for durable records, Redis for caches, live polls and fan-out,
// and in-memory stores for whatever is not configured.
func buildStores(ctx context.Context, cfg config.Config, log *logger.Logger) (*stores, error) {
	st := &stores{}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var loader memory.QuizLoader
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		loader = postgres.NewQuizLoader(pool)

		db := postgres.Open(cfg.Postgres.URL)
		st.closers = append(st.closers, func() { _ = db.Close() })
		st.attempts = postgres.NewAttemptStore(db)
		st.messages = postgres.NewMessageStore(db)
		st.users = postgres.NewUserStore(db)
		st.polls = postgres.NewPollStore(db)
	} else {
		quizzes := map[string]domain.Quiz{}
		if cfg.Quiz.SeedFile != "" {
			loaded, err := memory.ReadQuizFile(cfg.Quiz.SeedFile)
			if err != nil {
				return nil, err
			}
			quizzes = loaded
		}
		log.Warn("postgres not configured, using in-memory stores", "quizzes", len(quizzes))
		loader = memory.NewStaticQuizLoader(quizzes)
		st.attempts = memory.NewAttemptStore()
		st.messages = memory.NewMessageStore()
		st.users = memory.NewUserStore()
		st.polls = memory.NewPollStore()
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = client.Close() })
		redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

		st.quizzes = redisinfra.NewQuizRepository(client, loader, quizTTL)
		st.rooms = redisinfra.NewRoomStore(client, redisTTL)
		st.polls = redisinfra.NewPollStore(client)
		st.relay = redisinfra.NewRelay(client, cfg.RedisChannel(), log)
	} else {
		st.quizzes = memory.NewQuizRepository(loader, quizTTL)
		st.rooms = memory.NewRoomStore()
	}
	return st, nil
}
