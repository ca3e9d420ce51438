package cli

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"learnhub-service/internal/config"
	"learnhub-service/internal/infra/memory"
	"learnhub-service/internal/infra/postgres"
	redisinfra "learnhub-service/internal/infra/redis"
	"learnhub-service/internal/logger"
)

// NewSeedCmd loads quizzes from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert quizzes from a YAML file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			if file == "" {
				file = cfg.Quiz.SeedFile
			}
			if file == "" {
				return fmt.Errorf("no quiz file given (use --file or quiz.seed_file)")
			}
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			quizzes, err := memory.ReadQuizFile(file)
			if err != nil {
				return err
			}

			db := postgres.Open(cfg.Postgres.URL)
			defer db.Close()
			store := postgres.NewQuizStore(db)

			var cache *redisinfra.QuizRepository
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				cache = redisinfra.NewQuizRepository(client, nil, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
			}

			for id, quiz := range quizzes {
				if err := store.Upsert(ctx, quiz); err != nil {
					return err
				}
				if cache != nil {
					if err := cache.Invalidate(ctx, id); err != nil {
						log.Warn("quiz cache invalidation failed", "quizId", id, "error", err)
					}
				}
				log.Info("quiz seeded", "quizId", id, "questions", len(quiz.Questions))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML quiz file (defaults to quiz.seed_file)")
	return cmd
}
