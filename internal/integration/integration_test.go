package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"learnhub-service/internal/app"
	"learnhub-service/internal/domain"
	"learnhub-service/internal/infra/postgres"
	infraredis "learnhub-service/internal/infra/redis"
	"learnhub-service/internal/logger"
)

func TestQuizAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migratedDB(t, ctx, pgURL)
	if err := postgres.NewQuizStore(db).Upsert(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient := redisClientFromURL(t, redisURL)
	quizRepo := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)
	service := app.NewQuizService(quizRepo, postgres.NewAttemptStore(db), logger.Nop())

	// concurrent starts still respect the cap of 2
	var wg sync.WaitGroup
	var mu sync.Mutex
	var started []domain.Attempt
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			attempt, err := service.StartAttempt(ctx, "quiz-1", "s1")
			if err == nil {
				mu.Lock()
				started = append(started, attempt)
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrLimitExceeded) {
				t.Errorf("start: %v", err)
			}
		}()
	}
	wg.Wait()
	if len(started) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(started))
	}

	result, err := service.SubmitAttempt(ctx, started[0].ID, "s1", []domain.AnswerSubmission{
		{QuestionID: "q1", SelectedKeys: []string{"B"}},
		{QuestionID: "q2", SelectedKeys: []string{"A"}},
		{QuestionID: "q3", SelectedKeys: []string{"T"}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 3 || result.MaxScore != 5 || result.Percentage != 60 {
		t.Fatalf("expected 3/5 (60%%), got %+v", result)
	}
	if _, err := service.SubmitAttempt(ctx, started[0].ID, "s1", nil); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}

	attempts, err := service.ListAttempts(ctx, "quiz-1", "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 stored attempts, got %d", len(attempts))
	}
	for _, a := range attempts {
		if a.ID == started[0].ID && (a.Open() || a.Score != 3 || len(a.Details) != 3) {
			t.Fatalf("graded attempt not persisted: %+v", a)
		}
	}
}

func TestRealtimeAcrossInstances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migratedDB(t, ctx, pgURL)
	messages := postgres.NewMessageStore(db)
	polls := postgres.NewPollStore(db)

	newInstance := func() *app.Hub {
		client := redisClientFromURL(t, redisURL)
		hub := app.NewHub(infraredis.NewRoomStore(client, time.Minute), messages, polls, logger.Nop(), 128)
		if err := hub.UseRelay(ctx, infraredis.NewRelay(client, "learnhub:it", logger.Nop())); err != nil {
			t.Fatalf("use relay: %v", err)
		}
		return hub
	}
	hubA, hubB := newInstance(), newInstance()

	listener := hubA.Connect("alice", "Alice")
	if err := hubA.Join(listener, "course-1"); err != nil {
		t.Fatalf("join: %v", err)
	}

	msg, err := hubB.PostMessage(ctx, "course-1", "bob", "hello from B")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	ev := waitEvent(t, listener, app.EventMessage)
	if payload, ok := ev.Payload.(map[string]any); !ok || payload["id"] != msg.ID {
		t.Fatalf("unexpected relayed payload %#v", ev.Payload)
	}

	poll, err := hubB.CreatePoll(ctx, "course-1", "Ready?", []string{"yes", "no"})
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	waitEvent(t, listener, app.EventPollCreated)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hub := hubA
			if i%2 == 0 {
				hub = hubB
			}
			if _, err := hub.RecordVote(ctx, poll.ID, "A"); err != nil {
				t.Errorf("vote: %v", err)
			}
		}(i)
	}
	wg.Wait()
	stored, err := polls.Get(ctx, poll.ID)
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if stored.Votes["A"] != 10 {
		t.Fatalf("expected 10 votes, got %+v", stored.Votes)
	}

	if _, err := hubA.ClosePoll(ctx, poll.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := hubB.RecordVote(ctx, poll.ID, "B"); !errors.Is(err, domain.ErrInvalidVoteTarget) {
		t.Fatalf("expected invalid target after close, got %v", err)
	}

	page, err := hubA.History(ctx, "course-1", "", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Messages) != 1 || page.Messages[0].ID != msg.ID {
		t.Fatalf("unexpected history %+v", page)
	}
}

func TestUserStoreUniqueEmail(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	users := postgres.NewUserStore(migratedDB(t, ctx, pgURL))

	user := domain.User{ID: "u1", Email: "ada@example.com", Name: "Ada", PasswordHash: "x", CreatedAt: time.Now()}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	user.ID = "u2"
	if err := users.Create(ctx, user); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	got, err := users.GetByEmail(ctx, "ada@example.com")
	if err != nil || got.ID != "u1" {
		t.Fatalf("get by email: %+v, %v", got, err)
	}
}

func waitEvent(t *testing.T, conn *app.Conn, typ string) app.Event {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-conn.Events():
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func migratedDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	db := postgres.Open(dsn)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "learnhub", "POSTGRES_PASSWORD": "learnhub", "POSTGRES_DB": "learnhub"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://learnhub:learnhub@%s:%s/learnhub?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(context.Background())
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	return fmt.Sprintf("redis://%s:%s", host, port.Port()), func() {
		_ = container.Terminate(context.Background())
	}
}

func redisClientFromURL(t *testing.T, url string) *goredis.Client {
	t.Helper()
	opts, err := goredis.ParseURL(url)
	if err != nil {
		t.Fatalf("redis url: %v", err)
	}
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              "quiz-1",
		CourseID:        "course-1",
		Title:           "Basics",
		AttemptsAllowed: 2,
		Questions: []domain.Question{
			{
				ID:         "q1",
				Type:       domain.QuestionMCQ,
				Prompt:     "What is 2 + 2?",
				Options:    []domain.Option{{Key: "A", Text: "3"}, {Key: "B", Text: "4"}},
				AnswerKeys: []string{"B"},
				Points:     2,
			},
			{
				ID:         "q2",
				Type:       domain.QuestionMAQ,
				Prompt:     "Pick the primes",
				Options:    []domain.Option{{Key: "A", Text: "2"}, {Key: "B", Text: "4"}, {Key: "C", Text: "5"}},
				AnswerKeys: []string{"A", "C"},
				Points:     2,
			},
			{
				ID:         "q3",
				Type:       domain.QuestionTF,
				Prompt:     "Go has goroutines",
				Options:    []domain.Option{{Key: "T", Text: "True"}, {Key: "F", Text: "False"}},
				AnswerKeys: []string{"T"},
				Points:     1,
			},
		},
	}
}
