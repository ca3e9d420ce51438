package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"learnhub-service/internal/app"
	"learnhub-service/internal/auth"
	"learnhub-service/internal/domain"
	"learnhub-service/internal/infra/memory"
	"learnhub-service/internal/logger"
)

type testEnv struct {
	server *httptest.Server
	tokens *auth.TokenIssuer
	hub    *app.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	quizzes := app.NewQuizService(quizRepo, memory.NewAttemptStore(), log)
	hub := app.NewHub(memory.NewRoomStore(), memory.NewMessageStore(), memory.NewPollStore(), log, 32)
	authSvc := app.NewAuthService(memory.NewUserStore(), tokens, log)

	router := NewRouter(RouterConfig{
		Handlers: NewHandlers(quizzes, hub, authSvc, log),
		WS:       NewWSHandler(hub, authSvc, log),
		Log:      log,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, tokens: tokens, hub: hub}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.tokens.Issue(userID, userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:              "quiz-1",
			CourseID:        "course-1",
			Title:           "Basics",
			AttemptsAllowed: 2,
			Questions: []domain.Question{
				{
					ID:         "q1",
					Type:       domain.QuestionMCQ,
					Prompt:     "What is 2 + 2?",
					Options:    []domain.Option{{Key: "A", Text: "3"}, {Key: "B", Text: "4"}, {Key: "C", Text: "5"}},
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
		},
	}
}
