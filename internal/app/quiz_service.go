package app

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"learnhub-service/internal/domain"
	"learnhub-service/internal/logger"
)

// QuizService contains the attempt lifecycle: start, grade, close.
type QuizService struct {
	quizzes  QuizRepository
	attempts AttemptRepository
	log      *logger.Logger
	now      func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizService(quizzes QuizRepository, attempts AttemptRepository, log *logger.Logger) *QuizService {
	return NewQuizServiceWithClock(quizzes, attempts, log, time.Now)
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(quizzes QuizRepository, attempts AttemptRepository, log *logger.Logger, now func() time.Time) *QuizService {
	return &QuizService{
		quizzes:  quizzes,
		attempts: attempts,
		log:      log.With("component", "QuizService"),
		now:      now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetQuiz returns the student-facing view with options shuffled per read.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.QuizView, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizView{}, err
	}
	return quiz.View(s.shuffle), nil
}

func (s *QuizService) shuffle(options []domain.Option) {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	s.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
}

// StartAttempt opens a new attempt unless the student has used up the quiz's attempts.
func (s *QuizService) StartAttempt(ctx context.Context, quizID, studentID string) (domain.Attempt, error) {
	if studentID == "" {
		return domain.Attempt{}, domain.ErrUnauthorized
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}

	now := s.now()
	attempt := domain.Attempt{
		ID:        uuid.NewString(),
		QuizID:    quiz.ID,
		StudentID: studentID,
		StartedAt: now,
		Score:     0,
		MaxScore:  quiz.MaxScore(),
	}
	if quiz.TimeLimitMinutes > 0 {
		deadline := now.Add(time.Duration(quiz.TimeLimitMinutes) * time.Minute)
		attempt.Deadline = &deadline
	}

	if err := s.attempts.CreateWithinLimit(ctx, attempt, quiz.AttemptLimit()); err != nil {
		return domain.Attempt{}, err
	}
	s.log.Debug("attempt started", "attemptId", attempt.ID, "quizId", quiz.ID, "studentId", studentID)
	return attempt, nil
}

// SubmitAttempt grades the answers and closes the attempt. Closing happens exactly once.
func (s *QuizService) SubmitAttempt(ctx context.Context, attemptID, studentID string, answers []domain.AnswerSubmission) (domain.AttemptResult, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if attempt.StudentID != studentID {
		return domain.AttemptResult{}, domain.ErrForbidden
	}
	if !attempt.Open() {
		return domain.AttemptResult{}, domain.ErrAlreadySubmitted
	}

	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	score, details := gradeAttempt(quiz, answers)
	finishedAt := s.now()
	attempt.FinishedAt = &finishedAt
	attempt.Answers = answers
	attempt.Score = score
	attempt.MaxScore = quiz.MaxScore()
	attempt.Details = details

	if err := s.attempts.Finish(ctx, attempt); err != nil {
		return domain.AttemptResult{}, err
	}
	s.log.Info("attempt graded", "attemptId", attempt.ID, "quizId", quiz.ID, "score", score, "maxScore", attempt.MaxScore)

	return domain.AttemptResult{
		AttemptID:  attempt.ID,
		Score:      score,
		MaxScore:   attempt.MaxScore,
		Percentage: percentage(score, attempt.MaxScore),
		Details:    details,
		FinishedAt: finishedAt,
	}, nil
}

// ListAttempts returns the student's attempts for a quiz, oldest first.
func (s *QuizService) ListAttempts(ctx context.Context, quizID, studentID string) ([]domain.Attempt, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return s.attempts.ListByQuizStudent(ctx, quizID, studentID)
}

// gradeAttempt scores every question of the quiz against the first answer given for it.
func gradeAttempt(quiz domain.Quiz, answers []domain.AnswerSubmission) (int, []domain.QuestionResult) {
	byQuestion := make(map[string][]string, len(answers))
	for _, answer := range answers {
		if _, seen := byQuestion[answer.QuestionID]; seen {
			continue
		}
		byQuestion[answer.QuestionID] = answer.SelectedKeys
	}

	score := 0
	details := make([]domain.QuestionResult, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		selected, answered := byQuestion[question.ID]
		correct := answered && domain.SameKeys(selected, question.AnswerKeys)
		awarded := 0
		if correct {
			awarded = question.EffectivePoints()
			score += awarded
		}
		details = append(details, domain.QuestionResult{
			QuestionID: question.ID,
			Correct:    correct,
			Awarded:    awarded,
		})
	}
	return score, details
}

func percentage(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(maxScore)))
}
