package domain

import "time"

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionMCQ QuestionType = "MCQ" // single answer
	QuestionMAQ QuestionType = "MAQ" // multiple answers
	QuestionTF  QuestionType = "TF"  // true/false
)

// Option represents a possible answer for a question, addressed by a one-character key.
type Option struct {
	Key  string `json:"key" yaml:"key"`
	Text string `json:"text" yaml:"text"`
}

// Question is immutable once its quiz is published.
type Question struct {
	ID         string       `json:"id" yaml:"id"`
	Type       QuestionType `json:"type" yaml:"type"`
	Prompt     string       `json:"prompt" yaml:"prompt"`
	Options    []Option     `json:"options" yaml:"options"`
	AnswerKeys []string     `json:"answerKeys" yaml:"answerKeys"`
	Points     int          `json:"points" yaml:"points"` // defaults to 1 if zero
}

// Quiz is a collection of questions owned by a course.
type Quiz struct {
	ID               string     `json:"id" yaml:"id"`
	CourseID         string     `json:"courseId" yaml:"courseId"`
	Title            string     `json:"title" yaml:"title"`
	TimeLimitMinutes int        `json:"timeLimitMinutes" yaml:"timeLimitMinutes"`
	AttemptsAllowed  int        `json:"attemptsAllowed" yaml:"attemptsAllowed"` // defaults to 1 if zero
	Questions        []Question `json:"questions" yaml:"questions"`
}

// QuizView is what a student sees: options in display order, no answer keys.
type QuizView struct {
	ID               string         `json:"id"`
	CourseID         string         `json:"courseId"`
	Title            string         `json:"title"`
	TimeLimitMinutes int            `json:"timeLimitMinutes"`
	AttemptsAllowed  int            `json:"attemptsAllowed"`
	MaxScore         int            `json:"maxScore"`
	Questions        []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []Option     `json:"options"`
	Points  int          `json:"points"`
}

// AnswerSubmission is the set of keys a student selected for one question.
type AnswerSubmission struct {
	QuestionID   string   `json:"qid"`
	SelectedKeys []string `json:"selectedKeys"`
}

// QuestionResult is the per-question grading detail.
type QuestionResult struct {
	QuestionID string `json:"qid"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
}

// Attempt is one student's run through a quiz. It is open until FinishedAt is set.
type Attempt struct {
	ID         string             `json:"id"`
	QuizID     string             `json:"quizId"`
	StudentID  string             `json:"studentId"`
	StartedAt  time.Time          `json:"startedAt"`
	Deadline   *time.Time         `json:"deadline,omitempty"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
	Answers    []AnswerSubmission `json:"answers,omitempty"`
	Score      int                `json:"score"`
	MaxScore   int                `json:"maxScore"`
	Details    []QuestionResult   `json:"details,omitempty"`
}

// Open reports whether the attempt still accepts a submission.
func (a Attempt) Open() bool {
	return a.FinishedAt == nil
}

// AttemptResult summarizes a graded attempt.
type AttemptResult struct {
	AttemptID  string           `json:"attemptId"`
	Score      int              `json:"score"`
	MaxScore   int              `json:"maxScore"`
	Percentage int              `json:"percentage"`
	Details    []QuestionResult `json:"details"`
	FinishedAt time.Time        `json:"finishedAt"`
}

// PollOption is a lettered choice of a live poll.
type PollOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Poll belongs to a course; Votes only ever grows while IsOpen.
type Poll struct {
	ID        string         `json:"id"`
	CourseID  string         `json:"courseId"`
	Question  string         `json:"question"`
	Options   []PollOption   `json:"options"`
	IsOpen    bool           `json:"isOpen"`
	Votes     map[string]int `json:"votes"`
	CreatedAt time.Time      `json:"createdAt"`
}

// DiscussionMessage is immutable once created.
type DiscussionMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessagePage is one page of room history, newest first.
type MessagePage struct {
	Messages   []DiscussionMessage `json:"messages"`
	NextCursor string              `json:"nextCursor,omitempty"`
}

// User is an authenticated platform member.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
