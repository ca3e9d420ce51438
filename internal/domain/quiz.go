package domain

import "unicode/utf8"

// EffectivePoints returns the points a question is worth; zero counts as one.
func (q Question) EffectivePoints() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// AttemptLimit returns how many attempts a student may start; zero counts as one.
func (q Quiz) AttemptLimit() int {
	if q.AttemptsAllowed <= 0 {
		return 1
	}
	return q.AttemptsAllowed
}

// MaxScore is the sum of every question's points.
func (q Quiz) MaxScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.EffectivePoints()
	}
	return total
}

// Validate checks the structural rules a quiz must satisfy before it can be graded against.
func (q Quiz) Validate() error {
	if q.ID == "" {
		return Invalid("quiz id is required")
	}
	if len(q.Questions) == 0 {
		return Invalid("quiz %s has no questions", q.ID)
	}
	if q.AttemptsAllowed < 0 || q.TimeLimitMinutes < 0 {
		return Invalid("quiz %s has negative limits", q.ID)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if question.ID == "" {
			return Invalid("quiz %s has a question without id", q.ID)
		}
		if _, dup := seen[question.ID]; dup {
			return Invalid("duplicate question id %s", question.ID)
		}
		seen[question.ID] = struct{}{}
		if err := question.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (q Question) validate() error {
	if q.Points < 0 {
		return Invalid("question %s has negative points", q.ID)
	}
	keys := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if utf8.RuneCountInString(opt.Key) != 1 {
			return Invalid("question %s option key %q must be one character", q.ID, opt.Key)
		}
		if _, dup := keys[opt.Key]; dup {
			return Invalid("question %s repeats option key %s", q.ID, opt.Key)
		}
		keys[opt.Key] = struct{}{}
	}
	if len(q.AnswerKeys) == 0 {
		return Invalid("question %s has no answer key", q.ID)
	}
	for _, key := range q.AnswerKeys {
		if _, ok := keys[key]; !ok {
			return Invalid("question %s answer key %s is not an option", q.ID, key)
		}
	}
	answers := KeySet(q.AnswerKeys)
	switch q.Type {
	case QuestionMCQ:
		if len(answers) != 1 {
			return Invalid("question %s (MCQ) needs exactly one answer key", q.ID)
		}
	case QuestionTF:
		if len(q.Options) != 2 || len(answers) != 1 {
			return Invalid("question %s (TF) needs two options and one answer key", q.ID)
		}
	case QuestionMAQ:
	default:
		return Invalid("question %s has unknown type %q", q.ID, q.Type)
	}
	return nil
}

// KeySet collapses a key list into a set; duplicates carry no weight.
func KeySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// SameKeys reports set equality of two key lists.
func SameKeys(a, b []string) bool {
	left, right := KeySet(a), KeySet(b)
	if len(left) != len(right) {
		return false
	}
	for k := range left {
		if _, ok := right[k]; !ok {
			return false
		}
	}
	return true
}

// View strips answer keys. shuffle may reorder each question's options in place; pass nil to keep
// authoring order.
func (q Quiz) View(shuffle func(options []Option)) QuizView {
	view := QuizView{
		ID:               q.ID,
		CourseID:         q.CourseID,
		Title:            q.Title,
		TimeLimitMinutes: q.TimeLimitMinutes,
		AttemptsAllowed:  q.AttemptLimit(),
		MaxScore:         q.MaxScore(),
		Questions:        make([]QuestionView, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		options := append([]Option(nil), question.Options...)
		if shuffle != nil {
			shuffle(options)
		}
		view.Questions = append(view.Questions, QuestionView{
			ID:      question.ID,
			Type:    question.Type,
			Prompt:  question.Prompt,
			Options: options,
			Points:  question.EffectivePoints(),
		})
	}
	return view
}
