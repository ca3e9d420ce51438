package domain

// MaxPollOptions bounds poll options to the letters A..Z.
const MaxPollOptions = 26

// LetterOptions assigns sequential letter keys starting at 'A'.
func LetterOptions(texts []string) ([]PollOption, error) {
	if len(texts) < 2 {
		return nil, Invalid("a poll needs at least two options")
	}
	if len(texts) > MaxPollOptions {
		return nil, Invalid("a poll supports at most %d options", MaxPollOptions)
	}
	options := make([]PollOption, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, Invalid("poll option %d is empty", i+1)
		}
		options[i] = PollOption{Key: string(rune('A' + i)), Text: text}
	}
	return options, nil
}

// HasOption reports whether key names one of the poll's options.
func (p Poll) HasOption(key string) bool {
	for _, opt := range p.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// Results returns the full tally with every option key present.
func (p Poll) Results() map[string]int {
	results := make(map[string]int, len(p.Options))
	for _, opt := range p.Options {
		results[opt.Key] = p.Votes[opt.Key]
	}
	return results
}
