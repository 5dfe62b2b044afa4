package countdown

import "strings"

// Category is the question kind the countdown budget is selected by.
type Category int

const (
	// CategoryTechnical covers discussion and knowledge questions.
	CategoryTechnical Category = iota
	// CategoryLiveCoding covers questions asking for an implementation.
	CategoryLiveCoding
)

func (c Category) String() string {
	switch c {
	case CategoryLiveCoding:
		return "live_coding"
	default:
		return "technical"
	}
}

// Default stage budgets in minutes.
const (
	DefaultTechnicalMinutes  = 10
	DefaultLiveCodingMinutes = 30
)

// DefaultLiveCodingKeywords mark a prompt as a live-coding exercise.
// Matching is case-insensitive substring search; anything else is a
// technical question.
var DefaultLiveCodingKeywords = []string{
	"implement",
	"write a function",
	"write code",
	"write a program",
	"coding",
	"algorithm",
	"debug",
	"refactor",
	"time complexity",
	"unit test",
}

// Classify decides the category of an incoming question prompt.
func Classify(prompt string, keywords []string) Category {
	if len(keywords) == 0 {
		keywords = DefaultLiveCodingKeywords
	}

	lower := strings.ToLower(prompt)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return CategoryLiveCoding
		}
	}
	return CategoryTechnical
}
