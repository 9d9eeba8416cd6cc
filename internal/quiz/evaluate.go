package quiz

import "strings"

// Evaluate decides whether submitted answers a question correctly.
// Comparison is case-insensitive and trimmed; blank entries are dropped
// before any rule applies.
func Evaluate(q Question, submitted []string) bool {
	correct := sanitize(q.CorrectAnswers)
	answers := sanitize(submitted)

	switch q.Type {
	case TypeSingleChoice, TypeTrueFalse:
		return len(answers) == 1 && contains(correct, answers[0])
	case TypeMultipleChoice:
		return setEqual(dedupe(answers), dedupe(correct))
	case TypeFillInBlank:
		return len(answers) > 0 && contains(correct, answers[0])
	case TypeWriting:
		// Open-ended; scored as correct. Feedback happens elsewhere.
		return true
	default:
		return false
	}
}

func sanitize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func dedupe(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}
