package services

import (
	"errors"
	"strings"
)

// ErrRefusal is returned when the model declined the task instead of doing it.
var ErrRefusal = errors.New("model response indicates refusal")

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// cleanGenerated trims whitespace and a wrapping code fence from model output.
func cleanGenerated(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// checkSummary cleans a generated summary and rejects refusals and empty output.
// Only output that opens with a refusal phrase counts as one; a summary may
// quote such a phrase from the document.
func checkSummary(text string) (string, error) {
	s := cleanGenerated(text)
	if s == "" {
		return "", upstream("model returned an empty summary", nil)
	}
	lower := strings.ToLower(s)
	for _, phrase := range refusalPhrases {
		if strings.HasPrefix(lower, phrase) {
			return "", upstream("generated text rejected", ErrRefusal)
		}
	}
	return s, nil
}
