package query

import (
	"fmt"
	"strings"

	"geoscout/internal/core/domain"
)

// separator is the word that divides the topic phrase from the place
// phrase. Only a standalone occurrence counts; "in" inside another word
// never splits.
const separator = "in"

// conjunction joins topic tokens and is discarded during tokenizing.
const conjunction = "and"

// Parse turns raw user text such as "bus stops and schools in Bordeaux"
// into a ParsedQuery. The input is lowercased and trimmed, split at the
// first standalone "in" (everything after it is the place phrase, even
// when multi-word), and the topic phrase is tokenized on commas,
// whitespace and "and". Tokens the dictionary does not know are dropped
// silently; duplicates collapse.
//
// Parse fails with domain.ErrMalformedQuery when no standalone "in"
// divides the text or either phrase is empty, and with
// domain.ErrUnknownTopics when no token resolves to a filter.
func Parse(raw string) (domain.ParsedQuery, error) {
	text := strings.ToLower(strings.TrimSpace(raw))

	topicPhrase, place, ok := splitOnSeparator(text)
	if !ok || topicPhrase == "" || place == "" {
		return domain.ParsedQuery{}, fmt.Errorf("%w: expected %q", domain.ErrMalformedQuery, "<topics> in <place>")
	}

	seen := make(map[domain.TagFilter]struct{})
	var filters []domain.TagFilter
	for _, token := range topicTokens(topicPhrase) {
		f, known := Lookup(token)
		if !known {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		filters = append(filters, f)
	}
	if len(filters) == 0 {
		return domain.ParsedQuery{}, fmt.Errorf("%w: supported topics are %s",
			domain.ErrUnknownTopics, strings.Join(Topics(), ", "))
	}

	return domain.ParsedQuery{Filters: filters, Place: place}, nil
}

// splitOnSeparator divides text at the first whitespace-delimited "in".
// Both halves come back trimmed; ok is false when no standalone "in"
// exists.
func splitOnSeparator(text string) (topic, place string, ok bool) {
	fields := strings.Fields(text)
	for i, f := range fields {
		if f == separator {
			return strings.Join(fields[:i], " "), strings.Join(fields[i+1:], " "), true
		}
	}
	return "", "", false
}

// topicTokens splits a topic phrase on whitespace and commas, dropping
// the conjunction word and empty fragments.
func topicTokens(phrase string) []string {
	var tokens []string
	for _, field := range strings.Fields(phrase) {
		for _, token := range strings.Split(field, ",") {
			if token == "" || token == conjunction {
				continue
			}
			tokens = append(tokens, token)
		}
	}
	return tokens
}
