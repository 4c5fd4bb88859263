// Package textmatch searches dictionary phrases in a call's per-participant
// transcript. Matching is token-based: a phrase matches when its words appear
// consecutively in the speaker's transcript, compared case-folded so that
// matching works across scripts, not just ASCII.
package textmatch

import (
	"unicode"

	"golang.org/x/text/cases"

	"callscore/internal/analysis"
	"callscore/internal/store"
)

// Matcher holds the tokenized transcript of one call, split by participant.
type Matcher struct {
	folder cases.Caser
	tokens map[store.Participant][]string
}

// NewMatcher tokenizes the recognition output for phrase search.
func NewMatcher(data analysis.RecognitionData) *Matcher {
	m := &Matcher{
		folder: cases.Fold(),
		tokens: map[store.Participant][]string{},
	}
	for _, utterance := range data.Utterances {
		m.tokens[utterance.Speaker] = append(m.tokens[utterance.Speaker], m.tokenize(utterance.Text)...)
	}
	return m
}

// Contains reports whether the phrase occurs in the speaker's transcript.
// Empty phrases never match.
func (m *Matcher) Contains(phrase string, speaker store.Participant) bool {
	want := m.tokenize(phrase)
	if len(want) == 0 {
		return false
	}
	have := m.tokens[speaker]

	for start := 0; start+len(want) <= len(have); start++ {
		matched := true
		for i, token := range want {
			if have[start+i] != token {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// MatchDictionary reports whether any of the dictionary's phrases occur in
// the bound participant's transcript.
func (m *Matcher) MatchDictionary(dict store.Dictionary, phrases []store.Phrase) bool {
	for _, phrase := range phrases {
		if m.Contains(phrase.Text, dict.Participant) {
			return true
		}
	}
	return false
}

// tokenize folds case and splits on anything that is not a letter or digit.
func (m *Matcher) tokenize(text string) []string {
	folded := m.folder.String(text)

	var tokens []string
	var current []rune
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current = append(current, r)
			continue
		}
		if len(current) > 0 {
			tokens = append(tokens, string(current))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		tokens = append(tokens, string(current))
	}
	return tokens
}
