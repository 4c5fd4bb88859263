package textmatch

import (
	"testing"

	"callscore/internal/analysis"
	"callscore/internal/store"
)

func matcherFor(t *testing.T, utterances ...analysis.Utterance) *Matcher {
	t.Helper()
	return NewMatcher(analysis.RecognitionData{Utterances: utterances})
}

func TestContainsCaseAndPunctuation(t *testing.T) {
	m := matcherFor(t, analysis.Utterance{
		Text:    "Thank you for calling, how can I help?",
		Speaker: store.ParticipantEmployee,
	})

	if !m.Contains("thank you for calling", store.ParticipantEmployee) {
		t.Fatal("expected case-insensitive match")
	}
	if !m.Contains("HOW CAN I HELP", store.ParticipantEmployee) {
		t.Fatal("expected match across punctuation")
	}
	if m.Contains("thank you for holding", store.ParticipantEmployee) {
		t.Fatal("unexpected match")
	}
}

func TestContainsRequiresConsecutiveWords(t *testing.T) {
	m := matcherFor(t, analysis.Utterance{
		Text:    "let me check the system for that order",
		Speaker: store.ParticipantEmployee,
	})

	if !m.Contains("check the system", store.ParticipantEmployee) {
		t.Fatal("expected consecutive phrase to match")
	}
	if m.Contains("check that order", store.ParticipantEmployee) {
		t.Fatal("non-consecutive words must not match")
	}
}

func TestContainsIsPerParticipant(t *testing.T) {
	m := matcherFor(t,
		analysis.Utterance{Text: "I want a refund", Speaker: store.ParticipantClient},
		analysis.Utterance{Text: "of course, one moment", Speaker: store.ParticipantEmployee},
	)

	if !m.Contains("refund", store.ParticipantClient) {
		t.Fatal("expected client match")
	}
	if m.Contains("refund", store.ParticipantEmployee) {
		t.Fatal("client speech must not match employee searches")
	}
}

func TestContainsSpansUtterances(t *testing.T) {
	m := matcherFor(t,
		analysis.Utterance{Text: "have a nice", Speaker: store.ParticipantEmployee},
		analysis.Utterance{Text: "day", Speaker: store.ParticipantEmployee},
	)

	if !m.Contains("have a nice day", store.ParticipantEmployee) {
		t.Fatal("expected phrase spanning utterances to match")
	}
}

func TestContainsEmptyPhrase(t *testing.T) {
	m := matcherFor(t, analysis.Utterance{Text: "hello", Speaker: store.ParticipantEmployee})

	if m.Contains("", store.ParticipantEmployee) {
		t.Fatal("empty phrase must not match")
	}
	if m.Contains("...", store.ParticipantEmployee) {
		t.Fatal("punctuation-only phrase must not match")
	}
}

func TestMatchDictionary(t *testing.T) {
	m := matcherFor(t, analysis.Utterance{
		Text:    "um so like the thing is",
		Speaker: store.ParticipantEmployee,
	})

	dict := store.Dictionary{ID: 1, Name: "fillers", Participant: store.ParticipantEmployee}
	phrases := []store.Phrase{
		{DictionaryID: 1, Text: "you know"},
		{DictionaryID: 1, Text: "um"},
	}
	if !m.MatchDictionary(dict, phrases) {
		t.Fatal("expected any-phrase match")
	}
	if m.MatchDictionary(dict, []store.Phrase{{DictionaryID: 1, Text: "basically"}}) {
		t.Fatal("unexpected match")
	}
}

func TestFoldedUnicodeMatch(t *testing.T) {
	m := matcherFor(t, analysis.Utterance{
		Text:    "GRÜSSE aus dem Support",
		Speaker: store.ParticipantEmployee,
	})

	if !m.Contains("grüsse", store.ParticipantEmployee) {
		t.Fatal("expected case-folded unicode match")
	}
}
