// Package intent assigns a prompting strategy to a question from lexical cues.
package intent

import (
	"strings"
	"unicode/utf8"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/tokenize"
)

var (
	comparativeCues = []string{
		"compare", "comparison", "difference between", "differences", "versus", "vs",
		"pros and cons", "advantages and disadvantages", "similarities", "contrast",
	}
	proceduralCues = []string{
		"how to", "how do i", "how can i", "how should i", "steps", "step by step",
		"set up", "configure", "install", "deploy", "containerize",
	}
	// Weak cues also name things, as in "what is the waterfall method".
	weakProceduralCues = []string{
		"process", "procedure", "workflow", "implement", "develop", "create", "build",
		"method", "approach",
	}
	complexCues = []string{
		"why", "explain", "analyze", "analyse", "evaluate", "assess", "implications",
		"impact", "effect", "relationship", "critically", "how does",
	}
	factualLeads = []string{"what is", "what are", "define", "who", "when", "where", "list"}
	clauseWords  = map[string]struct{}{
		"and": {}, "but": {}, "because": {}, "while": {}, "whereas": {}, "which": {}, "although": {}, "if": {},
	}
)

const (
	longQuestionRunes = 100
	longQuestionWords = 15
	manyClauses       = 3
)

// Classify is pure and never fails. Cues match on word boundaries and
// are checked comparative, then procedural, then complex. Anything else is
// factual. A short question opening with a factual lead ignores the weak
// procedural cues.
func Classify(question string) domain.QueryIntent {
	words := tokenize.Words(question)
	if len(words) == 0 {
		return domain.IntentFactual
	}
	text := " " + strings.Join(words, " ") + " "
	long := utf8.RuneCountInString(strings.TrimSpace(question)) > longQuestionRunes || len(words) > longQuestionWords
	factualLead := startsWithAny(text, factualLeads)

	switch {
	case containsAny(text, comparativeCues):
		return domain.IntentComparative
	case containsAny(text, proceduralCues):
		return domain.IntentProcedural
	case containsAny(text, weakProceduralCues) && (long || !factualLead):
		return domain.IntentProcedural
	case containsAny(text, complexCues):
		return domain.IntentComplex
	}

	if (long || clauses(question, words) >= manyClauses) && !factualLead {
		return domain.IntentComplex
	}
	return domain.IntentFactual
}

func containsAny(padded string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(padded, " "+c+" ") {
			return true
		}
	}
	return false
}

func startsWithAny(padded string, leads []string) bool {
	for _, l := range leads {
		if strings.HasPrefix(padded, " "+l+" ") {
			return true
		}
	}
	return false
}

// clauses estimates the clause count from punctuation and conjunctions.
func clauses(question string, words []string) int {
	n := 1 + strings.Count(question, ",") + strings.Count(question, ";")
	for _, w := range words {
		if _, ok := clauseWords[w]; ok {
			n++
		}
	}
	return n
}
