package tui

import (
	"fmt"
	"regexp"
	"strings"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/tokenize"
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

func renderExcerpts(res domain.RetrievalResult, query string) string {
	if res.Empty() {
		return "No passages to show yet."
	}
	parts := make([]string, 0, res.Len())
	for i, sc := range res.Chunks {
		title := fmt.Sprintf("[%d] %s · %s %.2f", i+1, sc.Chunk.Locator(), sc.Method, sc.Score)
		parts = append(parts, title+"\n"+highlightBestSentence(sc.Chunk.Text, query))
	}
	return strings.Join(parts, "\n\n")
}

// highlightBestSentence emphasizes the sentence sharing the most words with
// the query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	queryTokens := tokenize.Set(query)
	if len(queryTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := overlap(queryTokens, s); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx >= 0 {
		sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	}
	return strings.Join(sentences, " ")
}

func overlap(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range tokenize.Set(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
