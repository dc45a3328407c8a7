package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ragchitchat/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		question string
		want     domain.QueryIntent
	}{
		{"Compare agile and waterfall", domain.IntentComparative},
		{"How do I containerize an app?", domain.IntentProcedural},
		{"What is CI?", domain.IntentFactual},
		{"Kubernetes vs. Docker Swarm", domain.IntentComparative},
		{"What are the pros and cons of microservices?", domain.IntentComparative},
		{"What are the steps to set up a CI pipeline?", domain.IntentProcedural},
		{"Why do teams adopt DevOps?", domain.IntentComplex},
		{"Explain the relationship between testing and deployment frequency", domain.IntentComplex},
		{"Who coined the term DevOps?", domain.IntentFactual},
		{"What is the waterfall method?", domain.IntentFactual},
		{"What is the process for code review?", domain.IntentFactual},
		{"Build a CI pipeline", domain.IntentProcedural},
		{"Describe the deployment process", domain.IntentProcedural},
		{"", domain.IntentFactual},
		{"?!", domain.IntentFactual},
		{
			"Thinking about the last lecture on platform engineering I wonder whether internal developer portals change team topology in larger organisations",
			domain.IntentComplex,
		},
		{
			"What is the name of the tool that the lecturer mentioned in week three for tracking technical debt across many repositories at once",
			domain.IntentFactual,
		},
		{"Serverless cuts ops work, but cold starts hurt latency, and costs grow with traffic", domain.IntentComplex},
	}
	for _, tc := range cases {
		t.Run("Should classify "+tc.question, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.question))
		})
	}

	t.Run("Should match cues on word boundaries", func(t *testing.T) {
		// "canvas" contains "vs" and "reprocessing" contains "process".
		assert.Equal(t, domain.IntentFactual, Classify("What is a canvas?"))
		assert.Equal(t, domain.IntentFactual, Classify("What is reprocessing?"))
	})

	t.Run("Should be deterministic", func(t *testing.T) {
		q := "How to configure GitHub Actions?"
		first := Classify(q)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Classify(q))
		}
	})
}
