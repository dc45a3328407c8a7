package domain

// QueryIntent selects the prompting strategy for a question.
type QueryIntent string

const (
	IntentFactual     QueryIntent = "factual"
	IntentComparative QueryIntent = "comparative"
	IntentProcedural  QueryIntent = "procedural"
	IntentComplex     QueryIntent = "complex"
)

// Intents lists every intent category.
func Intents() []QueryIntent {
	return []QueryIntent{IntentFactual, IntentComparative, IntentProcedural, IntentComplex}
}

func (i QueryIntent) String() string { return string(i) }
