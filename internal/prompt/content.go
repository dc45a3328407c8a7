package prompt

import "ragchitchat/internal/domain"

// DefaultSystemPrompt frames every conversation.
const DefaultSystemPrompt = `You are 'CTSE Scholar', an educational assistant specialized in Current Trends in Software Engineering (CTSE).
You answer from university-level lecture notes of the CTSE course.

YOUR CAPABILITIES:
- Explain complex software engineering concepts with academic precision
- Provide examples relevant to modern software development practices
- Connect theoretical concepts to practical applications in the industry

YOUR LIMITATIONS:
- You only possess knowledge contained in the CTSE lecture notes
- You should acknowledge when information is not available in your knowledge base

RESPONSE GUIDELINES:
- Begin with a direct, concise answer to the question
- Structure longer responses with headings and bullet points
- Cite specific lectures or sections when possible
- For complex topics, break explanations down into sequential logical steps`

// NoContextMessage is shown to the model when retrieval finds nothing.
const NoContextMessage = "No relevant context information was found in the documents to answer this question."

const comparisonFormat = `
Format your response as a comparison between concepts:
## Concept A
- Key characteristics
- Advantages
- Disadvantages

## Concept B
- Key characteristics
- Advantages
- Disadvantages

## Comparison
| Aspect | Concept A | Concept B |
| ------ | --------- | --------- |
| Aspect 1 | Value for A | Value for B |
`

const stepsFormat = `
Format your response as a step-by-step guide using:
## Process Overview
Brief overview of the process

## Step 1: [Step Name]
Explanation of step 1

## Step 2: [Step Name]
Explanation of step 2

And so on, with clear numbered steps and explanations.
`

const reflectionFormat = `
Structure your response as "## Draft Answer", then "## Self-Reflection", then "## Improved Answer".
`

// strategy is the template and format instructions used for one intent.
type strategy struct {
	template string
	format   string
	fewShot  bool
}

var strategies = map[domain.QueryIntent]strategy{
	domain.IntentFactual:     {template: "factual.tmpl"},
	domain.IntentComparative: {template: "structured.tmpl", format: comparisonFormat},
	domain.IntentProcedural:  {template: "structured.tmpl", format: stepsFormat},
	domain.IntentComplex:     {template: "complex.tmpl", format: reflectionFormat, fewShot: true},
}

type criterion struct {
	Name     string
	Question string
}

var criteria = []criterion{
	{"accuracy", "Does the response accurately reflect the information in the context?"},
	{"completeness", "Are all parts of the question addressed?"},
	{"clarity", "Is the explanation clear and well-structured?"},
	{"precision", "Is academic terminology used correctly?"},
	{"evidence", "Are claims supported with references to the lecture content?"},
	{"citation", "Are sources and page/slide numbers cited wherever context is used?"},
}

// Example is a worked question and answer shown to the model.
type Example struct {
	Question string
	Answer   string
}

// DefaultExamples are offered to complex questions when the budget allows.
var DefaultExamples = []Example{
	{
		Question: "What is continuous integration?",
		Answer: `## Continuous Integration

Continuous Integration (CI) is a practice where developers merge their changes into a shared repository frequently, after which automated builds and tests run.

Key benefits:
- Early detection of integration issues
- Reduced integration complexity
- Improved code quality through automated testing

According to Document 1: devops.pdf, Page 4, CI is the first step toward an automated delivery pipeline.`,
	},
	{
		Question: "Explain the difference between microservices and monolithic architecture.",
		Answer: `## Microservices vs. Monolithic Architecture

### Monolithic Architecture
- **Structure**: single codebase and deployment unit
- **Scaling**: scales as one unit

### Microservices Architecture
- **Structure**: small, independently deployable services
- **Scaling**: services scale independently

According to Document 2: architecture.pdf, Page 7, organizations often evolve from monoliths to microservices as they grow.`,
	},
}
