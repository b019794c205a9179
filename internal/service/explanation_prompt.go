package service

import (
	"fmt"
	"strings"

	"github.com/stemsi/exstem-practice/internal/llm"
	"github.com/stemsi/exstem-practice/internal/model"
)

const explanationSystemPrompt = `You are a patient exam tutor. Explain why the correct answer is correct and, ` +
	`when the learner chose differently, where their reasoning most likely went wrong. ` +
	`Be concise and concrete. Write in the requested locale.`

// ExplanationSchema is the structured output every provider must return.
var ExplanationSchema = &llm.Schema{
	Name:        "question-explanation",
	Description: "A structured explanation of a practice question and the learner's answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Two or three sentence overview",
			},
			"keyPoints": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"steps": map[string]any{
				"type":        "array",
				"description": "Ordered solution steps",
				"items":       map[string]any{"type": "string"},
			},
			"relatedConcepts": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"confidence": map[string]any{
				"type": "string",
				"enum": []string{string(model.ConfidenceLow), string(model.ConfidenceMedium), string(model.ConfidenceHigh)},
			},
		},
		"required":             []string{"summary", "keyPoints", "steps", "relatedConcepts", "confidence"},
		"additionalProperties": false,
	},
}

// buildExplanationPrompt renders the user prompt for one question and answer.
func buildExplanationPrompt(q *model.Question, selectedChoiceIDs []string, locale string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Locale: %s\n", locale)
	if q.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", q.Subject)
	}
	if q.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", q.Difficulty)
	}

	b.WriteString("\nQuestion:\n")
	b.WriteString(q.Stem)
	b.WriteString("\n\nOptions:\n")
	for _, c := range q.Choices {
		fmt.Fprintf(&b, "%s. %s\n", c.Label, c.Text)
	}

	fmt.Fprintf(&b, "\nLearner selected: %s\n", labelList(q.ChoiceLabels(selectedChoiceIDs)))
	fmt.Fprintf(&b, "Correct answer: %s\n", labelList(q.ChoiceLabels(q.CorrectChoiceIDs)))
	return b.String()
}

func labelList(labels []string) string {
	if len(labels) == 0 {
		return "none"
	}
	return strings.Join(labels, ", ")
}
