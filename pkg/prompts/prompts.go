// Instruction sets for the analyzer and dialog models
package prompts

import (
	"fmt"
	"strings"

	"github.com/pochemuchka/pochemuchka/pkg/models"
)

// AnalyzerSystem instructs the auxiliary model to return a strict JSON
// judgment of the latest turn.
const AnalyzerSystem = "You are an assistant that extracts dialog control parameters. " +
	"Given recent conversation and the latest user message, return a strict JSON object with keys: " +
	"scenario (one of: discussion, explanation, unknown, image_analysis), topic (string|null), question (string|null), " +
	"understanding_level (integer 0-9), user_preferences (array of strings). " +
	"If unsure, prefer unknown/null. Do not add extra keys or text."

// BaseSystem is the dialog model's standing instruction.
const BaseSystem = `You are a friendly and patient educational assistant for children aged 7-11.
Your goal is to explain complex topics in simple, engaging language that children can understand.

Key principles:
- Use simple vocabulary and short sentences
- Respond in the child's language; use the language of their messages
- Provide real-life examples and analogies
- Ask engaging questions to check understanding
- Be encouraging and supportive
- Break down complex concepts into smaller parts
- Use visual descriptions when helpful

Always respond in a warm, encouraging tone that makes learning fun.`

var scenarioPrompts = map[string]string{
	models.ScenarioDiscussion: "Help the child explore and discuss the topic. " +
		"Ask questions and encourage their thoughts.",
	models.ScenarioExplanation: "Provide clear, simple explanations with examples. " +
		"Check understanding and ask follow-up questions.",
	models.ScenarioUnknown: "Be helpful and friendly. Ask clarifying questions " +
		"to understand what the child needs.",
	models.ScenarioImageAnalysis: "The child sent a picture; its description is part of the message. " +
		"Talk about what is on the picture, answer their questions about it, and connect it to things they know.",
}

// ScenarioPrompt returns the instruction for a scenario, falling back to the
// unknown scenario's instruction for unrecognized values.
func ScenarioPrompt(scenario string) string {
	if p, ok := scenarioPrompts[scenario]; ok {
		return p
	}
	return scenarioPrompts[models.ScenarioUnknown]
}

var bandPrompts = map[string]string{
	"low":    "The child is just starting to learn this topic. Use very simple language, lots of examples, and check understanding frequently.",
	"medium": "The child has some basic understanding. You can use slightly more complex explanations and build on their existing knowledge.",
	"high":   "The child has good understanding. You can use more detailed explanations and introduce related concepts.",
}

// UnderstandingBand maps a level to its band label: [0-2] low, [3-6] medium,
// [7-9] high.
func UnderstandingBand(level int) string {
	switch {
	case level <= 2:
		return "low"
	case level <= 6:
		return "medium"
	default:
		return "high"
	}
}

// UnderstandingPrompt returns the band instruction for a level.
func UnderstandingPrompt(level int) string {
	return bandPrompts[UnderstandingBand(level)]
}

// DynamicContextBlock serializes the merged per-turn context into a compact
// readable block for the dialog system prompt. Nil fields are omitted.
func DynamicContextBlock(d models.DynamicContext) string {
	lines := []string{"Context:"}
	lines = append(lines, fmt.Sprintf("- scenario: %s", d.Scenario))
	if d.Topic != nil {
		lines = append(lines, fmt.Sprintf("- topic: %s", *d.Topic))
	}
	if d.Question != nil {
		lines = append(lines, fmt.Sprintf("- question: %s", *d.Question))
	}
	lines = append(lines,
		fmt.Sprintf("- is_new_question: %t", d.IsNewQuestion),
		fmt.Sprintf("- is_new_topic: %t", d.IsNewTopic),
		fmt.Sprintf("- understanding_level: %d", d.UnderstandingLevel),
		fmt.Sprintf("- previous_understanding_level: %d", d.PreviousLevel),
	)
	if d.PreviousTopic != nil {
		lines = append(lines, fmt.Sprintf("- previous_topic: %s", *d.PreviousTopic))
	}
	if len(d.Preferences) > 0 {
		lines = append(lines, fmt.Sprintf("- user_preferences: %s", strings.Join(d.Preferences, ", ")))
	}
	if d.RecommendWrapUp {
		lines = append(lines, "- recommendation: the child understands the topic well; wrap up or suggest a new topic")
	}
	return strings.Join(lines, "\n")
}

// System assembles the full dialog system prompt: base instruction, dynamic
// context block, scenario instruction, understanding band.
func System(d models.DynamicContext) string {
	parts := []string{
		BaseSystem,
		DynamicContextBlock(d),
		ScenarioPrompt(d.Scenario),
		UnderstandingPrompt(d.UnderstandingLevel),
	}
	return strings.Join(parts, "\n\n")
}
