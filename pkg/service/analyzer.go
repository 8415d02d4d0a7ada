// Context analysis via the auxiliary model
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/pochemuchka/pochemuchka/pkg/db"
	"github.com/pochemuchka/pochemuchka/pkg/llm"
	"github.com/pochemuchka/pochemuchka/pkg/models"
	"github.com/pochemuchka/pochemuchka/pkg/prompts"
	"github.com/pochemuchka/pochemuchka/pkg/utils"
)

// generator is the slice of llm.Client the services depend on; tests swap
// in fakes.
type generator interface {
	Generate(ctx context.Context, messages []*schema.Message) (string, error)
}

// Analyzer asks the auxiliary model to judge one inbound turn against the
// recent conversation.
type Analyzer struct {
	model  generator
	window int
	logger *slog.Logger
}

// NewAnalyzer builds an analyzer. window is how many recent history messages
// accompany the turn.
func NewAnalyzer(model generator, window int) *Analyzer {
	if window < 1 {
		window = 1
	}
	return &Analyzer{
		model:  model,
		window: window,
		logger: utils.GetLogger().With("component", "analyzer"),
	}
}

// Analyze returns the model's judgment of the turn. Transport failures wrap
// llm.ErrAnalysis; responses that arrive but cannot be parsed or validated
// wrap llm.ErrValidation (itself an ErrAnalysis).
func (a *Analyzer) Analyze(ctx context.Context, history []*models.Message, turnText string) (models.Analysis, error) {
	messages := make([]*schema.Message, 0, a.window+2)
	messages = append(messages, schema.SystemMessage(prompts.AnalyzerSystem))

	start := 0
	if len(history) > a.window {
		start = len(history) - a.window
	}
	for _, m := range history[start:] {
		switch m.Role {
		case models.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(m.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(m.Content))
		}
	}
	messages = append(messages, schema.UserMessage(turnText))

	raw, err := a.model.Generate(ctx, messages)
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			return models.Analysis{}, err
		}
		return models.Analysis{}, errors.Wrap(llm.ErrAnalysis, err.Error())
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		a.logger.Warn("unparseable analysis response", "error", err)
		return models.Analysis{}, errors.Wrap(llm.ErrValidation, err.Error())
	}
	return analysis, nil
}

// Scenario labels models use interchangeably for the canonical values.
var scenarioSynonyms = map[string]string{
	"topic":    models.ScenarioDiscussion,
	"talk":     models.ScenarioDiscussion,
	"question": models.ScenarioExplanation,
	"qa":       models.ScenarioExplanation,
}

// parseAnalysis decodes the model's JSON, tolerating markdown code fences,
// and normalizes every field: unknown scenarios coerce to unknown, the level
// clamps to its range, blank strings become nulls.
func parseAnalysis(raw string) (models.Analysis, error) {
	payload := stripJSONFences(raw)

	var analysis models.Analysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return models.Analysis{}, errors.Wrap(err, "decode analysis json")
	}

	scenario := strings.ToLower(strings.TrimSpace(analysis.Scenario))
	if canonical, ok := scenarioSynonyms[scenario]; ok {
		scenario = canonical
	}
	if !db.ValidScenario(scenario) {
		scenario = models.ScenarioUnknown
	}
	analysis.Scenario = scenario

	analysis.UnderstandingLevel = db.ClampUnderstandingLevel(analysis.UnderstandingLevel)
	analysis.Topic = normalizeText(analysis.Topic)
	analysis.Question = normalizeText(analysis.Question)

	return analysis, nil
}

// normalizeText trims a nullable string, collapsing blanks to nil.
func normalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// stripJSONFences removes a surrounding markdown code fence and anything
// outside the outermost JSON object.
func stripJSONFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
