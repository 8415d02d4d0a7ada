// Context reconciliation: merging an analysis into the session
package service

import (
	"strings"

	"github.com/pochemuchka/pochemuchka/pkg/db"
	"github.com/pochemuchka/pochemuchka/pkg/models"
)

// Wrap-up is suggested once the child has reached the top of the scale.
const wrapUpLevel = 9

// Merge folds an analysis into the session and returns the per-turn dynamic
// context. The session is mutated in place; the caller persists it.
//
// A failed analysis leaves the session exactly as loaded: the returned
// context carries the prior state under the unknown scenario, marked
// degraded, so one bad auxiliary call costs a single turn of classification
// and nothing else.
func Merge(session *models.Session, analysis models.Analysis, analysisErr error) models.DynamicContext {
	if analysisErr != nil {
		return models.DynamicContext{
			Scenario:           models.ScenarioUnknown,
			Topic:              session.Topic,
			Question:           session.Question,
			UnderstandingLevel: session.UnderstandingLevel,
			PreviousLevel:      session.PreviousUnderstandingLevel,
			PreviousTopic:      session.PreviousTopic,
			Preferences:        session.UserPreferences,
			Degraded:           true,
		}
	}

	isNewTopic := analysis.Topic != nil && !sameText(session.Topic, analysis.Topic)
	isNewQuestion := isNewTopic ||
		(analysis.Question != nil && !sameText(session.Question, analysis.Question))

	// Snapshots are taken every turn, before any overwrite.
	session.PreviousTopic = session.Topic
	session.PreviousUnderstandingLevel = session.UnderstandingLevel

	if analysis.Topic != nil {
		session.Topic = analysis.Topic
	}
	if analysis.Question != nil {
		session.Question = analysis.Question
	}
	session.UnderstandingLevel = db.ClampUnderstandingLevel(analysis.UnderstandingLevel)
	session.Scenario = analysis.Scenario
	if !db.ValidScenario(session.Scenario) {
		session.Scenario = models.ScenarioUnknown
	}
	session.IsNewTopic = isNewTopic
	session.IsNewQuestion = isNewQuestion
	session.UserPreferences = unionPreferences(session.UserPreferences, analysis.UserPreferences)

	return models.DynamicContext{
		Scenario:           session.Scenario,
		Topic:              session.Topic,
		Question:           session.Question,
		IsNewTopic:         isNewTopic,
		IsNewQuestion:      isNewQuestion,
		UnderstandingLevel: session.UnderstandingLevel,
		PreviousTopic:      session.PreviousTopic,
		PreviousLevel:      session.PreviousUnderstandingLevel,
		Preferences:        session.UserPreferences,
		RecommendWrapUp:    session.UnderstandingLevel >= wrapUpLevel,
	}
}

// sameText compares nullable strings case-insensitively after trimming.
func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return strings.EqualFold(strings.TrimSpace(*a), strings.TrimSpace(*b))
}

// unionPreferences appends new preferences that are not already present,
// comparing case-insensitively and skipping blanks. Existing order is kept.
func unionPreferences(existing db.StringList, incoming []string) db.StringList {
	result := existing
	for _, p := range incoming {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		seen := false
		for _, have := range result {
			if strings.EqualFold(have, trimmed) {
				seen = true
				break
			}
		}
		if !seen {
			result = append(result, trimmed)
		}
	}
	return result
}
