// Shared types for session state and turn analysis
package models

import (
	"github.com/pochemuchka/pochemuchka/pkg/db"
)

// ========== Type aliases for database types ==========
// These allow other packages to use models.Session instead of db.Session

type Session = db.Session
type Message = db.Message
type StringList = db.StringList

// ========== Constant aliases from db package ==========

// Scenario constants
const (
	ScenarioDiscussion    = db.ScenarioDiscussion
	ScenarioExplanation   = db.ScenarioExplanation
	ScenarioUnknown       = db.ScenarioUnknown
	ScenarioImageAnalysis = db.ScenarioImageAnalysis
)

// Message role constants
const (
	RoleUser      = db.RoleUser
	RoleAssistant = db.RoleAssistant
)

// ========== Analysis ==========

// Analysis is the auxiliary model's judgment of one inbound turn. Topic and
// Question are nil when the model returned null or an empty string.
type Analysis struct {
	Scenario           string   `json:"scenario"`
	Topic              *string  `json:"topic"`
	Question           *string  `json:"question"`
	UnderstandingLevel int      `json:"understanding_level"`
	UserPreferences    []string `json:"user_preferences"`
}

// ========== Dynamic context ==========

// DynamicContext is the per-turn structured context produced by merging an
// analysis into the session. It drives prompt assembly and carries no
// presentation text.
type DynamicContext struct {
	Scenario           string
	Topic              *string
	Question           *string
	IsNewTopic         bool
	IsNewQuestion      bool
	UnderstandingLevel int
	PreviousTopic      *string
	PreviousLevel      int
	Preferences        []string

	// RecommendWrapUp is set when the child has fully grasped the topic and
	// the dialog should be steered towards a conclusion or a new topic.
	RecommendWrapUp bool

	// Degraded marks a turn whose analysis failed; the scenario above is
	// unknown for this turn only and the session was left untouched.
	Degraded bool
}
