// Database models for tutoring sessions
package db

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Session scenarios
const (
	ScenarioDiscussion    = "discussion"
	ScenarioExplanation   = "explanation"
	ScenarioUnknown       = "unknown"
	ScenarioImageAnalysis = "image_analysis"
)

// Understanding level bounds. The level is an integer score of how well the
// child currently follows the topic; new sessions start in the middle.
const (
	MinUnderstandingLevel     = 0
	MaxUnderstandingLevel     = 9
	DefaultUnderstandingLevel = 5
)

// Session represents the persisted dialog state of one chat
type Session struct {
	ChatID string `json:"chat_id" gorm:"primaryKey;size:64"`

	Scenario string  `json:"scenario" gorm:"size:20;default:'unknown'"` // discussion, explanation, unknown, image_analysis
	Topic    *string `json:"topic,omitempty" gorm:"size:500"`
	Question *string `json:"question,omitempty" gorm:"size:1000"`

	// Flags describing the latest processed turn only
	IsNewTopic    bool `json:"is_new_topic" gorm:"default:false"`
	IsNewQuestion bool `json:"is_new_question" gorm:"default:false"`

	UnderstandingLevel         int     `json:"understanding_level" gorm:"default:5"`
	PreviousUnderstandingLevel int     `json:"previous_understanding_level" gorm:"default:5"`
	PreviousTopic              *string `json:"previous_topic,omitempty" gorm:"size:500"`

	UserPreferences StringList `json:"user_preferences,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// NewSession returns the default state used on first contact with a chat.
func NewSession(chatID string) *Session {
	return &Session{
		ChatID:                     chatID,
		Scenario:                   ScenarioUnknown,
		UnderstandingLevel:         DefaultUnderstandingLevel,
		PreviousUnderstandingLevel: DefaultUnderstandingLevel,
	}
}

// ValidScenario reports whether s is one of the known scenario values.
func ValidScenario(s string) bool {
	switch s {
	case ScenarioDiscussion, ScenarioExplanation, ScenarioUnknown, ScenarioImageAnalysis:
		return true
	}
	return false
}

// ClampUnderstandingLevel forces a level into the valid range.
func ClampUnderstandingLevel(level int) int {
	if level < MinUnderstandingLevel {
		return MinUnderstandingLevel
	}
	if level > MaxUnderstandingLevel {
		return MaxUnderstandingLevel
	}
	return level
}

// StringList is a slice of strings stored as JSON in a text column
type StringList []string

// Value implements driver.Valuer for database storage
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for database retrieval
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return nil
}
