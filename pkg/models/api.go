// HTTP API request/response types
package models

import "time"

// TurnRequest is one inbound user turn.
type TurnRequest struct {
	ChatID  string `json:"chat_id" binding:"required"`
	Content string `json:"content"`

	// Optional media payloads, routed through the capability interfaces.
	// Exactly one of Content, VoiceData, ImageData is expected.
	VoiceData []byte `json:"voice_data,omitempty"`
	ImageData []byte `json:"image_data,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// TurnResponse carries the assistant reply plus the post-turn session view.
type TurnResponse struct {
	ChatID   string       `json:"chat_id"`
	Reply    string       `json:"reply"`
	Degraded bool         `json:"degraded,omitempty"`
	Session  *SessionView `json:"session,omitempty"`
}

// SessionView is the external representation of a session.
type SessionView struct {
	ChatID             string    `json:"chat_id"`
	Scenario           string    `json:"scenario"`
	Topic              *string   `json:"topic"`
	Question           *string   `json:"question"`
	UnderstandingLevel int       `json:"understanding_level"`
	PreviousTopic      *string   `json:"previous_topic"`
	UserPreferences    []string  `json:"user_preferences,omitempty"`
	MessageCount       int       `json:"message_count"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewSessionView builds the external view from a session row.
func NewSessionView(s *Session, messageCount int) *SessionView {
	return &SessionView{
		ChatID:             s.ChatID,
		Scenario:           s.Scenario,
		Topic:              s.Topic,
		Question:           s.Question,
		UnderstandingLevel: s.UnderstandingLevel,
		PreviousTopic:      s.PreviousTopic,
		UserPreferences:    s.UserPreferences,
		MessageCount:       messageCount,
		UpdatedAt:          s.UpdatedAt,
	}
}
