// Database models for chat messages
package db

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents one dialog message belonging to a session
type Message struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	ChatID string `json:"chat_id" gorm:"index;size:64;not null"`

	Role    string `json:"role" gorm:"size:20;not null"` // user, assistant
	Content string `json:"content" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (*Message) TableName() string {
	return "messages"
}
