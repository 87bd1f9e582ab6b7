package models

import "time"

// Group message actions. Synthetic lifecycle entries share the log with user
// messages so ordering is preserved exactly as events happened.
const (
	GroupActionMessage  = "message"
	GroupActionCreation = "group_creation"
	GroupActionJoin     = "join"
	GroupActionLeave    = "leave"
)

// PrivateChat is a one-to-one conversation. CustomID is the canonical key
// formed by sorting the two usernames and joining them with "-", so the same
// chat is found regardless of which side initiated it.
type PrivateChat struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	CustomID  string           `gorm:"size:160;uniqueIndex;not null" json:"custom_id"`
	Messages  []PrivateMessage `gorm:"constraint:OnDelete:CASCADE" json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// PrivateMessage is one entry in a private chat log. SentAt carries the
// client-supplied timestamp; CreatedAt records the durable write.
type PrivateMessage struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PrivateChatID uint      `gorm:"index;not null" json:"private_chat_id"`
	From          string    `gorm:"size:64;not null" json:"from"`
	Content       string    `gorm:"type:text" json:"content"`
	SentAt        time.Time `json:"sent_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// GroupChat is a named conversation with an explicit participant list.
type GroupChat struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	Name         string             `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Participants []GroupParticipant `gorm:"constraint:OnDelete:CASCADE" json:"participants"`
	Messages     []GroupMessage     `gorm:"constraint:OnDelete:CASCADE" json:"messages"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// GroupParticipant records membership. Position preserves the order members
// were added in.
type GroupParticipant struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	GroupChatID uint   `gorm:"index;uniqueIndex:idx_group_member;not null" json:"group_chat_id"`
	Username    string `gorm:"size:64;uniqueIndex:idx_group_member;not null" json:"username"`
	Position    int    `gorm:"not null" json:"position"`
}

// GroupMessage is one entry in a group log, either a user message or a
// synthetic lifecycle event distinguished by Action.
type GroupMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GroupChatID uint      `gorm:"index;not null" json:"group_chat_id"`
	From        string    `gorm:"size:64;not null" json:"from"`
	Content     string    `gorm:"type:text" json:"content"`
	Action      string    `gorm:"size:32;default:message" json:"action"`
	SentAt      time.Time `json:"sent_at"`
	CreatedAt   time.Time `json:"created_at"`
}
