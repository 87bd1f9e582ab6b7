package models

import "time"

// User is a registered account. The username doubles as the routing key for
// private chats and group membership.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BlockRelation is a directed block edge. A single row backs both views of the
// relation: rows where Blocker matches are the user's blocked list, rows where
// Blocked matches are the user's blocked-by list, so the two can never drift.
type BlockRelation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Blocker   string    `gorm:"size:64;index;uniqueIndex:idx_block_pair;not null" json:"blocker"`
	Blocked   string    `gorm:"size:64;index;uniqueIndex:idx_block_pair;not null" json:"blocked"`
	CreatedAt time.Time `json:"created_at"`
}
