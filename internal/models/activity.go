package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog keeps a durable trail of the activity pings broadcast to
// clients. Payload never contains message content, only routing metadata.
type ActivityLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Event     string            `gorm:"size:64;index;not null" json:"event"`
	Payload   datatypes.JSONMap `gorm:"type:json" json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}
