package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GrantEvent is an audit row written when a schedule is generated or
// regenerated and when a vest event is mutated (withholding, sale, exercise).
type GrantEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	GrantID   uuid.UUID      `gorm:"column:grant_id;type:uuid;not null;index" json:"grant_id"`
	EventType string         `gorm:"column:event_type;not null" json:"event_type"`
	EventData datatypes.JSON `gorm:"column:event_data" json:"event_data"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (GrantEvent) TableName() string {
	return "grant_events"
}

func (e *GrantEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
