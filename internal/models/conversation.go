package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation represents a single prompt/response exchange with the assistant
type Conversation struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
	Prompt     string    `gorm:"type:text;not null" json:"prompt"`
	Response   string    `gorm:"type:text;not null" json:"response"`
	TokensUsed int64     `gorm:"default:0" json:"tokens_used"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate assigns an ID when one was not set by the caller
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
