package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a user in the system
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Email           string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name            string         `gorm:"type:varchar(255)" json:"name"`
	Handle          string         `gorm:"type:varchar(100);uniqueIndex" json:"handle"`
	Avatar          *string        `gorm:"type:varchar(500)" json:"avatar"`
	Bio             *string        `gorm:"type:text" json:"bio"`
	Preferences     *string        `gorm:"type:text" json:"preferences"` // JSON string of client preferences
	IsAdmin         bool           `gorm:"default:false" json:"is_admin"`
	TotalTokensUsed int64          `gorm:"default:0" json:"total_tokens_used"`
	Points          int64          `gorm:"default:0" json:"points"`
	ReferralCode    string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"referral_code"`
	ReferredBy      *uuid.UUID     `gorm:"type:uuid" json:"referred_by"`
	TotalReferrals  int64          `gorm:"default:0" json:"total_referrals"`
	CreatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns an ID when one was not set by the caller
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
