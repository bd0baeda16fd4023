package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralStatus represents the state of a referral attribution
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusCancelled ReferralStatus = "cancelled"
)

// Referral attributes a new signup to the inviting user. A referred user can
// be attributed at most once: referred_id carries a unique index.
type Referral struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	ReferrerID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"referrer_id"`
	Referrer      User           `gorm:"foreignKey:ReferrerID" json:"-"`
	ReferredID    uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"referred_id"`
	Referred      User           `gorm:"foreignKey:ReferredID" json:"-"`
	Status        ReferralStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PointsAwarded int64          `gorm:"default:0" json:"points_awarded"`
	CreatedAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at"`
}

// BeforeCreate assigns an ID when one was not set by the caller
func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
