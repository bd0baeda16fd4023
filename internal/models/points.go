package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionType classifies a point transaction
type TransactionType string

const (
	TransactionTypeEarned   TransactionType = "earned"
	TransactionTypeSpent    TransactionType = "spent"
	TransactionTypeBonus    TransactionType = "bonus"
	TransactionTypeReferral TransactionType = "referral"
	TransactionTypeSignup   TransactionType = "signup"
)

// IsValid reports whether the transaction type is one of the known kinds
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeEarned, TransactionTypeSpent, TransactionTypeBonus,
		TransactionTypeReferral, TransactionTypeSignup:
		return true
	default:
		return false
	}
}

// PointTransaction is an append-only ledger entry. Points holds the signed
// delta applied to the user's balance in the same database transaction, so
// the sum of a user's entries always reconciles to users.points.
type PointTransaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	User        User            `gorm:"foreignKey:UserID" json:"-"`
	Type        TransactionType `gorm:"type:varchar(50);not null" json:"type"`
	Points      int64           `gorm:"not null" json:"points"`
	Description string          `gorm:"type:text;not null" json:"description"`
	ReferenceID *string         `gorm:"type:varchar(191)" json:"reference_id"`
	CreatedAt   time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate assigns an ID when one was not set by the caller
func (p *PointTransaction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
