package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agentchat/backend/internal/cache"
	"github.com/agentchat/backend/internal/config"
	"github.com/agentchat/backend/internal/models"
)

// opTimeout bounds every ledger operation to a handful of store round trips.
// A deadline hit surfaces as a retryable *Error.
const opTimeout = 5 * time.Second

// referralCodeCacheTTL bounds staleness of cached referral-code lookups
const referralCodeCacheTTL = 5 * time.Minute

// Service maintains per-user point balances and the append-only
// transaction log. Every mutation commits the balance change and its log
// entry in one database transaction.
type Service struct {
	db    *gorm.DB
	cfg   config.PointsConfig
	cache *cache.Client
}

// NewService creates a new ledger service. cache may be nil; referral-code
// validation then always hits the database.
func NewService(db *gorm.DB, cfg config.PointsConfig, c *cache.Client) *Service {
	return &Service{db: db, cfg: cfg, cache: c}
}

// ReferralBonus returns the configured bonus credited per completed referral
func (s *Service) ReferralBonus() int64 {
	return s.cfg.ReferralBonus
}

// WelcomeBonus returns the configured signup bonus
func (s *Service) WelcomeBonus() int64 {
	return s.cfg.WelcomeBonus
}

// AwardPoints atomically credits a user's balance and appends the matching
// transaction log entry.
func (s *Service) AwardPoints(ctx context.Context, userID uuid.UUID, points int64, description string, txType models.TransactionType, referenceID *string) (*models.PointTransaction, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}
	if !txType.IsValid() {
		return nil, ErrInvalidType
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	entry := models.PointTransaction{
		UserID:      userID,
		Type:        txType,
		Points:      points,
		Description: description,
		ReferenceID: referenceID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumns(map[string]interface{}{
				"points":     gorm.Expr("points + ?", points),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, wrapErr("award points", err)
	}

	return &entry, nil
}

// SpendPoints atomically debits a user's balance and appends a spent-type
// log entry. The balance check and the debit are a single conditional
// UPDATE, so concurrent spends on the same user cannot lose an update or
// drive the balance negative.
func (s *Service) SpendPoints(ctx context.Context, userID uuid.UUID, points int64, description string, referenceID *string) (*models.PointTransaction, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	entry := models.PointTransaction{
		UserID:      userID,
		Type:        models.TransactionTypeSpent,
		Points:      -points,
		Description: description,
		ReferenceID: referenceID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND points >= ?", userID, points).
			UpdateColumns(map[string]interface{}{
				"points":     gorm.Expr("points - ?", points),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Distinguish a missing user from an insufficient balance
			var user models.User
			if err := tx.Select("id").First(&user, "id = ?", userID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return err
			}
			return ErrInsufficientPoints
		}

		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, wrapErr("spend points", err)
	}

	return &entry, nil
}

// ProcessReferral records a completed referral and credits the referrer's
// bonus: the referral row, the total_referrals increment, the balance
// credit and the log entry commit as one unit. A referred user is
// attributed at most once; the unique index on referrals.referred_id backs
// the in-transaction check under concurrency.
func (s *Service) ProcessReferral(ctx context.Context, referrerID, referredID uuid.UUID) (*models.Referral, error) {
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	bonus := s.cfg.ReferralBonus
	now := time.Now()

	referral := models.Referral{
		ReferrerID:    referrerID,
		ReferredID:    referredID,
		Status:        models.ReferralStatusCompleted,
		PointsAwarded: bonus,
		CompletedAt:   &now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var referred models.User
		if err := tx.Select("id").First(&referred, "id = ?", referredID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var existing models.Referral
		err := tx.Where("referred_id = ?", referredID).First(&existing).Error
		if err == nil {
			return ErrDuplicateReferral
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&referral).Error; err != nil {
			return err
		}

		res := tx.Model(&models.User{}).
			Where("id = ?", referrerID).
			UpdateColumns(map[string]interface{}{
				"points":          gorm.Expr("points + ?", bonus),
				"total_referrals": gorm.Expr("total_referrals + ?", 1),
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		referenceID := referral.ID.String()
		entry := models.PointTransaction{
			UserID:      referrerID,
			Type:        models.TransactionTypeReferral,
			Points:      bonus,
			Description: "Referral bonus",
			ReferenceID: &referenceID,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, wrapErr("process referral", err)
	}

	return &referral, nil
}

// GetUserPointTransactions returns a user's transactions, newest first.
// A non-positive limit falls back to 50.
func (s *Service) GetUserPointTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var transactions []models.PointTransaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, wrapErr("get point transactions", err)
	}
	return transactions, nil
}

// ReferralStats aggregates a user's referral activity
type ReferralStats struct {
	TotalReferrals           int64 `json:"total_referrals"`
	TotalPointsFromReferrals int64 `json:"total_points_from_referrals"`
}

// GetReferralStats returns the completed referral count and the points
// earned through referral-type transactions.
func (s *Service) GetReferralStats(ctx context.Context, userID uuid.UUID) (*ReferralStats, error) {
	var stats ReferralStats

	err := s.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_id = ? AND status = ?", userID, models.ReferralStatusCompleted).
		Count(&stats.TotalReferrals).Error
	if err != nil {
		return nil, wrapErr("get referral stats", err)
	}

	err = s.db.WithContext(ctx).Model(&models.PointTransaction{}).
		Where("user_id = ? AND type = ?", userID, models.TransactionTypeReferral).
		Select("COALESCE(SUM(points), 0)").
		Scan(&stats.TotalPointsFromReferrals).Error
	if err != nil {
		return nil, wrapErr("get referral stats", err)
	}

	return &stats, nil
}

// ReferralRecord is a referral joined with the referred user's public fields
type ReferralRecord struct {
	ID                uuid.UUID             `json:"id"`
	ReferredID        uuid.UUID             `json:"referred_id"`
	ReferredName      string                `json:"referred_name"`
	ReferredEmail     string                `json:"referred_email"`
	Status            models.ReferralStatus `json:"status"`
	PointsAwarded     int64                 `json:"points_awarded"`
	CreatedAt         time.Time             `json:"created_at"`
	CompletedAt       *time.Time            `json:"completed_at"`
	ReferredCreatedAt time.Time             `json:"referred_created_at"`
}

// GetUserReferrals returns the referrals made by a user, newest first
func (s *Service) GetUserReferrals(ctx context.Context, userID uuid.UUID) ([]ReferralRecord, error) {
	var records []ReferralRecord
	err := s.db.WithContext(ctx).Model(&models.Referral{}).
		Select(`referrals.id, referrals.referred_id, users.name AS referred_name,
			users.email AS referred_email, referrals.status, referrals.points_awarded,
			referrals.created_at, referrals.completed_at, users.created_at AS referred_created_at`).
		Joins("LEFT JOIN users ON users.id = referrals.referred_id").
		Where("referrals.referrer_id = ?", userID).
		Order("referrals.created_at DESC").
		Scan(&records).Error
	if err != nil {
		return nil, wrapErr("get user referrals", err)
	}
	return records, nil
}

// ValidateReferralCode reports whether a referral code belongs to an
// existing user. Lookups are cached briefly; cache failures fall through to
// the database.
func (s *Service) ValidateReferralCode(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, nil
	}

	cacheKey := "refcode:" + code
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, cacheKey); err == nil {
			return val == "1", nil
		}
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("referral_code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, wrapErr("validate referral code", err)
	}

	if s.cache != nil {
		val := "0"
		if count > 0 {
			val = "1"
		}
		if err := s.cache.Set(ctx, cacheKey, val, referralCodeCacheTTL); err != nil {
			zap.L().Debug("referral code cache write failed", zap.Error(err))
		}
	}

	return count > 0, nil
}

// Drift describes a user whose balance disagrees with the transaction log
type Drift struct {
	UserID     uuid.UUID `json:"user_id"`
	Balance    int64     `json:"balance"`
	LedgerSum  int64     `json:"ledger_sum"`
	Difference int64     `json:"difference"`
}

// CheckReconciliation compares every user's balance against the sum of
// their transaction deltas and returns the users that disagree. A healthy
// ledger returns an empty slice.
func (s *Service) CheckReconciliation(ctx context.Context) ([]Drift, error) {
	var drifts []Drift
	err := s.db.WithContext(ctx).Raw(`
		SELECT u.id AS user_id,
		       u.points AS balance,
		       COALESCE(SUM(pt.points), 0) AS ledger_sum,
		       u.points - COALESCE(SUM(pt.points), 0) AS difference
		FROM users u
		LEFT JOIN point_transactions pt ON pt.user_id = u.id
		WHERE u.deleted_at IS NULL
		GROUP BY u.id, u.points
		HAVING u.points <> COALESCE(SUM(pt.points), 0)
	`).Scan(&drifts).Error
	if err != nil {
		return nil, wrapErr("check reconciliation", err)
	}
	return drifts, nil
}
