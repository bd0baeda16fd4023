package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agentchat/backend/internal/models"
	"github.com/agentchat/backend/internal/services/ledger"
	"github.com/agentchat/backend/internal/utils"
)

var (
	// ErrEmailTaken is returned when the email is already registered
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound is returned when the user does not exist
	ErrUserNotFound = errors.New("user not found")
)

// Service handles user accounts and profile reads/updates
type Service struct {
	db        *gorm.DB
	ledgerSvc *ledger.Service
}

// NewService creates a new user service
func NewService(db *gorm.DB, ledgerSvc *ledger.Service) *Service {
	return &Service{db: db, ledgerSvc: ledgerSvc}
}

// CreateUserInput carries signup parameters
type CreateUserInput struct {
	Email          string
	Name           string
	ReferredByCode string
}

// CreateUser registers a new user, credits the welcome bonus through the
// ledger and attributes the referral when a valid invite code was supplied.
// The balance starts at zero so the signup transaction alone accounts for
// the welcome bonus.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", input.Email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	var referrerID *uuid.UUID
	if input.ReferredByCode != "" {
		var referrer models.User
		err := s.db.WithContext(ctx).Where("referral_code = ?", input.ReferredByCode).First(&referrer).Error
		if err == nil {
			referrerID = &referrer.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("error resolving referral code: %w", err)
		}
		// An unknown code is not an error; the signup simply goes unattributed
	}

	user := models.User{
		Email:        input.Email,
		Name:         input.Name,
		Handle:       utils.GenerateHandle(input.Name),
		ReferralCode: utils.GenerateReferralCode(),
		ReferredBy:   referrerID,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	if _, err := s.ledgerSvc.AwardPoints(ctx, user.ID, s.ledgerSvc.WelcomeBonus(), "Welcome bonus", models.TransactionTypeSignup, nil); err != nil {
		return nil, fmt.Errorf("error awarding welcome bonus: %w", err)
	}

	if referrerID != nil {
		if _, err := s.ledgerSvc.ProcessReferral(ctx, *referrerID, user.ID); err != nil {
			// The account exists and holds its welcome bonus; a failed
			// attribution must not fail the signup
			zap.L().Error("referral attribution failed",
				zap.String("referrer_id", referrerID.String()),
				zap.String("referred_id", user.ID.String()),
				zap.Error(err))
		}
	}

	if err := s.db.WithContext(ctx).First(&user, "id = ?", user.ID).Error; err != nil {
		return nil, fmt.Errorf("error reloading user: %w", err)
	}

	return &user, nil
}

// GetUserByID returns a user by id
func (s *Service) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail returns a user by email
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return &user, nil
}

// GetAllUsers returns all users, newest first
func (s *Service) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

// UpdateProfileInput carries the updatable profile fields; nil means unchanged
type UpdateProfileInput struct {
	Name        *string
	Avatar      *string
	Bio         *string
	Preferences *string
}

// UpdateProfile applies a partial profile update and returns the fresh row
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.User, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Avatar != nil {
		updates["avatar"] = *input.Avatar
	}
	if input.Bio != nil {
		updates["bio"] = *input.Bio
	}
	if input.Preferences != nil {
		updates["preferences"] = *input.Preferences
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("error updating profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUserByID(ctx, userID)
}

// AdminStats aggregates dashboard numbers
type AdminStats struct {
	TotalUsers         int64 `json:"total_users"`
	TotalTokens        int64 `json:"total_tokens"`
	TotalConversations int64 `json:"total_conversations"`
}

// GetAdminStats returns the aggregate totals shown on the admin dashboard
func (s *Service) GetAdminStats(ctx context.Context) (*AdminStats, error) {
	var stats AdminStats

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(SUM(total_tokens_used), 0)").
		Scan(&stats.TotalTokens).Error
	if err != nil {
		return nil, fmt.Errorf("error summing tokens: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&models.Conversation{}).Count(&stats.TotalConversations).Error; err != nil {
		return nil, fmt.Errorf("error counting conversations: %w", err)
	}

	return &stats, nil
}

// ProfileStats summarizes one user's activity
type ProfileStats struct {
	TotalQuestions int64      `json:"total_questions"`
	CreditsUsed    int64      `json:"credits_used"`
	Points         int64      `json:"points"`
	MemberSince    time.Time  `json:"member_since"`
	LastActivity   *time.Time `json:"last_activity"`
}

// GetProfileStats returns per-user activity statistics computed from real
// rows; there is no fixture data behind this endpoint.
func (s *Service) GetProfileStats(ctx context.Context, userID uuid.UUID) (*ProfileStats, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := ProfileStats{
		CreditsUsed: user.TotalTokensUsed,
		Points:      user.Points,
		MemberSince: user.CreatedAt,
	}

	if err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalQuestions).Error; err != nil {
		return nil, fmt.Errorf("error counting conversations: %w", err)
	}

	var last models.Conversation
	err = s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&last).Error
	if err == nil {
		stats.LastActivity = &last.CreatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error finding last conversation: %w", err)
	}

	return &stats, nil
}
