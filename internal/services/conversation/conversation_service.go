package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentchat/backend/internal/models"
)

// ErrUserNotFound is returned when the conversation's user does not exist
var ErrUserNotFound = errors.New("user not found")

// Service records assistant exchanges and the per-user token tally
type Service struct {
	db *gorm.DB
}

// NewService creates a new conversation service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// LogConversation stores an exchange and adds its token usage to the user's
// running total in the same database transaction.
func (s *Service) LogConversation(ctx context.Context, userID uuid.UUID, prompt, response string, tokensUsed int64) (*models.Conversation, error) {
	conv := models.Conversation{
		UserID:     userID,
		Prompt:     prompt,
		Response:   response,
		TokensUsed: tokensUsed,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumns(map[string]interface{}{
				"total_tokens_used": gorm.Expr("total_tokens_used + ?", tokensUsed),
				"updated_at":        time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		return tx.Create(&conv).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error logging conversation: %w", err)
	}

	return &conv, nil
}

// GetUserConversations returns a user's conversations, newest first.
// A non-positive limit falls back to 50.
func (s *Service) GetUserConversations(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}

	var conversations []models.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("error listing conversations: %w", err)
	}
	return conversations, nil
}
