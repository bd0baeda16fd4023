package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentchat/backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Migrator().DropTable(&models.User{}, &models.Conversation{}))
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Conversation{}))

	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := models.User{
		Email:        "alice@example.com",
		Name:         "Alice",
		Handle:       "alice-abc123",
		ReferralCode: "CODE1111",
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestLogConversation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db)

	conv, err := svc.LogConversation(context.Background(), user.ID, "What is Go?", "A programming language.", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), conv.TokensUsed)
	assert.NotEqual(t, uuid.Nil, conv.ID)

	_, err = svc.LogConversation(context.Background(), user.ID, "And Rust?", "Also a programming language.", 58)
	require.NoError(t, err)

	// The token tally accumulates across exchanges
	var fresh models.User
	require.NoError(t, db.First(&fresh, "id = ?", user.ID).Error)
	assert.Equal(t, int64(100), fresh.TotalTokensUsed)
}

func TestLogConversationMissingUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	_, err := svc.LogConversation(context.Background(), uuid.New(), "hello", "hi", 10)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestGetUserConversations(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		conv := models.Conversation{
			UserID:     user.ID,
			Prompt:     "question",
			Response:   "answer",
			TokensUsed: int64(i + 1),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&conv).Error)
	}

	conversations, err := svc.GetUserConversations(context.Background(), user.ID, 2)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, int64(5), conversations[0].TokensUsed)
	assert.Equal(t, int64(4), conversations[1].TokensUsed)

	all, err := svc.GetUserConversations(context.Background(), user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	other, err := svc.GetUserConversations(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}
