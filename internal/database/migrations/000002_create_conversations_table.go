package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateConversationsTable creates the conversations table
func CreateConversationsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_conversations_table",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS conversations (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id),
					prompt TEXT NOT NULL,
					response TEXT NOT NULL,
					tokens_used BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id);
				CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS conversations;`).Error
		},
	}
}
