package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateUsersTable creates the users table
func CreateUsersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_users_table",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY,
					email VARCHAR(255) NOT NULL UNIQUE,
					name VARCHAR(255),
					handle VARCHAR(100) UNIQUE,
					avatar VARCHAR(500),
					bio TEXT,
					preferences TEXT,
					is_admin BOOLEAN DEFAULT FALSE,
					total_tokens_used BIGINT NOT NULL DEFAULT 0,
					points BIGINT NOT NULL DEFAULT 0,
					referral_code VARCHAR(50) NOT NULL UNIQUE,
					referred_by UUID REFERENCES users(id),
					total_referrals BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE INDEX IF NOT EXISTS idx_users_referral_code ON users(referral_code);
				CREATE INDEX IF NOT EXISTS idx_users_deleted_at ON users(deleted_at);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`DROP TABLE IF EXISTS users;`).Error
		},
	}
}
