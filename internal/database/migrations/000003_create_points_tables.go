package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreatePointsTables creates the point_transactions and referrals tables.
// referrals.referred_id is unique: a referred user is attributed at most once.
func CreatePointsTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_points_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS point_transactions (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id),
					type VARCHAR(50) NOT NULL,
					points BIGINT NOT NULL,
					description TEXT NOT NULL,
					reference_id VARCHAR(191),
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_point_transactions_user_id ON point_transactions(user_id);
				CREATE INDEX IF NOT EXISTS idx_point_transactions_created_at ON point_transactions(created_at);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS referrals (
					id UUID PRIMARY KEY,
					referrer_id UUID NOT NULL REFERENCES users(id),
					referred_id UUID NOT NULL UNIQUE REFERENCES users(id),
					status VARCHAR(20) NOT NULL DEFAULT 'pending',
					points_awarded BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					completed_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX IF NOT EXISTS idx_referrals_referrer_id ON referrals(referrer_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec(`DROP TABLE IF EXISTS referrals;`).Error; err != nil {
				return err
			}
			return tx.Exec(`DROP TABLE IF EXISTS point_transactions;`).Error
		},
	}
}
