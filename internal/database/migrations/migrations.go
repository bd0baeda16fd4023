package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// migrationsList holds all migrations in order
var migrationsList = []*gormigrate.Migration{
	CreateUsersTable(),
	CreateConversationsTable(),
	CreatePointsTables(),
	CreateJobsTable(),
}

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)

	if err := m.Migrate(); err != nil {
		zap.L().Error("could not migrate", zap.Error(err))
		return err
	}
	zap.L().Info("migrations ran successfully")
	return nil
}
