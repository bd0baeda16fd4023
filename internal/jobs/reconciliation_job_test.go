package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentchat/backend/internal/config"
	"github.com/agentchat/backend/internal/models"
	"github.com/agentchat/backend/internal/queue"
	"github.com/agentchat/backend/internal/services/ledger"
)

func setupReconciliation(t *testing.T) (*ReconciliationJob, *queue.Queue, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Migrator().DropTable(&models.User{}, &models.PointTransaction{}, &models.Referral{}, &queue.Job{}))
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.PointTransaction{}, &models.Referral{}, &queue.Job{}))

	q := queue.NewQueue(db)
	ledgerSvc := ledger.NewService(db, config.PointsConfig{WelcomeBonus: 100, ReferralBonus: 50}, nil)
	return RegisterReconciliationJobHandlers(q, ledgerSvc), q, db
}

func TestReconciliationRunClean(t *testing.T) {
	job, _, db := setupReconciliation(t)

	user := models.User{
		Email:        "alice@example.com",
		Name:         "Alice",
		Handle:       "alice-abc123",
		ReferralCode: "CODE1111",
		Points:       100,
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.PointTransaction{
		UserID:      user.ID,
		Type:        models.TransactionTypeSignup,
		Points:      100,
		Description: "Welcome bonus",
	}).Error)

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.DriftCount)
	assert.Empty(t, result.Drifts)
}

func TestReconciliationRunReportsDrift(t *testing.T) {
	job, _, db := setupReconciliation(t)

	user := models.User{
		Email:        "alice@example.com",
		Name:         "Alice",
		Handle:       "alice-abc123",
		ReferralCode: "CODE1111",
		Points:       250,
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.PointTransaction{
		UserID:      user.ID,
		Type:        models.TransactionTypeSignup,
		Points:      100,
		Description: "Welcome bonus",
	}).Error)

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.DriftCount)
	assert.Equal(t, user.ID, result.Drifts[0].UserID)
	assert.Equal(t, int64(150), result.Drifts[0].Difference)
}

func TestReconciliationEnqueueAndProcess(t *testing.T) {
	job, q, _ := setupReconciliation(t)

	jobID, err := job.Enqueue()
	require.NoError(t, err)

	pending, err := q.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, ReconcileLedgerJobType, pending.Type)

	q.ProcessJob(*pending)

	done, err := q.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, queue.JobStatusCompleted, done.Status)
}
