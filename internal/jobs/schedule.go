package jobs

import (
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// ScheduleRecurringJobs starts the scheduler for recurring maintenance
// work. The nightly reconciliation enqueues through the job queue so runs
// are recorded and retried like any other job.
func ScheduleRecurringJobs(reconciliation *ReconciliationJob) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)

	_, err := scheduler.Every(1).Day().At("03:00").Do(func() {
		if _, err := reconciliation.Enqueue(); err != nil {
			zap.L().Error("failed to enqueue reconciliation job", zap.Error(err))
		}
	})
	if err != nil {
		zap.L().Error("failed to schedule reconciliation job", zap.Error(err))
	}

	scheduler.StartAsync()
	return scheduler
}
