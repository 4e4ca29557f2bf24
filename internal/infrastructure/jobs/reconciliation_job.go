package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"paymenow.backend/internal/domain/entities"
	"paymenow.backend/pkg/logger"
)

type pendingReconciler interface {
	ReconcilePending(ctx context.Context) (entities.ReconcileReport, error)
}

// ReconciliationJob periodically resolves external transfers stuck in PENDING
type ReconciliationJob struct {
	reconciler pendingReconciler
	schedule   string
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewReconciliationJob validates schedule (standard cron or "@every 1m") up front
func NewReconciliationJob(reconciler pendingReconciler, schedule string) (*ReconciliationJob, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid reconciliation schedule %q: %w", schedule, err)
	}
	return &ReconciliationJob{
		reconciler: reconciler,
		schedule:   schedule,
		stop:       make(chan struct{}),
	}, nil
}

// Start blocks until ctx is cancelled or Stop is called. A sweep still running
// when the next tick fires is not overlapped.
func (j *ReconciliationJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting reconciliation job", zap.String("schedule", j.schedule))

	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(j.schedule, func() { j.reconcile(ctx) }); err != nil {
		logger.Error(ctx, "Reconciliation job not scheduled", zap.Error(err))
		return
	}
	c.Start()

	select {
	case <-ctx.Done():
		logger.Info(ctx, "Reconciliation job stopped (context cancelled)")
	case <-j.stop:
		logger.Info(ctx, "Reconciliation job stopped")
	}
	<-c.Stop().Done()
}

// Stop is safe to call more than once
func (j *ReconciliationJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *ReconciliationJob) reconcile(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := j.reconciler.ReconcilePending(ctx)
	if err != nil {
		logger.Error(ctx, "Error sweeping pending transfers", zap.Error(err))
		return
	}
	if report.Checked == 0 {
		return
	}
	logger.Info(ctx, "Swept pending transfers",
		zap.Int("checked", report.Checked),
		zap.Int("completed", report.Completed),
		zap.Int("failed", report.Failed),
		zap.Int("pending", report.Pending),
		zap.Int("errors", report.Errors),
	)
}
