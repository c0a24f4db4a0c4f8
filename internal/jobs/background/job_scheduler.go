package background

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const overdueJobTimeout = 2 * time.Minute

// OverdueMarker flips pending invoices past their due date to overdue.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// JobScheduler runs periodic maintenance jobs.
type JobScheduler struct {
	scheduler gocron.Scheduler
	invoices  OverdueMarker
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates a scheduler with the overdue sweep registered.
func NewJobScheduler(invoices OverdueMarker, overdueInterval time.Duration, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scheduler")
	}
	if overdueInterval <= 0 {
		overdueInterval = time.Hour
	}

	js := &JobScheduler{
		scheduler: scheduler,
		invoices:  invoices,
		interval:  overdueInterval,
		logger:    logger,
		now:       time.Now,
		jobs:      make(map[string]gocron.Job),
	}
	if err := js.registerJobs(); err != nil {
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(js.interval),
		gocron.NewTask(js.markOverdueInvoices),
		gocron.WithName("invoice-overdue-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create overdue sweep job")
	}

	js.mu.Lock()
	js.jobs["overdue"] = job
	js.mu.Unlock()
	return nil
}

// markOverdueInvoices is the overdue sweep task.
func (js *JobScheduler) markOverdueInvoices() error {
	ctx, cancel := context.WithTimeout(context.Background(), overdueJobTimeout)
	defer cancel()

	n, err := js.invoices.MarkOverdue(ctx, js.now())
	if err != nil {
		js.logger.Error("overdue sweep failed", zap.Error(err))
		return err
	}
	if n > 0 {
		js.logger.Info("invoices marked overdue", zap.Int64("count", n))
	}
	return nil
}

// JobNames lists the registered jobs.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	names := make([]string, 0, len(js.jobs))
	for _, job := range js.jobs {
		names = append(names, job.Name())
	}
	return names
}
