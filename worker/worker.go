package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Worker long running background job
type Worker interface {
	Run(ctx context.Context) error
}

// OnWork one round of a job
type OnWork func(ctx context.Context) error

// BaseJob runs OnWork on a cron schedule, skipping rounds while one is running
type BaseJob struct {
	Name   string
	Cron   *cron.Cron
	OnWork OnWork

	running int32
	ctx     context.Context
}

// Init schedule onWork with spec in location, an empty location means UTC
func (job *BaseJob) Init(name, location, spec string, onWork OnWork) error {
	l, err := time.LoadLocation(location)
	if err != nil {
		return err
	}

	job.Name = name
	job.OnWork = onWork
	job.Cron = cron.New(cron.WithLocation(l))
	if _, err := job.Cron.AddFunc(spec, job.tick); err != nil {
		return err
	}

	return nil
}

// Run start the schedule and block until ctx is done
func (job *BaseJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", job.Name)
	job.ctx = logger.WithContext(ctx, log)

	job.Cron.Start()
	log.Infoln("worker started")

	<-ctx.Done()
	<-job.Cron.Stop().Done()
	log.Infoln("worker stopped")
	return nil
}

// Work run one round right away
func (job *BaseJob) Work(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&job.running, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&job.running, 0)

	return job.OnWork(ctx)
}

func (job *BaseJob) tick() {
	if err := job.Work(job.ctx); err != nil {
		logger.FromContext(job.ctx).WithError(err).Errorln("work")
	}
}
