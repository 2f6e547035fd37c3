package main

import (
	"context"
	"log"
	"time"

	"codedrop/internal/datastore"
	"codedrop/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
	"github.com/uptrace/bun"
)

// Batches stay visible to the owner for a while after expiry before the
// sweep retires them.
const SWEEP_GRACE_PERIOD = 7 * 24 * time.Hour

type SweepJob struct {
	db *bun.DB
	rs *redsync.Redsync
}

func NewSweepJob(db *bun.DB, rs *redsync.Redsync) *SweepJob {
	return &SweepJob{
		db: db,
		rs: rs,
	}
}

func (j *SweepJob) Start(cronRunner *cron.Cron) {
	_, err := cronRunner.AddFunc("@daily", j.runScheduledTask)
	if err != nil {
		log.Println("Sweep cronjob:", err)
		return
	}
	log.Println("Sweep cronjob registered")
}

func (j *SweepJob) runScheduledTask() {
	ctx := context.Background()

	mutex := j.rs.NewMutex(services.LockKeyBatchSweep())
	if err := mutex.TryLock(); err != nil {
		return
	}
	// nolint:errcheck
	defer mutex.Unlock()

	cutoff := time.Now().Add(-SWEEP_GRACE_PERIOD)
	retired, err := datastore.SoftDeleteExpiredBatches(ctx, j.db, cutoff)
	if err != nil {
		log.Println("Sweep:", err)
		return
	}
	if retired > 0 {
		log.Println("Sweep: retired", retired, "expired batches")
	}
}
