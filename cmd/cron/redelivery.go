package main

import (
	"context"
	"log"

	"codedrop/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
)

const REDELIVERY_BATCH_SIZE = 50

// RedeliveryJob retries pending webhook deliveries. The redsync lock keeps
// multiple cron instances from hammering the same endpoints.
type RedeliveryJob struct {
	dispatcher *services.ServiceDispatcher
	rs         *redsync.Redsync
}

func NewRedeliveryJob(dispatcher *services.ServiceDispatcher, rs *redsync.Redsync) *RedeliveryJob {
	return &RedeliveryJob{
		dispatcher: dispatcher,
		rs:         rs,
	}
}

func (j *RedeliveryJob) Start(cronRunner *cron.Cron) {
	_, err := cronRunner.AddFunc("@every 1m", j.runScheduledTask)
	if err != nil {
		log.Println("Redelivery cronjob:", err)
		return
	}
	log.Println("Redelivery cronjob registered")
}

func (j *RedeliveryJob) runScheduledTask() {
	ctx := context.Background()

	mutex := j.rs.NewMutex(services.LockKeyRedelivery())
	if err := mutex.TryLock(); err != nil {
		return
	}
	// nolint:errcheck
	defer mutex.Unlock()

	if err := j.dispatcher.Redeliver(ctx, REDELIVERY_BATCH_SIZE); err != nil {
		log.Println("Redelivery:", err)
	}
}
