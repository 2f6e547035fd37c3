package main

import (
	"context"
	"log"

	"codedrop/internal/datastore"
	"codedrop/internal/services"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
	"github.com/uptrace/bun"
)

// AvailabilityJob keeps the redis availability snapshots warm so the redeem
// page rarely pays the database fold.
type AvailabilityJob struct {
	serviceProject *services.ServiceProject
	db             *bun.DB
	rs             *redsync.Redsync
}

func NewAvailabilityJob(serviceProject *services.ServiceProject, db *bun.DB, rs *redsync.Redsync) *AvailabilityJob {
	return &AvailabilityJob{
		serviceProject: serviceProject,
		db:             db,
		rs:             rs,
	}
}

func (j *AvailabilityJob) Start(cronRunner *cron.Cron) {
	_, err := cronRunner.AddFunc("@every 30s", j.runScheduledTask)
	if err != nil {
		log.Println("Availability cronjob:", err)
		return
	}
	log.Println("Availability cronjob registered")
}

func (j *AvailabilityJob) runScheduledTask() {
	ctx := context.Background()

	projectIDs, err := datastore.GetActiveProjectIDs(ctx, j.db)
	if err != nil {
		log.Println("Availability:", err)
		return
	}

	for _, projectID := range projectIDs {
		mutex := j.rs.NewMutex(services.LockKeyAvailability(projectID))
		if err := mutex.TryLock(); err != nil {
			continue
		}

		if _, err := j.serviceProject.RebuildAvailability(ctx, projectID); err != nil {
			log.Println("Availability:", projectID, err)
		}

		// nolint:errcheck
		mutex.Unlock()
	}
}
