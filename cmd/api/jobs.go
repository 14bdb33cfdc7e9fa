package main

import (
	"context"

	"ledgersync/internal/domain/connection"
	"ledgersync/internal/interfaces/scheduler"
)

// NewSyncJobProvider builds the scheduler's job source: one sync job per
// connected connection. Disconnected connections are excluded until the
// user re-links them.
func NewSyncJobProvider(deps *Dependencies) func(context.Context) ([]scheduler.Job, error) {
	return func(ctx context.Context) ([]scheduler.Job, error) {
		conns, err := deps.ConnectionRepo.ListByStatus(ctx, connection.StatusConnected)
		if err != nil {
			return nil, err
		}

		jobs := make([]scheduler.Job, 0, len(conns))
		for _, conn := range conns {
			jobs = append(jobs, scheduler.NewConnectionSyncJob(conn.ID, conn.InstitutionName, deps.SyncService))
		}
		return jobs, nil
	}
}
