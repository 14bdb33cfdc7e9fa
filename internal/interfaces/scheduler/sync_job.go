package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ledgersync/internal/domain/sync"
)

// ConnectionSyncJob reconciles one stored connection.
type ConnectionSyncJob struct {
	connectionID    string
	institutionName string
	syncService     *sync.Service
}

func NewConnectionSyncJob(connectionID, institutionName string, syncService *sync.Service) *ConnectionSyncJob {
	return &ConnectionSyncJob{
		connectionID:    connectionID,
		institutionName: institutionName,
		syncService:     syncService,
	}
}

// Execute runs one reconciliation pass. A connection flagged for
// re-authentication is terminal for scheduling purposes; only the user can
// fix it, so it is not reported as a job failure.
func (j *ConnectionSyncJob) Execute(ctx context.Context) error {
	log.Printf("Starting sync for connection %s (%s)", j.connectionID, j.institutionName)

	result, err := j.syncService.SyncConnection(ctx, j.connectionID)
	if errors.Is(err, sync.ErrReauthRequired) {
		log.Printf("Connection %s needs re-authentication, skipping until re-linked", j.connectionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if len(result.Errors) > 0 {
		log.Printf("Sync for connection %s completed with errors: Added=%d, Updated=%d, Removed=%d, Errors=%d",
			j.connectionID, result.Added, result.Updated, result.Removed, len(result.Errors))
		return fmt.Errorf("sync completed with %d errors", len(result.Errors))
	}

	log.Printf("Sync for connection %s completed successfully: Added=%d, Updated=%d, Removed=%d, Skipped=%d",
		j.connectionID, result.Added, result.Updated, result.Removed, result.Skipped)
	return nil
}

func (j *ConnectionSyncJob) ConnectionID() string {
	return j.connectionID
}

func (j *ConnectionSyncJob) Description() string {
	return fmt.Sprintf("Transaction sync for connection %s (%s)", j.connectionID, j.institutionName)
}
