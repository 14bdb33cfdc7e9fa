package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ledgersync/internal/domain/notification"
	"ledgersync/internal/domain/sync"
	"ledgersync/internal/infrastructure/crypto"
	"ledgersync/internal/infrastructure/postgres"
	"ledgersync/internal/infrastructure/provider"
	"ledgersync/internal/shared/config"
	"ledgersync/internal/shared/messages"
)

const usage = `Ledgersync Admin CLI - Management commands for the sync engine

Usage:
  admin <command> [options]

Commands:
  migrate            Apply pending database migrations
  sync               Run a reconciliation pass for connections
  list-connections   Print all stored connections and their sync state
  status             Check provider-side health of a connection
  remove-connection  Revoke and delete a connection and all its data

Examples:
  # Apply migrations
  admin migrate

  # Sync one connection
  admin sync --connection-id=8f14e45f-ce48-4bd2-a761-6b4a9d1f3c2a

  # Sync every connected connection
  admin sync --all

  # Sync with a custom timeout
  admin sync --all --timeout=10m

  # Check a connection against the provider
  admin status --connection-id=8f14e45f-ce48-4bd2-a761-6b4a9d1f3c2a

  # Remove a connection (revokes provider access first)
  admin remove-connection --connection-id=8f14e45f-ce48-4bd2-a761-6b4a9d1f3c2a
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "migrate":
		runMigrate()
	case "sync":
		runSync(os.Args[2:])
	case "list-connections":
		runListConnections(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "remove-connection":
		runRemoveConnection(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

// env holds everything the admin commands need, wired the same way as the
// API process but without the HTTP surface or scheduler.
type env struct {
	db             *postgres.DB
	connectionRepo *postgres.ConnectionRepository
	syncService    *sync.Service
	client         provider.ClientInterface
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	client, err := provider.New(provider.Config{
		ClientID:    cfg.Provider.ClientID,
		Secret:      cfg.Provider.Secret,
		Environment: cfg.Provider.Environment,
		WindowDays:  cfg.Sync.WindowDays,
		LatestDays:  cfg.Sync.LatestDays,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	connectionRepo := postgres.NewConnectionRepository(db, encryptor)
	deviceRepo := postgres.NewDeviceRepository(db)
	notificationService := notification.NewService(deviceRepo, nil, messages.Defaults())

	syncService := sync.NewService(client,
		connectionRepo,
		postgres.NewAccountRepository(db),
		postgres.NewTransactionRepository(db),
		sync.Options{
			Notifier:      notificationService,
			RetryAttempts: cfg.Sync.RetryAttempts,
			RetryDelay:    cfg.Sync.RetryDelay,
		})

	return &env{
		db:             db,
		connectionRepo: connectionRepo,
		syncService:    syncService,
		client:         client,
	}, nil
}

func runMigrate() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("Migrations applied")
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	connectionID := fs.String("connection-id", "", "Connection to sync")
	all := fs.Bool("all", false, "Sync every connected connection")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")
	fs.Parse(args)

	if *connectionID == "" && !*all {
		log.Fatal("Either --connection-id or --all is required")
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout: %v", err)
	}

	e, err := setup()
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	defer e.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if *all {
		results := e.syncService.SyncAll(ctx)
		for _, r := range results {
			fmt.Printf("%s: added=%d updated=%d removed=%d skipped=%d errors=%d\n",
				r.ConnectionID, r.Added, r.Updated, r.Removed, r.Skipped, len(r.Errors))
		}
		fmt.Printf("Synced %d connections\n", len(results))
		return
	}

	result, err := e.syncService.SyncConnection(ctx, *connectionID)
	if err != nil {
		log.Fatalf("Sync failed: %v", err)
	}
	fmt.Printf("Sync complete: added=%d updated=%d removed=%d skipped=%d\n",
		result.Added, result.Updated, result.Removed, result.Skipped)
	for _, msg := range result.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
}

func runListConnections(args []string) {
	fs := flag.NewFlagSet("list-connections", flag.ExitOnError)
	fs.Parse(args)

	e, err := setup()
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	defer e.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conns, err := e.connectionRepo.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list connections: %v", err)
	}

	if len(conns) == 0 {
		fmt.Println("No connections")
		return
	}

	for _, c := range conns {
		lastSynced := "never"
		if c.LastSyncedAt != nil {
			lastSynced = c.LastSyncedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-12s  %-30s  last_synced=%s\n", c.ID, c.Status, c.InstitutionName, lastSynced)
		if c.ErrorDetails != nil {
			fmt.Printf("    error: %s\n", *c.ErrorDetails)
		}
	}
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	connectionID := fs.String("connection-id", "", "Connection to check")
	fs.Parse(args)

	if *connectionID == "" {
		log.Fatal("--connection-id is required")
	}

	e, err := setup()
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	defer e.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := e.connectionRepo.GetByID(ctx, *connectionID)
	if err != nil {
		log.Fatalf("Failed to load connection: %v", err)
	}

	status, err := e.client.GetStatus(ctx, conn.AccessToken)
	if err != nil {
		log.Fatalf("Status check failed: %v", err)
	}

	fmt.Printf("%s (%s)\n", conn.ID, conn.InstitutionName)
	fmt.Printf("  stored status:  %s\n", conn.Status)
	fmt.Printf("  provider check: connected=%t", status.Connected)
	if status.Error != "" {
		fmt.Printf(" error=%s", status.Error)
	}
	fmt.Println()
}

func runRemoveConnection(args []string) {
	fs := flag.NewFlagSet("remove-connection", flag.ExitOnError)
	connectionID := fs.String("connection-id", "", "Connection to remove")
	fs.Parse(args)

	if *connectionID == "" {
		log.Fatal("--connection-id is required")
	}

	e, err := setup()
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	defer e.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := e.syncService.RemoveConnection(ctx, *connectionID); err != nil {
		log.Fatalf("Failed to remove connection: %v", err)
	}
	fmt.Println("Connection removed")
}
