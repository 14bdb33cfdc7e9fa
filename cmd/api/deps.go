package main

import (
	"context"
	"log"

	"ledgersync/internal/domain/notification"
	"ledgersync/internal/domain/sync"
	"ledgersync/internal/infrastructure/crypto"
	"ledgersync/internal/infrastructure/firebase"
	"ledgersync/internal/infrastructure/postgres"
	"ledgersync/internal/infrastructure/provider"
	httphandlers "ledgersync/internal/interfaces/http"
	"ledgersync/internal/shared/config"
	"ledgersync/internal/shared/messages"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler         *httphandlers.AuthHandler
	AccountHandler      *httphandlers.AccountHandler
	TransactionHandler  *httphandlers.TransactionHandler
	SyncHandler         *httphandlers.SyncHandler
	NotificationHandler *httphandlers.NotificationHandler

	// Services (for the scheduler job provider)
	SyncService *sync.Service

	// Repositories (for the scheduler job provider)
	ConnectionRepo *postgres.ConnectionRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if cfg.Sync.AutoMigrate {
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		log.Println("Database migrations applied")
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	connectionRepo := postgres.NewConnectionRepository(db, encryptor)
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	deviceRepo := postgres.NewDeviceRepository(db)

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

	// Push delivery is optional; without Firebase credentials notifications
	// degrade to log-only.
	var messenger notification.Messenger
	if cfg.Notifications.FirebaseCredentialsFile != "" {
		fcmClient, err := firebase.NewClient(ctx, cfg.Notifications.FirebaseCredentialsFile, deviceRepo.DeleteByToken)
		if err != nil {
			log.Printf("Warning: Failed to initialize Firebase, notifications disabled: %v", err)
		} else {
			messenger = fcmClient
			log.Println("Firebase messaging initialized")
		}
	}

	texts, err := messages.Load(cfg.Notifications.MessagesFile)
	if err != nil {
		log.Printf("Warning: Failed to load notification messages, using defaults: %v", err)
		texts = messages.Defaults()
	}
	notificationService := notification.NewService(deviceRepo, messenger, texts)

	syncService := sync.NewService(client, connectionRepo, accountRepo, transactionRepo, sync.Options{
		Notifier:      notificationService,
		RetryAttempts: cfg.Sync.RetryAttempts,
		RetryDelay:    cfg.Sync.RetryDelay,
	})

	return &Dependencies{
		DB:                  db,
		AuthHandler:         httphandlers.NewAuthHandler(client, syncService),
		AccountHandler:      httphandlers.NewAccountHandler(client),
		TransactionHandler:  httphandlers.NewTransactionHandler(client),
		SyncHandler:         httphandlers.NewSyncHandler(syncService),
		NotificationHandler: httphandlers.NewNotificationHandler(notificationService),
		SyncService:         syncService,
		ConnectionRepo:      connectionRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
