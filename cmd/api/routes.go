package main

import (
	"log"
	"net/http"

	httphandlers "ledgersync/internal/interfaces/http"
	"ledgersync/internal/shared/config"
	"ledgersync/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Provider link flow
	mux.HandleFunc("/auth/plaid/link", deps.AuthHandler.HandleCreateLinkToken)
	mux.HandleFunc("/auth/plaid/exchange", deps.AuthHandler.HandleExchangeToken)

	// Provider pass-through reads
	mux.HandleFunc("/accounts", deps.AccountHandler.HandleListAccounts)
	mux.HandleFunc("/accounts/balance", deps.AccountHandler.HandleAccountBalance)
	mux.HandleFunc("/accounts/status", deps.AccountHandler.HandleConnectionStatus)
	mux.HandleFunc("/transactions", deps.TransactionHandler.HandleGetTransactions)
	mux.HandleFunc("/transactions/sync", deps.TransactionHandler.HandleSyncTransactions)

	// Persisted-connection flow
	mux.HandleFunc("/sync/connection", deps.SyncHandler.HandleCreateConnection)
	mux.HandleFunc("/sync/refresh", deps.SyncHandler.HandleRefresh)
	mux.HandleFunc("/sync/connections", deps.SyncHandler.HandleListConnections)
	mux.HandleFunc("/sync/transactions/{accountId}", deps.SyncHandler.HandleAccountTransactions)

	// Notifications
	mux.HandleFunc("/notifications/register-device", deps.NotificationHandler.HandleRegisterDevice)

	// Apply global middleware
	handler := middleware.Logging(middleware.Tracing(middleware.CORS(cfg.Server.AllowedHosts)(mux)))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		log.Println("TLS security middleware enabled (HSTS)")
	}

	return handler
}
