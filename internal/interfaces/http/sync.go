package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"ledgersync/internal/domain/account"
	"ledgersync/internal/domain/connection"
	"ledgersync/internal/domain/sync"
)

// SyncHandler covers the persisted-connection flow: establishing
// connections, refreshing them, and reading the reconciled state back.
type SyncHandler struct {
	syncService *sync.Service
}

func NewSyncHandler(syncService *sync.Service) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

type createConnectionRequest struct {
	AccessToken string `json:"accessToken"`
	ItemID      string `json:"itemId"`
}

// HandleCreateConnection persists a new connection, imports its accounts
// and runs the initial transaction pull.
func (h *SyncHandler) HandleCreateConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req createConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccessToken == "" || req.ItemID == "" {
		respondError(w, http.StatusBadRequest, "accessToken and itemId are required")
		return
	}

	detail, err := h.syncService.EstablishConnection(r.Context(), req.AccessToken, req.ItemID)
	if err != nil {
		log.Printf("Failed to establish connection: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to establish connection")
		return
	}

	respondData(w, http.StatusCreated, detail)
}

type refreshRequest struct {
	ConnectionID string `json:"connectionId"`
}

// HandleRefresh re-runs reconciliation for one stored connection.
func (h *SyncHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ConnectionID == "" {
		respondError(w, http.StatusBadRequest, "connectionId is required")
		return
	}

	result, err := h.syncService.SyncConnection(r.Context(), req.ConnectionID)
	switch {
	case errors.Is(err, connection.ErrConnectionNotFound):
		respondError(w, http.StatusNotFound, "Connection not found")
	case errors.Is(err, sync.ErrReauthRequired):
		respondError(w, http.StatusConflict, "Connection requires re-authentication")
	case err != nil:
		log.Printf("Failed to sync connection %s: %v", req.ConnectionID, err)
		respondError(w, http.StatusInternalServerError, "Failed to sync connection")
	default:
		respondData(w, http.StatusOK, result)
	}
}

// HandleListConnections returns all stored connections with their accounts.
func (h *SyncHandler) HandleListConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	details, err := h.syncService.ListConnections(r.Context())
	if err != nil {
		log.Printf("Failed to list connections: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list connections")
		return
	}

	respondData(w, http.StatusOK, details)
}

// HandleAccountTransactions returns stored transactions for one account,
// newest first. ?limit= caps the page, defaulting to 100.
func (h *SyncHandler) HandleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	accountID := r.PathValue("accountId")
	if accountID == "" {
		respondError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	transactions, err := h.syncService.AccountTransactions(r.Context(), accountID, limit)
	if errors.Is(err, account.ErrAccountNotFound) {
		respondError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		log.Printf("Failed to list transactions for account %s: %v", accountID, err)
		respondError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	respondData(w, http.StatusOK, transactions)
}
