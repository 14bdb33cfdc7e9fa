package http

import (
	"errors"
	"log"
	"net/http"

	"ledgersync/internal/infrastructure/provider"
)

// AccountHandler serves pass-through reads against the provider: live
// accounts, a single balance, and connection health. Nothing here touches
// local storage.
type AccountHandler struct {
	client provider.ClientInterface
}

func NewAccountHandler(client provider.ClientInterface) *AccountHandler {
	return &AccountHandler{client: client}
}

// HandleListAccounts returns the provider's accounts plus institution
// metadata for the given access token.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	accessToken := r.URL.Query().Get("accessToken")
	if accessToken == "" {
		respondError(w, http.StatusBadRequest, "accessToken is required")
		return
	}

	result, err := h.client.GetAccounts(r.Context(), accessToken)
	if err != nil {
		log.Printf("Failed to fetch accounts: %v", err)
		respondError(w, http.StatusInternalServerError, providerErrorMessage(err, "Failed to fetch accounts"))
		return
	}

	respondData(w, http.StatusOK, result)
}

// HandleAccountBalance returns the balance pair for one provider account.
func (h *AccountHandler) HandleAccountBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	accessToken := r.URL.Query().Get("accessToken")
	accountID := r.URL.Query().Get("accountId")
	if accessToken == "" || accountID == "" {
		respondError(w, http.StatusBadRequest, "accessToken and accountId are required")
		return
	}

	result, err := h.client.GetAccounts(r.Context(), accessToken)
	if err != nil {
		log.Printf("Failed to fetch balance: %v", err)
		respondError(w, http.StatusInternalServerError, providerErrorMessage(err, "Failed to fetch balance"))
		return
	}

	for _, a := range result.Accounts {
		if a.AccountID == accountID {
			respondData(w, http.StatusOK, a.Balances)
			return
		}
	}
	respondError(w, http.StatusNotFound, "Account not found")
}

// HandleConnectionStatus reports provider-side connection health. A dead
// credential is a successful response with connected=false, not an error.
func (h *AccountHandler) HandleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	accessToken := r.URL.Query().Get("accessToken")
	if accessToken == "" {
		respondError(w, http.StatusBadRequest, "accessToken is required")
		return
	}

	status, err := h.client.GetStatus(r.Context(), accessToken)
	if err != nil {
		log.Printf("Failed to check connection status: %v", err)
		respondError(w, http.StatusInternalServerError, providerErrorMessage(err, "Failed to check connection status"))
		return
	}

	respondData(w, http.StatusOK, status)
}

// providerErrorMessage surfaces the provider's error code without ever
// echoing request credentials.
func providerErrorMessage(err error, fallback string) string {
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		return provErr.Message
	}
	return fallback
}
