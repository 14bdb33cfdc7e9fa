package http

import (
	"encoding/json"
	"log"
	"net/http"

	"ledgersync/internal/infrastructure/provider"
)

// TransactionHandler serves pass-through transaction reads against the
// provider: the ad hoc date-range fetch and the raw cursor primitive.
type TransactionHandler struct {
	client provider.ClientInterface
}

func NewTransactionHandler(client provider.ClientInterface) *TransactionHandler {
	return &TransactionHandler{client: client}
}

// HandleGetTransactions runs a date-range fetch. latest=true narrows the
// window for a fast refresh; postedOnly=true drops pending entries.
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	accessToken := q.Get("accessToken")
	if accessToken == "" {
		respondError(w, http.StatusBadRequest, "accessToken is required")
		return
	}

	result, err := h.client.GetTransactions(r.Context(), provider.TransactionQuery{
		AccessToken: accessToken,
		AccountID:   q.Get("accountId"),
		StartDate:   q.Get("startDate"),
		EndDate:     q.Get("endDate"),
		Latest:      q.Get("latest") == "true",
		PostedOnly:  q.Get("postedOnly") == "true",
	})
	if err != nil {
		log.Printf("Failed to fetch transactions: %v", err)
		respondError(w, http.StatusInternalServerError, providerErrorMessage(err, "Failed to fetch transactions"))
		return
	}

	respondData(w, http.StatusOK, result.Transactions)
}

type syncTransactionsRequest struct {
	AccessToken string `json:"accessToken"`
	Cursor      string `json:"cursor"`
}

// HandleSyncTransactions exposes one page of the cursor primitive directly.
// Callers own cursor persistence; the stored-connection flow lives under
// /sync/refresh instead.
func (h *TransactionHandler) HandleSyncTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req syncTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccessToken == "" {
		respondError(w, http.StatusBadRequest, "accessToken is required")
		return
	}

	result, err := h.client.SyncTransactions(r.Context(), req.AccessToken, req.Cursor)
	if err != nil {
		log.Printf("Failed to sync transactions: %v", err)
		respondError(w, http.StatusInternalServerError, providerErrorMessage(err, "Failed to sync transactions"))
		return
	}

	respondData(w, http.StatusOK, result)
}
