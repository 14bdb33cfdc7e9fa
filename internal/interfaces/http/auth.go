package http

import (
	"encoding/json"
	"log"
	"net/http"

	"ledgersync/internal/domain/sync"
	"ledgersync/internal/infrastructure/provider"
)

// AuthHandler covers the provider link flow: creating link tokens and
// exchanging the one-time public token for a permanent credential.
type AuthHandler struct {
	client      provider.ClientInterface
	syncService *sync.Service
}

func NewAuthHandler(client provider.ClientInterface, syncService *sync.Service) *AuthHandler {
	return &AuthHandler{client: client, syncService: syncService}
}

type createLinkTokenRequest struct {
	UserID string `json:"userId"`
	// AccessToken switches the link flow into update mode for an existing
	// connection that needs re-authentication.
	AccessToken string `json:"accessToken"`
}

// HandleCreateLinkToken issues a short-lived link token for the client-side
// link widget.
func (h *AuthHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req createLinkTokenRequest
	if r.Body != nil {
		// An empty body is fine; both fields are optional.
		json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.client.CreateLinkToken(r.Context(), req.UserID, req.AccessToken)
	if err != nil {
		log.Printf("Failed to create link token: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create link token")
		return
	}

	respondData(w, http.StatusOK, result)
}

type exchangeTokenRequest struct {
	PublicToken string `json:"publicToken"`
	// ConnectionID, when set, stores the fresh token on an existing
	// connection instead of returning it for a new one.
	ConnectionID string `json:"connectionId"`
}

type exchangeTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ItemID      string `json:"itemId"`
}

// HandleExchangeToken swaps a public token for the permanent access token.
func (h *AuthHandler) HandleExchangeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req exchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PublicToken == "" {
		respondError(w, http.StatusBadRequest, "publicToken is required")
		return
	}

	result, err := h.client.ExchangePublicToken(r.Context(), req.PublicToken)
	if err != nil {
		log.Printf("Failed to exchange public token: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to exchange public token")
		return
	}

	if req.ConnectionID != "" {
		if _, err := h.syncService.Reconnect(r.Context(), req.ConnectionID, result.AccessToken); err != nil {
			log.Printf("Failed to reconnect connection %s: %v", req.ConnectionID, err)
			respondError(w, http.StatusInternalServerError, "Failed to update connection")
			return
		}
		respondData(w, http.StatusOK, map[string]string{"connectionId": req.ConnectionID})
		return
	}

	respondData(w, http.StatusOK, exchangeTokenResponse{
		AccessToken: result.AccessToken,
		ItemID:      result.ItemID,
	})
}
