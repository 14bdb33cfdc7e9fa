package http

import (
	"encoding/json"
	"log"
	"net/http"

	"ledgersync/internal/domain/notification"
)

type NotificationHandler struct {
	service *notification.Service
}

func NewNotificationHandler(service *notification.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// HandleRegisterDevice stores a push token so the device receives sync and
// reconnect alerts.
func (h *NotificationHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var params notification.RegisterDeviceParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if params.Token == "" {
		respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	device, err := h.service.RegisterDevice(r.Context(), params)
	if err != nil {
		log.Printf("Failed to register device: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to register device")
		return
	}

	respondData(w, http.StatusCreated, device)
}
