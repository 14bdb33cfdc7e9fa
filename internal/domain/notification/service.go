package notification

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"ledgersync/internal/domain/connection"
	"ledgersync/internal/domain/sync"
	"ledgersync/internal/shared/messages"
)

// Service fans lifecycle events out to every registered device. A nil
// Messenger turns the service into a log-only sink, which keeps local
// development working without Firebase credentials.
type Service struct {
	repo      DeviceRepository
	messenger Messenger
	texts     *messages.Messages
}

func NewService(repo DeviceRepository, messenger Messenger, texts *messages.Messages) *Service {
	if texts == nil {
		texts = messages.Defaults()
	}
	return &Service{repo: repo, messenger: messenger, texts: texts}
}

var _ sync.Notifier = (*Service)(nil)

// RegisterDevice stores a push token. Tokens are global: every device
// receives every alert.
func (s *Service) RegisterDevice(ctx context.Context, params RegisterDeviceParams) (*Device, error) {
	if params.Token == "" {
		return nil, fmt.Errorf("device token is required")
	}
	return s.repo.Register(ctx, params)
}

// NotifySyncComplete pushes an alert when a sync pass stored new activity.
// A pass with nothing added is silent.
func (s *Service) NotifySyncComplete(ctx context.Context, conn *connection.Connection, result *sync.Result) {
	if result == nil || result.Added == 0 {
		return
	}

	data := map[string]string{
		"type":         "sync_complete",
		"connectionId": conn.ID,
		"added":        strconv.Itoa(result.Added),
	}
	s.broadcast(ctx, s.texts.SyncComplete, conn.InstitutionName, data)
}

// NotifyReconnectRequired pushes an alert when a connection's credentials
// stopped working and the user must re-link.
func (s *Service) NotifyReconnectRequired(ctx context.Context, conn *connection.Connection) {
	data := map[string]string{
		"type":         "reconnect_required",
		"connectionId": conn.ID,
	}
	s.broadcast(ctx, s.texts.ReconnectRequired, conn.InstitutionName, data)
}

func (s *Service) broadcast(ctx context.Context, text messages.MessageText, institutionName string, data map[string]string) {
	body := fmt.Sprintf(text.Body, institutionName)

	if s.messenger == nil {
		log.Printf("Notification (push disabled): %s: %s", text.Title, body)
		return
	}

	tokens, err := s.repo.ListTokens(ctx)
	if err != nil {
		log.Printf("Failed to list device tokens: %v", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	if err := s.messenger.SendMulticast(ctx, tokens, text.Title, body, data); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}
