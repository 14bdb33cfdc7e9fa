package messages

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type MessageText struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Messages struct {
	SyncComplete      MessageText `json:"sync_complete"`
	ReconnectRequired MessageText `json:"reconnect_required"`
}

// Defaults are used when no messages file is configured. Bodies are
// fmt.Sprintf templates taking the institution name.
func Defaults() *Messages {
	return &Messages{
		SyncComplete: MessageText{
			Title: "Accounts updated",
			Body:  "New transactions from %s are ready.",
		},
		ReconnectRequired: MessageText{
			Title: "Reconnection needed",
			Body:  "Your connection to %s expired. Please sign in again.",
		},
	}
}

var (
	loaded   Messages
	loadOnce sync.Once
	loadErr  error
)

// Load reads the notifications JSON file and caches the result.
// An empty path returns the built-in defaults.
// Safe to call from multiple goroutines.
func Load(path string) (*Messages, error) {
	if path == "" {
		return Defaults(), nil
	}

	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read messages file: %w", err)
			return
		}
		if err := json.Unmarshal(data, &loaded); err != nil {
			loadErr = fmt.Errorf("failed to parse messages file: %w", err)
		}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &loaded, nil
}
