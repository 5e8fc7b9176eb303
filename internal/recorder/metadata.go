// ABOUTME: Codec for the bot metadata blob persisted alongside each bot
// ABOUTME: Holds the last raw provider status and the announcement timestamp

package recorder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/notefold/notetaker/internal/provider"
)

// Metadata is the small evolving record attached to each bot. It is typed in
// memory and serialized opaquely at the storage boundary; fields are optional
// so new ones can be added without a migration.
type Metadata struct {
	LastStatus           *provider.StatusChange `json:"last_status,omitempty"`
	RecordingAnnouncedAt *time.Time             `json:"recording_announced_at,omitempty"`
}

// ParseMetadata decodes a stored metadata blob. An empty blob decodes to the
// zero value.
func ParseMetadata(raw string) (Metadata, error) {
	var m Metadata
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Metadata{}, fmt.Errorf("decoding bot metadata: %w", err)
	}
	return m, nil
}

// Encode serializes the metadata for storage.
func (m Metadata) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding bot metadata: %w", err)
	}
	return string(data), nil
}

// Announced reports whether the recording-start announcement was already
// confirmed sent for this bot.
func (m Metadata) Announced() bool {
	return m.RecordingAnnouncedAt != nil
}
