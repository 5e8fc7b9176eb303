// ABOUTME: Extracts media artifacts from provider recording payloads
// ABOUTME: Upserts one artifact per (bot, kind) via the store's unique-keyed upsert

package recorder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/notefold/notetaker/internal/provider"
	"github.com/notefold/notetaker/internal/store"
)

// shortcutPickers maps each artifact kind to its extractor, so adding a kind
// means adding one table entry instead of another branch at every call site.
var shortcutPickers = map[store.ArtifactKind]func(provider.MediaShortcuts) *provider.MediaShortcut{
	store.ArtifactKindTranscript:        func(m provider.MediaShortcuts) *provider.MediaShortcut { return m.Transcript },
	store.ArtifactKindVideo:             func(m provider.MediaShortcuts) *provider.MediaShortcut { return m.VideoMixed },
	store.ArtifactKindParticipantEvents: func(m provider.MediaShortcuts) *provider.MediaShortcut { return m.ParticipantEvents },
	store.ArtifactKindMeta:              func(m provider.MediaShortcuts) *provider.MediaShortcut { return m.MeetingMetadata },
}

// CaptureMedia walks the recordings of a finished bot and upserts an artifact
// for every shortcut that carries a download URL. Shortcuts without a URL are
// skipped; partial capture is normal while the provider is still processing.
// Re-entry overwrites rather than duplicates, backed by the store's unique
// (bot, kind) constraint.
func CaptureMedia(ctx context.Context, st store.Store, botID string, recordings []provider.Recording) error {
	for _, recording := range recordings {
		for _, kind := range store.ArtifactKinds {
			shortcut := shortcutPickers[kind](recording.MediaShortcuts)
			if shortcut == nil || shortcut.Data.DownloadURL == "" {
				continue
			}

			payload, err := json.Marshal(shortcut)
			if err != nil {
				return fmt.Errorf("encoding %s shortcut: %w", kind, err)
			}

			artifact := &store.Artifact{
				ID:          uuid.NewString(),
				BotID:       botID,
				Kind:        kind,
				Status:      store.ArtifactStatusAvailable,
				DownloadURL: shortcut.Data.DownloadURL,
				Payload:     string(payload),
				ExpiresAt:   shortcut.ExpiresAt,
			}
			if err := st.UpsertArtifact(ctx, artifact); err != nil {
				return fmt.Errorf("upserting %s artifact: %w", kind, err)
			}
		}
	}
	return nil
}
