// ABOUTME: Request and response types for the recording-bot provider API
// ABOUTME: Mirrors the provider's JSON wire format for bot and recording payloads

package provider

import "time"

// StatusChange is a single entry in a bot's status history.
type StatusChange struct {
	Code      string     `json:"code"`
	SubCode   string     `json:"sub_code,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ShortcutData carries the download location of a media shortcut.
type ShortcutData struct {
	DownloadURL string `json:"download_url,omitempty"`
}

// MediaShortcut is a pointer to one downloadable output of a recording.
// Shortcuts frequently arrive without a download URL while the provider is
// still processing; callers skip those.
type MediaShortcut struct {
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	Data      ShortcutData `json:"data"`
}

// MediaShortcuts groups the per-kind shortcuts of a recording.
type MediaShortcuts struct {
	Transcript        *MediaShortcut `json:"transcript,omitempty"`
	VideoMixed        *MediaShortcut `json:"video_mixed,omitempty"`
	ParticipantEvents *MediaShortcut `json:"participant_events,omitempty"`
	MeetingMetadata   *MediaShortcut `json:"meeting_metadata,omitempty"`
}

// Recording is one recording entry of a bot.
type Recording struct {
	ID             string         `json:"id,omitempty"`
	MediaShortcuts MediaShortcuts `json:"media_shortcuts"`
}

// Bot is the provider's view of a recording bot.
type Bot struct {
	ID            string         `json:"id"`
	Status        *StatusChange  `json:"status,omitempty"`
	StatusChanges []StatusChange `json:"status_changes,omitempty"`
	Recordings    []Recording    `json:"recordings,omitempty"`
}

// TranscriptProvider selects the provider-side transcription mode.
type TranscriptProvider struct {
	Streaming struct{} `json:"streaming"`
}

// TranscriptConfig requests transcript output.
type TranscriptConfig struct {
	Provider TranscriptProvider `json:"provider"`
}

// VideoMixedConfig requests mixed mp4 video output.
type VideoMixedConfig struct{}

// RecordingConfig selects the outputs the bot should produce.
type RecordingConfig struct {
	Transcript       *TranscriptConfig `json:"transcript,omitempty"`
	VideoMixedMP4    *VideoMixedConfig `json:"video_mixed_mp4,omitempty"`
	VideoMixedLayout string            `json:"video_mixed_layout,omitempty"`
}

// CreateBotRequest is the body of POST /bot.
type CreateBotRequest struct {
	MeetingURL      string            `json:"meeting_url"`
	BotName         string            `json:"bot_name"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RecordingConfig RecordingConfig   `json:"recording_config"`
	JoinAt          *time.Time        `json:"join_at,omitempty"`
}

// ChatMessageRequest is the body of POST /bot/{id}/send_chat_message/.
type ChatMessageRequest struct {
	Message string `json:"message"`
	To      string `json:"to"`
}
