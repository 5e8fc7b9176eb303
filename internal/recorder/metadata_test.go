// ABOUTME: Tests for the bot metadata codec
// ABOUTME: Covers empty blobs, merge of last status, and the announced flag

package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notefold/notetaker/internal/provider"
)

func TestParseMetadata_Empty(t *testing.T) {
	meta, err := ParseMetadata("")
	require.NoError(t, err)
	assert.Nil(t, meta.LastStatus)
	assert.False(t, meta.Announced())
}

func TestParseMetadata_Invalid(t *testing.T) {
	_, err := ParseMetadata("{not json")
	require.Error(t, err)
}

func TestMetadata_EncodeParse(t *testing.T) {
	updated := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	announced := time.Date(2026, 2, 1, 12, 5, 0, 0, time.UTC)
	meta := Metadata{
		LastStatus:           &provider.StatusChange{Code: "in_call_recording", UpdatedAt: &updated},
		RecordingAnnouncedAt: &announced,
	}

	encoded, err := meta.Encode()
	require.NoError(t, err)

	got, err := ParseMetadata(encoded)
	require.NoError(t, err)
	require.NotNil(t, got.LastStatus)
	assert.Equal(t, "in_call_recording", got.LastStatus.Code)
	assert.True(t, got.Announced())
	assert.True(t, got.RecordingAnnouncedAt.Equal(announced))
}

func TestMetadata_NewFieldsSurviveUnknowns(t *testing.T) {
	// Blobs written by newer versions may carry fields this version does not
	// know; parsing must not reject them.
	meta, err := ParseMetadata(`{"last_status":{"code":"done"},"some_future_field":42}`)
	require.NoError(t, err)
	require.NotNil(t, meta.LastStatus)
	assert.Equal(t, "done", meta.LastStatus.Code)
}
