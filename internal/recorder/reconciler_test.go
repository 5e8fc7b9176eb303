// ABOUTME: Tests for bot reconciliation against remote provider state
// ABOUTME: Covers transitions, race losers, announcements, and Done side effects

package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notefold/notetaker/internal/provider"
	"github.com/notefold/notetaker/internal/store"
)

// countingEnqueuer records enqueued meeting IDs.
type countingEnqueuer struct {
	mu       sync.Mutex
	enqueued []string
	err      error
}

func (e *countingEnqueuer) Enqueue(ctx context.Context, meetingID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.enqueued = append(e.enqueued, meetingID)
	return nil
}

func (e *countingEnqueuer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.enqueued)
}

func remoteBot(id string, codes ...string) *provider.Bot {
	bot := &provider.Bot{ID: id}
	for _, code := range codes {
		bot.StatusChanges = append(bot.StatusChanges, provider.StatusChange{Code: code})
	}
	return bot
}

type reconcilerFixture struct {
	store    *store.MockStore
	provider *fakeProvider
	jobs     *countingEnqueuer
	rec      *Reconciler
	bot      *store.Bot
}

func newReconcilerFixture(t *testing.T, botStatus store.BotStatus, meetingStart time.Time) *reconcilerFixture {
	t.Helper()
	st := store.NewMockStore()
	ctx := context.Background()

	require.NoError(t, st.CreateMeeting(ctx, &store.Meeting{
		ID:        "meeting-1",
		UserID:    "user-1",
		JoinURL:   "https://meet.example.com/abc",
		StartTime: meetingStart,
		EndTime:   meetingStart.Add(time.Hour),
		Status:    store.MeetingStatusPending,
	}))

	bot := &store.Bot{ID: "bot-1", MeetingID: "meeting-1", Status: botStatus}
	require.NoError(t, st.CreateBot(ctx, bot))

	pc := &fakeProvider{}
	jobs := &countingEnqueuer{}
	rec := NewReconciler(st, pc, jobs, "This meeting is being recorded.")
	rec.now = func() time.Time { return testNow }

	return &reconcilerFixture{store: st, provider: pc, jobs: jobs, rec: rec, bot: bot}
}

func TestReconcile_TransitionPersisted(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusScheduled, testNow.Add(time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "joining_call"), nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, store.BotStatusJoining, got.Status)

	meta, err := ParseMetadata(got.Metadata)
	require.NoError(t, err)
	require.NotNil(t, meta.LastStatus)
	assert.Equal(t, "joining_call", meta.LastStatus.Code)
}

func TestReconcile_UsesLastHistoryEntry(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusScheduled, testNow.Add(time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "joining_call", "in_call_recording"), nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, store.BotStatusInCall, got.Status)
}

func TestReconcile_TopLevelStatusFallback(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusScheduled, testNow.Add(time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return &provider.Bot{ID: id, Status: &provider.StatusChange{Code: "joining_call"}}, nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, store.BotStatusJoining, got.Status)
}

func TestReconcile_NoStatusAtAll(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusScheduled, testNow.Add(time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return &provider.Bot{ID: id}, nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, store.BotStatusScheduled, got.Status)
}

func TestReconcile_ProviderFailureLeavesStateAlone(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusJoining, testNow.Add(time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return nil, errors.New("timeout")
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, store.BotStatusJoining, got.Status)
	assert.Empty(t, got.Metadata)
}

func TestReconcile_UnrecognizedCodeIgnored(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusJoining, testNow.Add(time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "brand_new_provider_code"), nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, store.BotStatusJoining, got.Status)
}

func TestReconcile_StaleStatusIgnored(t *testing.T) {
	// A Done bot receiving a late in_call snapshot must not regress.
	f := newReconcilerFixture(t, store.BotStatusDone, testNow.Add(-time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "in_call_recording"), nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, store.BotStatusDone, got.Status)
	assert.Zero(t, f.jobs.count())
}

func TestReconcile_DoneSideEffects(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusInCall, testNow.Add(-time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		bot := remoteBot(id, "done")
		bot.Recordings = []provider.Recording{{
			MediaShortcuts: provider.MediaShortcuts{
				Transcript: &provider.MediaShortcut{Data: provider.ShortcutData{DownloadURL: "https://cdn.example.com/t.json"}},
				VideoMixed: &provider.MediaShortcut{Data: provider.ShortcutData{DownloadURL: "https://cdn.example.com/v.mp4"}},
			},
		}}
		return bot, nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, store.BotStatusDone, got.Status)

	meeting, err := f.store.GetMeeting(context.Background(), "meeting-1")
	require.NoError(t, err)
	assert.Equal(t, store.MeetingStatusCompleted, meeting.Status)

	artifacts, err := f.store.ListArtifacts(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Len(t, artifacts, 2)

	assert.Equal(t, []string{"meeting-1"}, f.jobs.enqueued)
}

func TestReconcile_DoneTwiceRunsSideEffectsOnce(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusInCall, testNow.Add(-time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "done"), nil
	}

	// First invocation wins the transition and runs the side effects.
	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))
	assert.Equal(t, 1, f.jobs.count())

	// Second invocation with the same stale in-memory bot loses the
	// conditional write and must not re-run anything.
	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))
	assert.Equal(t, 1, f.jobs.count())
}

func TestReconcile_LostRaceSkipsSideEffects(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusInCall, testNow.Add(-time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "done"), nil
	}
	// Simulate a concurrent reconciliation winning between our read and write.
	f.store.UpdateBotStatusFn = func(ctx context.Context, id string, from, to store.BotStatus, metadata string) error {
		return store.ErrStaleStatus
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))
	assert.Zero(t, f.jobs.count())

	meeting, err := f.store.GetMeeting(context.Background(), "meeting-1")
	require.NoError(t, err)
	assert.Equal(t, store.MeetingStatusPending, meeting.Status)
}

func TestReconcile_EnqueueFailureDoesNotRollBack(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusInCall, testNow.Add(-time.Hour))
	f.jobs.err = errors.New("queue full")
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "done"), nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	meeting, err := f.store.GetMeeting(context.Background(), "meeting-1")
	require.NoError(t, err)
	assert.Equal(t, store.MeetingStatusCompleted, meeting.Status)
}

func TestReconcile_AnnouncementOnUnchangedStatus(t *testing.T) {
	// The meeting started and the bot is in call with no status change: the
	// announcement still fires.
	f := newReconcilerFixture(t, store.BotStatusInCall, testNow.Add(-10*time.Minute))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "in_call_recording"), nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))
	assert.Equal(t, 1, f.provider.chatCalls)

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	meta, err := ParseMetadata(got.Metadata)
	require.NoError(t, err)
	assert.True(t, meta.Announced())
}

func TestReconcile_AnnouncementFiresAtMostOnce(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusInCall, testNow.Add(-10*time.Minute))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "in_call_recording"), nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	// Later polls see the persisted timestamp and skip the send.
	refreshed, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	require.NoError(t, f.rec.Reconcile(context.Background(), refreshed))
	assert.Equal(t, 1, f.provider.chatCalls)
}

func TestReconcile_AnnouncementSkippedBeforeStart(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusInCall, testNow.Add(30*time.Minute))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "in_call_recording"), nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))
	assert.Zero(t, f.provider.chatCalls)
}

func TestReconcile_AnnouncementSkippedWhenNotInCall(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusScheduled, testNow.Add(-10*time.Minute))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "joining_call"), nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))
	assert.Zero(t, f.provider.chatCalls)
}

func TestReconcile_AnnouncementSendFailureRetriesLater(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusInCall, testNow.Add(-10*time.Minute))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return remoteBot(id, "in_call_recording"), nil
	}
	f.provider.chatFn = func(ctx context.Context, id, message string) error {
		return errors.New("chat unavailable")
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	meta, err := ParseMetadata(got.Metadata)
	require.NoError(t, err)
	assert.False(t, meta.Announced(), "flag is only set after a confirmed send")

	// Next poll succeeds and sets the flag.
	f.provider.chatFn = nil
	require.NoError(t, f.rec.Reconcile(context.Background(), got))
	got, err = f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	meta, err = ParseMetadata(got.Metadata)
	require.NoError(t, err)
	assert.True(t, meta.Announced())
}

func TestReconcile_FatalLogsOnly(t *testing.T) {
	f := newReconcilerFixture(t, store.BotStatusJoining, testNow.Add(time.Hour))
	f.provider.getFn = func(ctx context.Context, id string) (*provider.Bot, error) {
		return &provider.Bot{ID: id, StatusChanges: []provider.StatusChange{
			{Code: "fatal", SubCode: "meeting_not_found"},
		}}, nil
	}

	require.NoError(t, f.rec.Reconcile(context.Background(), f.bot))

	got, err := f.store.GetBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, store.BotStatusFatal, got.Status)
	assert.Zero(t, f.jobs.count())

	meeting, err := f.store.GetMeeting(context.Background(), "meeting-1")
	require.NoError(t, err)
	assert.Equal(t, store.MeetingStatusPending, meeting.Status)
}
