// ABOUTME: Reconciles a bot's persisted lifecycle status against provider state
// ABOUTME: Drives the recording announcement and the Done-transition side effects

package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/notefold/notetaker/internal/provider"
	"github.com/notefold/notetaker/internal/store"
)

// Enqueuer hands a completed meeting to the downstream AI-processing worker.
// Enqueue failures are non-fatal to the reconciler.
type Enqueuer interface {
	Enqueue(ctx context.Context, meetingID string) error
}

// Reconciler fetches a bot's remote state and corrects local state to match.
type Reconciler struct {
	store        store.Store
	provider     ProviderClient
	jobs         Enqueuer
	announcement string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReconciler creates a Reconciler. The announcement message is sent once
// per bot when recording is underway.
func NewReconciler(st store.Store, pc ProviderClient, jobs Enqueuer, announcement string) *Reconciler {
	return &Reconciler{
		store:        st,
		provider:     pc,
		jobs:         jobs,
		announcement: announcement,
		now:          time.Now,
		logger:       slog.Default().With("component", "reconciler"),
	}
}

// Reconcile fetches the bot's remote state, persists any status transition,
// and runs transition side effects. Transient provider failures are logged
// and left for the next poll; only store failures propagate.
func (r *Reconciler) Reconcile(ctx context.Context, bot *store.Bot) error {
	remote, err := r.provider.GetBot(ctx, bot.ID)
	if err != nil {
		r.logger.Warn("fetching remote bot state failed, will retry next poll", "bot_id", bot.ID, "error", err)
		return nil
	}

	change := latestStatusChange(remote)
	if change == nil {
		return nil
	}

	mapped := MapStatus(change.Code)
	if mapped == Unrecognized {
		r.logger.Debug("ignoring unrecognized provider status", "bot_id", bot.ID, "code", change.Code)
		return nil
	}

	meta, err := ParseMetadata(bot.Metadata)
	if err != nil {
		// A corrupt blob should not wedge the bot; start fresh.
		r.logger.Error("bot metadata unreadable, resetting", "bot_id", bot.ID, "error", err)
		meta = Metadata{}
	}

	current := bot.Status
	transitioned := false
	if mapped != bot.Status {
		if !canTransition(bot.Status, mapped) {
			r.logger.Debug("ignoring out-of-order status", "bot_id", bot.ID, "persisted", bot.Status, "incoming", mapped)
		} else {
			meta.LastStatus = change
			encoded, err := meta.Encode()
			if err != nil {
				return err
			}
			err = r.store.UpdateBotStatus(ctx, bot.ID, bot.Status, mapped, encoded)
			if errors.Is(err, store.ErrStaleStatus) {
				// A concurrent reconciliation won the transition and owns
				// the side effects.
				r.logger.Debug("lost status race, skipping", "bot_id", bot.ID, "from", bot.Status, "to", mapped)
				return nil
			}
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("persisting status transition: %w", err)
			}
			current = mapped
			transitioned = true
			r.logger.Info("bot status changed", "bot_id", bot.ID, "from", bot.Status, "to", mapped, "code", change.Code)
		}
	}

	// The announcement is driven by wall clock and in-call state, not by the
	// transition edge, so it runs even when the status is unchanged.
	if current == store.BotStatusInCall && !meta.Announced() {
		meta = r.announceRecording(ctx, bot, meta)
	}

	if !transitioned {
		return nil
	}

	switch current {
	case store.BotStatusDone:
		if err := CaptureMedia(ctx, r.store, bot.ID, remote.Recordings); err != nil {
			r.logger.Error("capturing media", "bot_id", bot.ID, "error", err)
		}
		if err := r.store.MarkMeetingCompleted(ctx, bot.MeetingID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("marking meeting completed: %w", err)
		}
		if err := r.jobs.Enqueue(ctx, bot.MeetingID); err != nil {
			// Capture and completion are the source of truth; the job can be
			// re-triggered independently.
			r.logger.Error("enqueueing processing job", "meeting_id", bot.MeetingID, "error", err)
		}
	case store.BotStatusFatal:
		r.logger.Error("bot reported fatal failure", "bot_id", bot.ID, "code", change.Code, "sub_code", change.SubCode)
	}
	return nil
}

// announceRecording sends the one-time recording notice and persists the
// announcement timestamp. The timestamp is only written after a confirmed
// send, so a failed send is retried on a later poll.
func (r *Reconciler) announceRecording(ctx context.Context, bot *store.Bot, meta Metadata) Metadata {
	meeting, err := r.store.GetMeeting(ctx, bot.MeetingID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("loading meeting for announcement", "bot_id", bot.ID, "error", err)
		}
		return meta
	}
	if meeting.StartTime.IsZero() || meeting.StartTime.After(r.now()) {
		return meta
	}

	if err := r.provider.SendChatMessage(ctx, bot.ID, r.announcement); err != nil {
		r.logger.Warn("sending recording announcement failed, will retry next poll", "bot_id", bot.ID, "error", err)
		return meta
	}

	announcedAt := r.now().UTC()
	meta.RecordingAnnouncedAt = &announcedAt
	encoded, err := meta.Encode()
	if err != nil {
		r.logger.Error("encoding metadata after announcement", "bot_id", bot.ID, "error", err)
		return meta
	}
	if err := r.store.UpdateBotMetadata(ctx, bot.ID, encoded); err != nil {
		r.logger.Error("persisting announcement timestamp", "bot_id", bot.ID, "error", err)
	}
	r.logger.Info("recording announced", "bot_id", bot.ID, "meeting_id", bot.MeetingID)
	return meta
}

// latestStatusChange picks the most recent status entry: the tail of the
// status history when present, otherwise the top-level current status.
func latestStatusChange(bot *provider.Bot) *provider.StatusChange {
	if len(bot.StatusChanges) > 0 {
		return &bot.StatusChanges[len(bot.StatusChanges)-1]
	}
	return bot.Status
}
