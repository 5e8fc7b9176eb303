// ABOUTME: Schedules and cancels recording bots for meetings
// ABOUTME: Idempotent by meeting, with lead-time resolution and a join-at threshold

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

// ProviderClient is the subset of the provider API the recorder uses.
type ProviderClient interface {
	CreateBot(ctx context.Context, req *provider.CreateBotRequest) (*provider.Bot, error)
	GetBot(ctx context.Context, id string) (*provider.Bot, error)
	DeleteBot(ctx context.Context, id string) error
	SendChatMessage(ctx context.Context, id, message string) error
}

// SchedulerConfig carries the scheduling knobs from process configuration.
type SchedulerConfig struct {
	BotName            string
	DefaultLeadMinutes int
	// JoinAheadThreshold is the cutoff below which a future join time is not
	// worth scheduling remotely and the bot joins immediately instead.
	JoinAheadThreshold time.Duration
	VideoLayout        string
}

// Scheduler creates and cancels recording bots.
type Scheduler struct {
	store    store.Store
	provider ProviderClient
	cfg      SchedulerConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(st store.Store, pc ProviderClient, cfg SchedulerConfig) *Scheduler {
	if cfg.JoinAheadThreshold == 0 {
		cfg.JoinAheadThreshold = 5 * time.Minute
	}
	return &Scheduler{
		store:    st,
		provider: pc,
		cfg:      cfg,
		now:      time.Now,
		logger:   slog.Default().With("component", "scheduler"),
	}
}

// Schedule requests a recording bot for the meeting. It is idempotent by
// meeting: an existing bot in a non-resettable status is returned unchanged,
// while a Cancelled or Fatal bot is deleted and replaced. A nil bot with a
// nil error means scheduling is not applicable (no join URL, or the meeting
// already started), which is a normal outcome rather than a failure.
func (s *Scheduler) Schedule(ctx context.Context, meeting *store.Meeting) (*store.Bot, error) {
	if meeting.JoinURL == "" {
		s.logger.Debug("meeting has no join URL, skipping", "meeting_id", meeting.ID)
		return nil, nil
	}

	existing, err := s.store.GetBotByMeeting(ctx, meeting.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up existing bot: %w", err)
	}
	if existing != nil {
		if !existing.Status.Resettable() {
			s.logger.Debug("bot already scheduled", "meeting_id", meeting.ID, "bot_id", existing.ID, "status", existing.Status)
			return existing, nil
		}
		// Cancelled or Fatal: clear the old record and schedule a fresh bot.
		if err := s.store.DeleteBot(ctx, existing.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("removing resettable bot: %w", err)
		}
		s.logger.Info("replacing terminal bot", "meeting_id", meeting.ID, "old_bot_id", existing.ID, "old_status", existing.Status)
	}

	now := s.now()
	if meeting.StartTime.Before(now) {
		s.logger.Debug("meeting already started, skipping", "meeting_id", meeting.ID, "start_time", meeting.StartTime)
		return nil, nil
	}

	leadMinutes := s.resolveLeadMinutes(ctx, meeting.UserID)
	joinAt := meeting.StartTime.Add(-time.Duration(leadMinutes) * time.Minute)

	req := &provider.CreateBotRequest{
		MeetingURL: meeting.JoinURL,
		BotName:    s.cfg.BotName,
		Metadata: map[string]string{
			"meetingId": meeting.ID,
			"userId":    meeting.UserID,
		},
		RecordingConfig: provider.RecordingConfig{
			Transcript:       &provider.TranscriptConfig{},
			VideoMixedMP4:    &provider.VideoMixedConfig{},
			VideoMixedLayout: s.cfg.VideoLayout,
		},
	}
	// Only schedule a future join when it buys real lead time; otherwise the
	// provider-side granularity could land the join after the meeting began.
	if joinAt.After(now.Add(s.cfg.JoinAheadThreshold)) {
		t := joinAt
		req.JoinAt = &t
	}

	remote, err := s.provider.CreateBot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("requesting bot from provider: %w", err)
	}

	bot := &store.Bot{
		ID:          remote.ID,
		MeetingID:   meeting.ID,
		JoinAt:      joinAt,
		MeetingURL:  meeting.JoinURL,
		Platform:    meeting.Platform,
		LeadMinutes: leadMinutes,
		Status:      store.BotStatusScheduled,
	}
	if err := s.store.CreateBot(ctx, bot); err != nil {
		return nil, fmt.Errorf("persisting bot: %w", err)
	}

	s.logger.Info("bot scheduled", "meeting_id", meeting.ID, "bot_id", bot.ID,
		"join_at", joinAt, "lead_minutes", leadMinutes, "immediate", req.JoinAt == nil)
	return bot, nil
}

// Cancel removes the bot for a meeting. It is idempotent: a missing bot, or
// one already Done or Cancelled, is a no-op. A provider 404 counts as already
// removed; any other remote failure is logged and the local status is still
// set to Cancelled.
func (s *Scheduler) Cancel(ctx context.Context, meetingID string) error {
	bot, err := s.store.GetBotByMeeting(ctx, meetingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up bot: %w", err)
	}
	if bot.Status == store.BotStatusDone || bot.Status == store.BotStatusCancelled {
		return nil
	}

	if err := s.provider.DeleteBot(ctx, bot.ID); err != nil && !errors.Is(err, provider.ErrNotFound) {
		s.logger.Warn("provider delete failed, cancelling locally anyway", "bot_id", bot.ID, "error", err)
	}

	if err := s.store.SetBotStatus(ctx, bot.ID, store.BotStatusCancelled); err != nil {
		return fmt.Errorf("marking bot cancelled: %w", err)
	}
	s.logger.Info("bot cancelled", "meeting_id", meetingID, "bot_id", bot.ID)
	return nil
}

// resolveLeadMinutes returns the user's preferred lead time, falling back to
// the configured default when the user has no preference.
func (s *Scheduler) resolveLeadMinutes(ctx context.Context, userID string) int {
	pref, err := s.store.GetPreference(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("reading preference, using default lead time", "user_id", userID, "error", err)
		}
		return s.cfg.DefaultLeadMinutes
	}
	if pref.LeadMinutes == nil {
		return s.cfg.DefaultLeadMinutes
	}
	return *pref.LeadMinutes
}
