// ABOUTME: Store interface and data types for notetaker-gateway persistence
// ABOUTME: Defines Meeting, Bot, Artifact structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrStaleStatus is returned by UpdateBotStatus when the persisted status no
// longer matches the observed value, meaning a concurrent reconciliation
// already advanced the bot.
var ErrStaleStatus = errors.New("bot status changed concurrently")

// MeetingStatus constants for the meeting completion field
const (
	MeetingStatusPending   = "pending"
	MeetingStatusCompleted = "completed"
)

// Meeting represents a calendar meeting produced by calendar sync.
// This subsystem reads meetings and advances Status to completed; it never
// creates or deletes them outside of ingestion and tests.
type Meeting struct {
	ID        string
	UserID    string
	JoinURL   string
	Platform  string
	StartTime time.Time
	EndTime   time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BotStatus is the lifecycle status of a recording bot
type BotStatus string

const (
	BotStatusScheduled BotStatus = "scheduled"
	BotStatusJoining   BotStatus = "joining"
	BotStatusInCall    BotStatus = "in_call"
	BotStatusDone      BotStatus = "done"
	BotStatusFatal     BotStatus = "fatal"
	BotStatusCancelled BotStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s BotStatus) Terminal() bool {
	return s == BotStatusDone || s == BotStatusFatal || s == BotStatusCancelled
}

// Resettable reports whether Schedule may delete a bot in this status and
// create a replacement. Done is terminal for good.
func (s BotStatus) Resettable() bool {
	return s == BotStatusCancelled || s == BotStatusFatal
}

// Bot represents a recording bot assigned to a meeting. The ID is assigned by
// the provider at creation time. At most one bot exists per meeting.
type Bot struct {
	ID          string
	MeetingID   string
	JoinAt      time.Time
	MeetingURL  string
	Platform    string
	LeadMinutes int
	Status      BotStatus
	Metadata    string // JSON blob, empty when never written
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ArtifactKind identifies one of the fixed recording output types
type ArtifactKind string

const (
	ArtifactKindTranscript        ArtifactKind = "transcript"
	ArtifactKindVideo             ArtifactKind = "video"
	ArtifactKindParticipantEvents ArtifactKind = "participant_events"
	ArtifactKindMeta              ArtifactKind = "meta"
)

// ArtifactKinds lists all artifact kinds in capture order.
var ArtifactKinds = []ArtifactKind{
	ArtifactKindTranscript,
	ArtifactKindVideo,
	ArtifactKindParticipantEvents,
	ArtifactKindMeta,
}

// ArtifactStatus constants
const (
	ArtifactStatusAvailable = "available"
)

// Artifact represents a downloadable output of a completed recording.
// At most one artifact exists per (bot, kind); re-capture overwrites in place.
type Artifact struct {
	ID          string
	BotID       string
	Kind        ArtifactKind
	Status      string
	DownloadURL string
	LocalPath   string // reserved for a future caching tier, always empty today
	Payload     string // raw provider payload for the artifact
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Preference holds per-user recording settings, read-only input to scheduling.
type Preference struct {
	UserID           string
	LeadMinutes      *int // nil means use the configured default
	NotetakerEnabled bool
	UpdatedAt        time.Time
}

// JobKind constants
const (
	JobKindSummarize = "summarize"
)

// JobStatus constants
const (
	JobStatusPending = "pending"
)

// Job is a durable work item for the downstream AI-processing worker.
type Job struct {
	ID        string
	MeetingID string
	Kind      string
	Status    string
	CreatedAt time.Time
}

// Store defines the persistence interface for notetaker-gateway
type Store interface {
	// Meeting operations
	CreateMeeting(ctx context.Context, meeting *Meeting) error
	GetMeeting(ctx context.Context, id string) (*Meeting, error)
	MarkMeetingCompleted(ctx context.Context, id string) error

	// Bot operations
	CreateBot(ctx context.Context, bot *Bot) error
	GetBot(ctx context.Context, id string) (*Bot, error)
	GetBotByMeeting(ctx context.Context, meetingID string) (*Bot, error)
	ListActiveBots(ctx context.Context) ([]*Bot, error)
	DeleteBot(ctx context.Context, id string) error

	// UpdateBotStatus conditionally advances a bot's status: the write
	// succeeds only if the persisted status still equals from. Returns
	// ErrStaleStatus when a concurrent caller won the transition.
	UpdateBotStatus(ctx context.Context, id string, from, to BotStatus, metadata string) error

	// SetBotStatus writes a status unconditionally. Used only by Cancel.
	SetBotStatus(ctx context.Context, id string, status BotStatus) error

	UpdateBotMetadata(ctx context.Context, id string, metadata string) error

	// Artifact operations
	UpsertArtifact(ctx context.Context, artifact *Artifact) error
	GetArtifact(ctx context.Context, botID string, kind ArtifactKind) (*Artifact, error)
	ListArtifacts(ctx context.Context, botID string) ([]*Artifact, error)

	// Preference operations
	GetPreference(ctx context.Context, userID string) (*Preference, error)
	UpsertPreference(ctx context.Context, pref *Preference) error

	// Job operations
	CreateJob(ctx context.Context, job *Job) error
	ListPendingJobs(ctx context.Context) ([]*Job, error)

	Ping(ctx context.Context) error
	Close() error
}
