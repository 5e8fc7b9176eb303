// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides meeting/bot/artifact persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS meetings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			join_url TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL DEFAULT '',
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bots (
			id TEXT PRIMARY KEY,
			meeting_id TEXT NOT NULL,
			join_at DATETIME NOT NULL,
			meeting_url TEXT NOT NULL,
			platform TEXT NOT NULL DEFAULT '',
			lead_minutes INTEGER NOT NULL,
			status TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (meeting_id) REFERENCES meetings(id)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_bots_meeting_id
			ON bots(meeting_id);

		CREATE INDEX IF NOT EXISTS idx_bots_status
			ON bots(status);

		CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			bot_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			download_url TEXT NOT NULL DEFAULT '',
			local_path TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL DEFAULT '',
			expires_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (bot_id) REFERENCES bots(id)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_artifacts_bot_kind
			ON artifacts(bot_id, kind);

		CREATE TABLE IF NOT EXISTS preferences (
			user_id TEXT PRIMARY KEY,
			lead_minutes INTEGER,
			notetaker_enabled INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			meeting_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_jobs_status
			ON jobs(status, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// CreateMeeting inserts a new meeting record.
func (s *SQLiteStore) CreateMeeting(ctx context.Context, meeting *Meeting) error {
	now := time.Now().UTC()
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = now
	}
	meeting.UpdatedAt = now
	if meeting.Status == "" {
		meeting.Status = MeetingStatusPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (id, user_id, join_url, platform, start_time, end_time, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meeting.ID, meeting.UserID, meeting.JoinURL, meeting.Platform,
		meeting.StartTime.UTC(), meeting.EndTime.UTC(), meeting.Status,
		meeting.CreatedAt, meeting.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting meeting: %w", err)
	}
	return nil
}

// GetMeeting retrieves a meeting by ID. Returns ErrNotFound if it does not exist.
func (s *SQLiteStore) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	var m Meeting
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, join_url, platform, start_time, end_time, status, created_at, updated_at
		FROM meetings WHERE id = ?`, id).Scan(
		&m.ID, &m.UserID, &m.JoinURL, &m.Platform, &m.StartTime, &m.EndTime,
		&m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying meeting: %w", err)
	}
	return &m, nil
}

// MarkMeetingCompleted advances the meeting's status to completed.
func (s *SQLiteStore) MarkMeetingCompleted(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE meetings SET status = ?, updated_at = ? WHERE id = ?`,
		MeetingStatusCompleted, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("marking meeting completed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBot inserts a new bot record. The meeting_id unique index enforces
// the one-bot-per-meeting invariant.
func (s *SQLiteStore) CreateBot(ctx context.Context, bot *Bot) error {
	now := time.Now().UTC()
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = now
	}
	bot.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bots (id, meeting_id, join_at, meeting_url, platform, lead_minutes, status, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bot.ID, bot.MeetingID, bot.JoinAt.UTC(), bot.MeetingURL, bot.Platform,
		bot.LeadMinutes, string(bot.Status), bot.Metadata, bot.CreatedAt, bot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting bot: %w", err)
	}
	return nil
}

const botColumns = `id, meeting_id, join_at, meeting_url, platform, lead_minutes, status, metadata, created_at, updated_at`

func scanBot(row interface{ Scan(...any) error }) (*Bot, error) {
	var b Bot
	var status string
	err := row.Scan(&b.ID, &b.MeetingID, &b.JoinAt, &b.MeetingURL, &b.Platform,
		&b.LeadMinutes, &status, &b.Metadata, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = BotStatus(status)
	return &b, nil
}

// GetBot retrieves a bot by its provider-assigned ID.
func (s *SQLiteStore) GetBot(ctx context.Context, id string) (*Bot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+botColumns+` FROM bots WHERE id = ?`, id)
	bot, err := scanBot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying bot: %w", err)
	}
	return bot, nil
}

// GetBotByMeeting retrieves the bot assigned to a meeting, if any.
func (s *SQLiteStore) GetBotByMeeting(ctx context.Context, meetingID string) (*Bot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+botColumns+` FROM bots WHERE meeting_id = ?`, meetingID)
	bot, err := scanBot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying bot by meeting: %w", err)
	}
	return bot, nil
}

// ListActiveBots returns bots in a non-terminal status, oldest first.
// These are the bots the poll loop reconciles.
func (s *SQLiteStore) ListActiveBots(ctx context.Context) ([]*Bot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+botColumns+` FROM bots
		WHERE status IN (?, ?, ?)
		ORDER BY created_at ASC`,
		string(BotStatusScheduled), string(BotStatusJoining), string(BotStatusInCall))
	if err != nil {
		return nil, fmt.Errorf("querying active bots: %w", err)
	}
	defer rows.Close()

	var bots []*Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bot: %w", err)
		}
		bots = append(bots, bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bots: %w", err)
	}
	return bots, nil
}

// DeleteBot removes a bot record and its artifacts.
func (s *SQLiteStore) DeleteBot(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE bot_id = ?`, id); err != nil {
		return fmt.Errorf("deleting bot artifacts: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting bot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBotStatus conditionally advances a bot's status. The WHERE clause on
// the previously observed status makes the write a compare-and-swap: when a
// concurrent reconciliation already moved the bot, zero rows match and
// ErrStaleStatus is returned so the caller skips its side effects.
func (s *SQLiteStore) UpdateBotStatus(ctx context.Context, id string, from, to BotStatus, metadata string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bots SET status = ?, metadata = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), metadata, time.Now().UTC(), id, string(from))
	if err != nil {
		return fmt.Errorf("updating bot status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a vanished bot from a lost race
		if _, getErr := s.GetBot(ctx, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

// SetBotStatus writes a bot status unconditionally. Only the cancel path
// uses this; reconciliation goes through UpdateBotStatus.
func (s *SQLiteStore) SetBotStatus(ctx context.Context, id string, status BotStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bots SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("setting bot status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBotMetadata overwrites a bot's metadata blob.
func (s *SQLiteStore) UpdateBotMetadata(ctx context.Context, id string, metadata string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bots SET metadata = ?, updated_at = ? WHERE id = ?`,
		metadata, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating bot metadata: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertArtifact inserts or overwrites the artifact for (bot, kind). The
// unique index on (bot_id, kind) backs the ON CONFLICT clause, so concurrent
// captures cannot produce duplicate rows.
func (s *SQLiteStore) UpsertArtifact(ctx context.Context, artifact *Artifact) error {
	now := time.Now().UTC()
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = now
	}
	artifact.UpdatedAt = now

	var expiresAt any
	if artifact.ExpiresAt != nil {
		expiresAt = artifact.ExpiresAt.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, bot_id, kind, status, download_url, local_path, payload, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bot_id, kind) DO UPDATE SET
			status = excluded.status,
			download_url = excluded.download_url,
			payload = excluded.payload,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		artifact.ID, artifact.BotID, string(artifact.Kind), artifact.Status,
		artifact.DownloadURL, artifact.LocalPath, artifact.Payload, expiresAt,
		artifact.CreatedAt, artifact.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting artifact: %w", err)
	}
	return nil
}

func scanArtifact(row interface{ Scan(...any) error }) (*Artifact, error) {
	var a Artifact
	var kind string
	var expiresAt sql.NullTime
	err := row.Scan(&a.ID, &a.BotID, &kind, &a.Status, &a.DownloadURL,
		&a.LocalPath, &a.Payload, &expiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Kind = ArtifactKind(kind)
	if expiresAt.Valid {
		t := expiresAt.Time
		a.ExpiresAt = &t
	}
	return &a, nil
}

const artifactColumns = `id, bot_id, kind, status, download_url, local_path, payload, expires_at, created_at, updated_at`

// GetArtifact retrieves the artifact for (bot, kind).
func (s *SQLiteStore) GetArtifact(ctx context.Context, botID string, kind ArtifactKind) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE bot_id = ? AND kind = ?`,
		botID, string(kind))
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying artifact: %w", err)
	}
	return artifact, nil
}

// ListArtifacts returns all artifacts captured for a bot.
func (s *SQLiteStore) ListArtifacts(ctx context.Context, botID string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE bot_id = ? ORDER BY kind ASC`, botID)
	if err != nil {
		return nil, fmt.Errorf("querying artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artifacts: %w", err)
	}
	return artifacts, nil
}

// GetPreference retrieves a user's recording preference. Returns ErrNotFound
// when the user has never saved one.
func (s *SQLiteStore) GetPreference(ctx context.Context, userID string) (*Preference, error) {
	var p Preference
	var leadMinutes sql.NullInt64
	var enabled int
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, lead_minutes, notetaker_enabled, updated_at
		FROM preferences WHERE user_id = ?`, userID).Scan(
		&p.UserID, &leadMinutes, &enabled, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying preference: %w", err)
	}
	if leadMinutes.Valid {
		v := int(leadMinutes.Int64)
		p.LeadMinutes = &v
	}
	p.NotetakerEnabled = enabled != 0
	return &p, nil
}

// UpsertPreference inserts or replaces a user's recording preference.
func (s *SQLiteStore) UpsertPreference(ctx context.Context, pref *Preference) error {
	pref.UpdatedAt = time.Now().UTC()

	var leadMinutes any
	if pref.LeadMinutes != nil {
		leadMinutes = *pref.LeadMinutes
	}
	enabled := 0
	if pref.NotetakerEnabled {
		enabled = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, lead_minutes, notetaker_enabled, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			lead_minutes = excluded.lead_minutes,
			notetaker_enabled = excluded.notetaker_enabled,
			updated_at = excluded.updated_at`,
		pref.UserID, leadMinutes, enabled, pref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting preference: %w", err)
	}
	return nil
}

// CreateJob inserts a pending job for the downstream worker.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = JobStatusPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, meeting_id, kind, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.MeetingID, job.Kind, job.Status, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

// ListPendingJobs returns jobs awaiting the downstream worker, oldest first.
func (s *SQLiteStore) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, kind, status, created_at
		FROM jobs WHERE status = ? ORDER BY created_at ASC`, JobStatusPending)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.MeetingID, &j.Kind, &j.Status, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
