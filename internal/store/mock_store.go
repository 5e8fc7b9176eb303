// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject failures

package store

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing. The function
// fields, when set, intercept the corresponding method so tests can inject
// failures or race outcomes.
type MockStore struct {
	mu          sync.RWMutex
	meetings    map[string]*Meeting
	bots        map[string]*Bot      // keyed by bot ID
	botsByMtg   map[string]string    // meeting ID -> bot ID
	artifacts   map[string]*Artifact // keyed by "botID:kind"
	preferences map[string]*Preference
	jobs        []*Job

	UpdateBotStatusFn func(ctx context.Context, id string, from, to BotStatus, metadata string) error
	CreateJobFn       func(ctx context.Context, job *Job) error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		meetings:    make(map[string]*Meeting),
		bots:        make(map[string]*Bot),
		botsByMtg:   make(map[string]string),
		artifacts:   make(map[string]*Artifact),
		preferences: make(map[string]*Preference),
	}
}

// CreateMeeting stores a new meeting.
func (m *MockStore) CreateMeeting(ctx context.Context, meeting *Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt := *meeting
	m.meetings[mt.ID] = &mt
	return nil
}

// GetMeeting retrieves a meeting by ID.
func (m *MockStore) GetMeeting(ctx context.Context, id string) (*Meeting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meeting, ok := m.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	mt := *meeting
	return &mt, nil
}

// MarkMeetingCompleted advances the meeting status to completed.
func (m *MockStore) MarkMeetingCompleted(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting, ok := m.meetings[id]
	if !ok {
		return ErrNotFound
	}
	meeting.Status = MeetingStatusCompleted
	meeting.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateBot stores a new bot.
func (m *MockStore) CreateBot(ctx context.Context, bot *Bot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := *bot
	m.bots[b.ID] = &b
	m.botsByMtg[b.MeetingID] = b.ID
	return nil
}

// GetBot retrieves a bot by ID.
func (m *MockStore) GetBot(ctx context.Context, id string) (*Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bot, ok := m.bots[id]
	if !ok {
		return nil, ErrNotFound
	}
	b := *bot
	return &b, nil
}

// GetBotByMeeting retrieves the bot assigned to a meeting.
func (m *MockStore) GetBotByMeeting(ctx context.Context, meetingID string) (*Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.botsByMtg[meetingID]
	if !ok {
		return nil, ErrNotFound
	}
	b := *m.bots[id]
	return &b, nil
}

// ListActiveBots returns bots in a non-terminal status.
func (m *MockStore) ListActiveBots(ctx context.Context) ([]*Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bots []*Bot
	for _, bot := range m.bots {
		if !bot.Status.Terminal() {
			b := *bot
			bots = append(bots, &b)
		}
	}
	return bots, nil
}

// DeleteBot removes a bot and its artifacts.
func (m *MockStore) DeleteBot(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.bots[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.bots, id)
	delete(m.botsByMtg, bot.MeetingID)
	for key, artifact := range m.artifacts {
		if artifact.BotID == id {
			delete(m.artifacts, key)
		}
	}
	return nil
}

// UpdateBotStatus conditionally advances a bot's status.
func (m *MockStore) UpdateBotStatus(ctx context.Context, id string, from, to BotStatus, metadata string) error {
	if m.UpdateBotStatusFn != nil {
		return m.UpdateBotStatusFn(ctx, id, from, to, metadata)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.bots[id]
	if !ok {
		return ErrNotFound
	}
	if bot.Status != from {
		return ErrStaleStatus
	}
	bot.Status = to
	bot.Metadata = metadata
	bot.UpdatedAt = time.Now().UTC()
	return nil
}

// SetBotStatus writes a bot status unconditionally.
func (m *MockStore) SetBotStatus(ctx context.Context, id string, status BotStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.bots[id]
	if !ok {
		return ErrNotFound
	}
	bot.Status = status
	bot.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateBotMetadata overwrites a bot's metadata blob.
func (m *MockStore) UpdateBotMetadata(ctx context.Context, id string, metadata string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.bots[id]
	if !ok {
		return ErrNotFound
	}
	bot.Metadata = metadata
	bot.UpdatedAt = time.Now().UTC()
	return nil
}

// UpsertArtifact inserts or overwrites the artifact for (bot, kind).
func (m *MockStore) UpsertArtifact(ctx context.Context, artifact *Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := artifact.BotID + ":" + string(artifact.Kind)
	a := *artifact
	if existing, ok := m.artifacts[key]; ok {
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	}
	a.UpdatedAt = time.Now().UTC()
	m.artifacts[key] = &a
	return nil
}

// GetArtifact retrieves the artifact for (bot, kind).
func (m *MockStore) GetArtifact(ctx context.Context, botID string, kind ArtifactKind) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	artifact, ok := m.artifacts[botID+":"+string(kind)]
	if !ok {
		return nil, ErrNotFound
	}
	a := *artifact
	return &a, nil
}

// ListArtifacts returns all artifacts captured for a bot.
func (m *MockStore) ListArtifacts(ctx context.Context, botID string) ([]*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var artifacts []*Artifact
	for _, artifact := range m.artifacts {
		if artifact.BotID == botID {
			a := *artifact
			artifacts = append(artifacts, &a)
		}
	}
	return artifacts, nil
}

// GetPreference retrieves a user's preference.
func (m *MockStore) GetPreference(ctx context.Context, userID string) (*Preference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pref, ok := m.preferences[userID]
	if !ok {
		return nil, ErrNotFound
	}
	p := *pref
	return &p, nil
}

// UpsertPreference inserts or replaces a user's preference.
func (m *MockStore) UpsertPreference(ctx context.Context, pref *Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *pref
	m.preferences[p.UserID] = &p
	return nil
}

// CreateJob appends a job.
func (m *MockStore) CreateJob(ctx context.Context, job *Job) error {
	if m.CreateJobFn != nil {
		return m.CreateJobFn(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j := *job
	m.jobs = append(m.jobs, &j)
	return nil
}

// ListPendingJobs returns jobs with status pending.
func (m *MockStore) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var jobs []*Job
	for _, job := range m.jobs {
		if job.Status == JobStatusPending {
			j := *job
			jobs = append(jobs, &j)
		}
	}
	return jobs, nil
}

// Ping always succeeds.
func (m *MockStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *MockStore) Close() error { return nil }
