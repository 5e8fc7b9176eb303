// ABOUTME: Durable enqueue of AI-processing jobs for completed meetings
// ABOUTME: Persists pending job rows consumed by an external worker

package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/notefold/notetaker/internal/store"
)

// Queue persists processing jobs in the store's jobs table. The downstream
// AI worker drains pending rows on its own schedule, so enqueueing is
// fire-and-forget from the reconciler's point of view.
type Queue struct {
	store  store.Store
	logger *slog.Logger
}

// NewQueue creates a Queue backed by the given store.
func NewQueue(st store.Store) *Queue {
	return &Queue{
		store:  st,
		logger: slog.Default().With("component", "jobs"),
	}
}

// Enqueue records a summarize job for the meeting.
func (q *Queue) Enqueue(ctx context.Context, meetingID string) error {
	job := &store.Job{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		Kind:      store.JobKindSummarize,
		Status:    store.JobStatusPending,
	}
	if err := q.store.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("enqueueing %s job: %w", job.Kind, err)
	}
	q.logger.Debug("job enqueued", "job_id", job.ID, "meeting_id", meetingID)
	return nil
}
