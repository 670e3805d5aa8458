package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	JobIDClearExpired         = "oauth.tokens.clear_expired"
	clearExpiredScriptPath    = "oauth/tokens/clear_expired"
	defaultSweepRetryInitial  = time.Second
	defaultSweepRetryMax      = time.Minute
	defaultSweepMaxAttempts   = 5
	clearExpiredDedupPolicy   = "drop"
	clearExpiredKeyResolution = time.Minute
)

// ExponentialBackoffScheduler doubles the retry delay per attempt up to Max.
type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultSweepRetryInitial
	}
	max := s.Max
	if max <= 0 {
		max = defaultSweepRetryMax
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// NewClearExpiredJob builds the queue message that triggers a sweep. Messages
// created within the same minute share an idempotency key.
func NewClearExpiredJob(at time.Time) *JobExecutionMessage {
	bucket := at.UTC().Truncate(clearExpiredKeyResolution)
	return &JobExecutionMessage{
		JobID:          JobIDClearExpired,
		ScriptPath:     clearExpiredScriptPath,
		Parameters:     map[string]any{"scheduled_at": bucket.Format(time.RFC3339)},
		IdempotencyKey: fmt.Sprintf("%s:%d", JobIDClearExpired, bucket.Unix()),
		DedupPolicy:    clearExpiredDedupPolicy,
	}
}

// ScheduleClearExpired enqueues a sweep.
func (s *Service) ScheduleClearExpired(ctx context.Context, enqueuer JobEnqueuer) error {
	if enqueuer == nil {
		return s.mapError(NewConfigurationError("core: job enqueuer is required"))
	}
	if err := enqueuer.Enqueue(ctx, NewClearExpiredJob(s.currentTime())); err != nil {
		return s.mapError(err)
	}
	return nil
}

// HandleJob runs a delivered sweep job, acking on success and requeueing with
// backoff on failure. Configuration errors are dead-lettered since a retry
// cannot fix them.
func (s *Service) HandleJob(ctx context.Context, delivery JobDelivery, attempt int) error {
	if delivery == nil {
		return fmt.Errorf("core: job delivery is nil")
	}
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) != JobIDClearExpired {
		jobID := ""
		if msg != nil {
			jobID = msg.JobID
		}
		nackErr := delivery.Nack(ctx, JobNackOptions{
			DeadLetter: true,
			Reason:     fmt.Sprintf("unsupported job %q", jobID),
		})
		if nackErr != nil {
			return nackErr
		}
		return fmt.Errorf("core: unsupported job %q", jobID)
	}

	_, err := s.ClearExpired(ctx)
	if err == nil {
		return delivery.Ack(ctx)
	}
	opts := JobNackOptions{Reason: err.Error()}
	switch {
	case IsConfigurationError(err), attempt >= defaultSweepMaxAttempts:
		opts.DeadLetter = true
	default:
		opts.Requeue = true
		opts.Delay = ExponentialBackoffScheduler{}.NextDelay(attempt)
	}
	if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
		return nackErr
	}
	return err
}
