package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingEnqueuer struct {
	messages []*JobExecutionMessage
	err      error
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, msg)
	return nil
}

type recordingDelivery struct {
	msg   *JobExecutionMessage
	acked bool
	nacks []JobNackOptions
}

func (d *recordingDelivery) Message() *JobExecutionMessage { return d.msg }

func (d *recordingDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *recordingDelivery) Nack(_ context.Context, opts JobNackOptions) error {
	d.nacks = append(d.nacks, opts)
	return nil
}

func TestExponentialBackoffScheduler(t *testing.T) {
	scheduler := ExponentialBackoffScheduler{Initial: time.Second, Max: 5 * time.Second}
	cases := map[int]time.Duration{
		0: time.Second,
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		4: 5 * time.Second,
		9: 5 * time.Second,
	}
	for attempt, want := range cases {
		if got := scheduler.NextDelay(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}

func TestNewClearExpiredJob_IdempotencyKeyPerMinute(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	first := NewClearExpiredJob(at)
	second := NewClearExpiredJob(at.Add(40 * time.Second))
	third := NewClearExpiredJob(at.Add(2 * time.Minute))

	if first.JobID != JobIDClearExpired || first.DedupPolicy != "drop" {
		t.Fatalf("unexpected job message %#v", first)
	}
	if first.IdempotencyKey != second.IdempotencyKey {
		t.Fatalf("expected shared key within a minute: %q vs %q", first.IdempotencyKey, second.IdempotencyKey)
	}
	if first.IdempotencyKey == third.IdempotencyKey {
		t.Fatalf("expected distinct key for a later minute")
	}
}

func TestScheduleClearExpired(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	enqueuer := &recordingEnqueuer{}
	if err := svc.ScheduleClearExpired(context.Background(), enqueuer); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(enqueuer.messages) != 1 || enqueuer.messages[0].JobID != JobIDClearExpired {
		t.Fatalf("unexpected enqueued messages %#v", enqueuer.messages)
	}
	if err := svc.ScheduleClearExpired(context.Background(), nil); !IsConfigurationError(err) {
		t.Fatalf("expected configuration error for nil enqueuer, got %v", err)
	}
	failing := &recordingEnqueuer{err: errors.New("queue down")}
	if err := svc.ScheduleClearExpired(context.Background(), failing); err == nil {
		t.Fatalf("expected enqueue failure to surface")
	}
}

func TestHandleJob_AcksSuccessfulSweep(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	delivery := &recordingDelivery{msg: NewClearExpiredJob(time.Now())}
	if err := svc.HandleJob(context.Background(), delivery, 1); err != nil {
		t.Fatalf("handle job: %v", err)
	}
	if !delivery.acked || len(delivery.nacks) != 0 {
		t.Fatalf("expected ack, got %#v", delivery)
	}
}

func TestHandleJob_DeadLettersUnsupportedJobs(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	delivery := &recordingDelivery{msg: &JobExecutionMessage{JobID: "other.job"}}
	if err := svc.HandleJob(context.Background(), delivery, 1); err == nil {
		t.Fatalf("expected unsupported job error")
	}
	if len(delivery.nacks) != 1 || !delivery.nacks[0].DeadLetter {
		t.Fatalf("expected dead letter nack, got %#v", delivery.nacks)
	}
}

func TestHandleJob_DeadLettersConfigurationErrors(t *testing.T) {
	svc, _ := newTestService(t, Config{RefreshTokenExpireSeconds: "A"})
	delivery := &recordingDelivery{msg: NewClearExpiredJob(time.Now())}
	err := svc.HandleJob(context.Background(), delivery, 1)
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(delivery.nacks) != 1 || !delivery.nacks[0].DeadLetter || delivery.nacks[0].Requeue {
		t.Fatalf("expected dead letter nack, got %#v", delivery.nacks)
	}
}

func TestHandleJob_RequeuesTransientFailures(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	delivery := &recordingDelivery{msg: NewClearExpiredJob(time.Now())}
	if err := svc.HandleJob(ctx, delivery, 2); err == nil {
		t.Fatalf("expected sweep failure")
	}
	if len(delivery.nacks) != 1 || !delivery.nacks[0].Requeue || delivery.nacks[0].Delay != 2*time.Second {
		t.Fatalf("expected requeue with backoff, got %#v", delivery.nacks)
	}

	final := &recordingDelivery{msg: NewClearExpiredJob(time.Now())}
	_ = svc.HandleJob(ctx, final, defaultSweepMaxAttempts)
	if len(final.nacks) != 1 || !final.nacks[0].DeadLetter {
		t.Fatalf("expected dead letter after max attempts, got %#v", final.nacks)
	}
}
