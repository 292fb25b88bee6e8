package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// stopSoftDeadline bounds how long Stop waits for an in-flight
// reconcile to finish before giving up and logging a warning.
const stopSoftDeadline = 5 * time.Second

// Scheduler runs a Reconciler on both a periodic tick and an
// on-demand manual trigger, the way the daemon couples a cron-style
// interval with operator-initiated syncs.
type Scheduler struct {
	reconciler *Reconciler
	cron       *cron.Cron
	trigger    chan struct{}
	done       chan struct{}
	log        *slog.Logger
}

// NewScheduler builds a Scheduler that reconciles every interval and
// also whenever TriggerNow is called.
func NewScheduler(reconciler *Reconciler, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		cron:       cron.New(),
		trigger:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Start schedules the periodic tick and begins serving both tick and
// manual-trigger reconciles until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	tickCh := make(chan struct{}, 1)
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval.String()), func() {
		select {
		case tickCh <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()

	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-tickCh:
				s.runReconcile(ctx)
			case <-s.trigger:
				s.runReconcile(ctx)
			}
		}
	}()
	return nil
}

func (s *Scheduler) runReconcile(ctx context.Context) {
	result, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.log.Error("scheduled git reconcile failed", "error", redactErr(err))
		return
	}
	if result.Skipped {
		s.log.Debug("git reconcile skipped, already in progress")
		return
	}
	if result.ConfigReloaded {
		s.log.Info("git reconcile applied remote changes", "files_changed", result.FilesChanged)
	}
}

// TriggerNow requests an out-of-band reconcile at the next
// opportunity; it never blocks the caller.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop halts the cron schedule and waits up to stopSoftDeadline for
// the run loop to exit before giving up with a warning. The run loop
// exits only once the ctx passed to Start is canceled; Stop does not
// end it by itself.
func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	select {
	case <-s.done:
	case <-time.After(stopSoftDeadline):
		s.log.Warn("git scheduler did not stop within soft deadline")
	}
}
