package fixer

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is how often the fixup cycle runs.
const DefaultInterval = 250 * time.Millisecond

// Scheduler runs a task on a fixed interval until stopped.
type Scheduler struct {
	run      func(ctx context.Context)
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	// Channel for triggering an immediate run
	triggerCh chan struct{}
}

// NewScheduler creates a scheduler for run. A non-positive interval
// means DefaultInterval.
func NewScheduler(parent context.Context, interval time.Duration, run func(ctx context.Context)) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		run:       run,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start begins the loop. The task runs once straight away.
func (s *Scheduler) Start() {
	s.once.Do(func() {
		s.wg.Add(1)
		go s.loop()
	})
}

// Stop cancels the loop and waits for it to exit. No run starts after
// Stop returns. Calling Stop more than once is fine.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Trigger asks for a run as soon as possible.
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
		// Already a run pending
	}
}

// Done is closed once the scheduler is stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	if s.ctx.Err() != nil {
		return
	}
	s.run(s.ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		case <-s.triggerCh:
		}
		if s.ctx.Err() != nil {
			return
		}
		s.run(s.ctx)
	}
}
