package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/opencode-ai/sessionwatch/internal/event"
	"github.com/opencode-ai/sessionwatch/internal/logging"
	"github.com/opencode-ai/sessionwatch/internal/session"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = time.Second

// failureMaxInterval caps the backoff applied after consecutive failed ticks.
const failureMaxInterval = 30 * time.Second

// ErrAlreadyStarted is returned by Start on a running monitor.
var ErrAlreadyStarted = errors.New("monitor already started")

// Config configures a Monitor.
type Config struct {
	// Store is the session store to poll. Required.
	Store session.Store
	// Key is the session to watch. Required.
	Key types.SessionKey
	// Detector classifies new event batches. Required.
	Detector Detector
	// Queue receives messages the detector wants injected. Optional; without
	// a queue, detector messages are dropped with a warning.
	Queue *Queue
	// Bus receives monitor lifecycle and alert events. Optional.
	Bus *event.Bus
	// Interval is the poll interval. Defaults to DefaultInterval.
	Interval time.Duration
	// Nudge, when set, triggers an immediate poll without waiting out the
	// interval. Best-effort; the interval timer stays authoritative.
	Nudge <-chan struct{}
}

// Monitor polls one session for event growth and feeds new batches to a
// detector. It never mutates the session.
//
// An absent session (including one deleted mid-monitoring) is a transient
// failure: the tick is logged and retried with backoff. The cursor is kept,
// so if a session reappears under the same key only events beyond the old
// cursor are processed. Multiple monitors may watch the same session; each
// owns an independent cursor.
type Monitor struct {
	cfg Config
	log zerolog.Logger

	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	cursorMu sync.Mutex
	cursor   int
}

// New creates a Monitor for the given configuration.
func New(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Monitor{
		cfg:    cfg,
		log:    logging.With().Str("component", "monitor").Str("session", cfg.Key.String()).Logger(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins polling in a background goroutine and returns immediately.
// Returns ErrAlreadyStarted if the monitor is running or was already stopped.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	select {
	case <-m.stopCh:
		// Monitors are single-use; a stopped monitor cannot be restarted.
		return ErrAlreadyStarted
	default:
	}
	m.started = true

	if m.cfg.Bus != nil {
		m.cfg.Bus.PublishSync(event.Event{Type: event.MonitorStarted, Data: event.MonitorData{Key: m.cfg.Key}})
	}
	go m.run()
	return nil
}

// Stop requests cancellation and waits for the poll loop to exit. An
// in-flight tick finishes cooperatively, including a nested analysis turn.
// Safe to call multiple times and without a prior Start.
func (m *Monitor) Stop() {
	// The whole shutdown runs under the once so monitor.stopped is published
	// exactly once; concurrent callers block until it completes.
	m.stopOnce.Do(func() {
		close(m.stopCh)

		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if !started {
			return
		}

		<-m.doneCh
		if m.cfg.Bus != nil {
			m.cfg.Bus.PublishSync(event.Event{Type: event.MonitorStopped, Data: event.MonitorData{Key: m.cfg.Key}})
		}
	})
}

// Cursor returns the number of events processed so far.
func (m *Monitor) Cursor() int {
	m.cursorMu.Lock()
	defer m.cursorMu.Unlock()
	return m.cursor
}

// newFailureBackoff builds the backoff applied between failed ticks, so a
// flapping store is retried at a widening cadence instead of a tight loop.
func (m *Monitor) newFailureBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.Interval
	b.MaxInterval = failureMaxInterval
	b.MaxElapsedTime = 0 // retry forever; a failed poll is never terminal
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return b
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failures := m.newFailureBackoff()
	delay := time.Duration(0) // first poll happens immediately

	for {
		timer := time.NewTimer(delay)
		select {
		case <-m.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		case <-m.cfg.Nudge:
			timer.Stop()
		}

		if err := m.pollOnce(ctx); err != nil {
			delay = failures.NextBackOff()
			continue
		}
		failures.Reset()
		delay = m.cfg.Interval
	}
}

// pollOnce performs a single tick: fetch, diff, classify, advance.
func (m *Monitor) pollOnce(ctx context.Context) error {
	sess, err := m.cfg.Store.Get(ctx, m.cfg.Key)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			m.log.Debug().Msg("session absent this tick")
		} else {
			m.log.Warn().Err(err).Msg("session fetch failed")
		}
		return err
	}

	m.cursorMu.Lock()
	cursor := m.cursor
	m.cursorMu.Unlock()

	if len(sess.Events) <= cursor {
		return nil
	}

	batch := sess.Events[cursor:]
	outcome, err := m.cfg.Detector.Classify(ctx, batch, sess)
	if err != nil {
		// The cursor stays put; the batch is offered again next tick.
		m.log.Error().Err(err).Int("batch", len(batch)).Msg("classification failed")
		return err
	}

	// Advance by the full batch atomically relative to the next poll.
	m.cursorMu.Lock()
	m.cursor = len(sess.Events)
	m.cursorMu.Unlock()

	m.report(outcome)
	return nil
}

func (m *Monitor) report(out Outcome) {
	if out.Matched {
		m.log.Info().
			Str("detector", m.cfg.Detector.Name()).
			Str("trigger", out.Trigger).
			Int("eventIndex", out.EventIndex).
			Msg("detection")

		if m.cfg.Bus != nil {
			m.cfg.Bus.PublishSync(event.Event{
				Type: event.MonitorAlert,
				Data: event.MonitorAlertData{
					Key:        m.cfg.Key,
					Detector:   m.cfg.Detector.Name(),
					EventIndex: out.EventIndex,
					Message:    out.Message,
				},
			})
		}
	}

	if out.Message == "" {
		return
	}
	if m.cfg.Queue == nil {
		m.log.Warn().Msg("detector produced a message but no queue is configured")
		return
	}

	m.cfg.Queue.Push(out.Message)
	if m.cfg.Bus != nil {
		m.cfg.Bus.PublishSync(event.Event{
			Type: event.InjectionQueued,
			Data: event.InjectionData{Key: m.cfg.Key, Message: out.Message},
		})
	}
}
