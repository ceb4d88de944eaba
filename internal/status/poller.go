package status

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is one progress update delivered to poll callbacks and subscribers.
// Done marks the final event for a survey: no further ticks will follow.
type Event struct {
	SurveyID string           `json:"survey_id"`
	Status   ProcessingStatus `json:"status"`
	Done     bool             `json:"done"`
}

// UpdateFunc receives progress events from a running poll.
type UpdateFunc func(Event)

// Monitor runs one polling loop per survey until the survey completes or
// the poll is cancelled. Start and Stop are idempotent; completion side
// effects are guarded per survey lifetime, so even racing polls produce
// exactly one Done callback.
type Monitor struct {
	tracker  *Tracker
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	polls    map[string]*poll
	signaled map[string]bool
	subs     map[string][]chan Event
}

type poll struct {
	cancel        context.CancelFunc
	lastProcessed int
}

func NewMonitor(tracker *Tracker, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		tracker:  tracker,
		interval: interval,
		logger:   logger,
		polls:    make(map[string]*poll),
		signaled: make(map[string]bool),
		subs:     make(map[string][]chan Event),
	}
}

// Start begins polling the survey's status. Calling Start for a survey
// that is already being polled is a no-op.
func (m *Monitor) Start(surveyID string, onUpdate UpdateFunc) {
	m.mu.Lock()
	if _, running := m.polls[surveyID]; running {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &poll{cancel: cancel}
	m.polls[surveyID] = p
	m.mu.Unlock()

	m.logger.Info("polling started", "survey_id", surveyID)
	go m.run(ctx, surveyID, p, onUpdate)
}

// Stop cancels the poll for the survey. Stopping a survey that is not
// being polled is a no-op. An in-flight status check for a stopped poll
// is discarded when it resolves; it cannot resurrect the loop.
func (m *Monitor) Stop(surveyID string) {
	m.mu.Lock()
	p := m.polls[surveyID]
	delete(m.polls, surveyID)
	m.mu.Unlock()

	if p != nil {
		p.cancel()
		m.logger.Info("polling stopped", "survey_id", surveyID)
	}
}

// StopAll cancels every running poll. Used on shutdown.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	polls := m.polls
	m.polls = make(map[string]*poll)
	m.mu.Unlock()

	for id, p := range polls {
		p.cancel()
		m.logger.Info("polling stopped", "survey_id", id)
	}
}

// Watching reports whether the survey is currently being polled.
func (m *Monitor) Watching(surveyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.polls[surveyID]
	return ok
}

// CompletionSignaled reports whether the survey's completion side effect
// has already fired.
func (m *Monitor) CompletionSignaled(surveyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signaled[surveyID]
}

// MarkCompletionSignaled records that the completion side effect for the
// survey has fired and reports whether this call was the first to do so.
// Resuming a session for an already-complete survey pre-marks the flag so
// a later poll cannot signal completion a second time.
func (m *Monitor) MarkCompletionSignaled(surveyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signaled[surveyID] {
		return false
	}
	m.signaled[surveyID] = true
	return true
}

// Subscribe creates a buffered event channel for a survey.
func (m *Monitor) Subscribe(surveyID string) chan Event {
	ch := make(chan Event, 16)
	m.mu.Lock()
	m.subs[surveyID] = append(m.subs[surveyID], ch)
	m.mu.Unlock()
	return ch
}

// Unsubscribe removes an event channel from the map.
func (m *Monitor) Unsubscribe(surveyID string, ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chans := m.subs[surveyID]
	for i, c := range chans {
		if c == ch {
			m.subs[surveyID] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(m.subs[surveyID]) == 0 {
		delete(m.subs, surveyID)
	}
}

// run is the poll loop. The status check happens synchronously inside the
// loop, so ticks for one survey never overlap; a slow provider call simply
// delays the next tick.
func (m *Monitor) run(ctx context.Context, surveyID string, p *poll, onUpdate UpdateFunc) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := m.tracker.Check(ctx, surveyID, false, false)
			if ctx.Err() != nil {
				// Stopped while the check was in flight; the stale
				// result must not trigger callbacks.
				return
			}

			// Progress never moves backwards within one poll.
			if st.Processed < p.lastProcessed {
				st.Processed = p.lastProcessed
			} else {
				p.lastProcessed = st.Processed
			}

			ev := Event{SurveyID: surveyID, Status: st, Done: st.Complete}

			if st.Complete {
				// Stop before the final delivery so observers can rely on
				// "no further ticks after Done".
				m.Stop(surveyID)
				if m.MarkCompletionSignaled(surveyID) && onUpdate != nil {
					onUpdate(ev)
				}
				m.publishAndClose(surveyID, ev)
				return
			}

			if onUpdate != nil {
				onUpdate(ev)
			}
			m.publish(surveyID, ev)
		}
	}
}

// publish sends an event to all subscribers of a survey without blocking.
func (m *Monitor) publish(surveyID string, ev Event) {
	m.mu.Lock()
	chans := m.subs[surveyID]
	m.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
		}
	}
}

// publishAndClose sends the final event and closes all channels for the survey.
func (m *Monitor) publishAndClose(surveyID string, ev Event) {
	m.mu.Lock()
	chans := m.subs[surveyID]
	delete(m.subs, surveyID)
	m.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
		}
		close(ch)
	}
}
