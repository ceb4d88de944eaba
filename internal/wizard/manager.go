package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadpilot/leadpilot/internal/survey"
)

// Notifier is the automation webhook boundary. Implementations must be
// non-blocking and must never fail the submission.
type Notifier interface {
	Notify(ctx context.Context, sv *survey.Survey)
}

// Manager holds live wizard sessions and owns submission. All session
// mutations happen under one lock, which is what makes the
// has-submitted guard atomic with survey creation: no interleaving can
// create two surveys from the same session.
type Manager struct {
	engine   *Engine
	store    survey.Store
	notifier Notifier
	maxRows  int
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(engine *Engine, store survey.Store, notifier Notifier, maxRows int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		engine:   engine,
		store:    store,
		notifier: notifier,
		maxRows:  maxRows,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Engine exposes the step engine for read-only uses (current step, config).
func (m *Manager) Engine() *Engine { return m.engine }

// Create starts a new wizard session.
func (m *Manager) Create() *Session {
	s := m.engine.Begin(uuid.New().String())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session, or ErrSessionNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Advance applies an answer to the session's current step.
func (m *Manager) Advance(id, value string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := m.engine.Advance(s, value); err != nil {
		return nil, err
	}
	return s, nil
}

// Retreat moves the session back one step.
func (m *Manager) Retreat(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := m.engine.Retreat(s); err != nil {
		return nil, err
	}
	return s, nil
}

// AttachContacts stores an uploaded contact list on the session,
// replacing any previous upload.
func (m *Manager) AttachContacts(id string, columns []string, rows []survey.Row, fileName string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := m.engine.AttachContacts(s, columns, rows, fileName); err != nil {
		return nil, err
	}
	return s, nil
}

// Submit creates the survey record for a finished session and fires the
// automation webhook. Submitting the same session twice returns
// ErrAlreadySubmitted without creating a second record; a failed store
// write leaves the session unsubmitted so the user can retry.
func (m *Manager) Submit(ctx context.Context, id string) (*survey.Survey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Submitted {
		return nil, ErrAlreadySubmitted
	}
	if m.engine.Current(s).Kind != KindSummary {
		return nil, ErrNotAtSummary
	}

	msgLen, _ := strconv.Atoi(s.Fields["message_length"])
	sv := &survey.Survey{
		ID:                uuid.New().String(),
		Channel:           s.Fields["channel"],
		FunnelStage:       s.Fields["funnel_stage"],
		WebsiteURL:        s.Fields["website_url"],
		MessageLength:     msgLen,
		ToneOfVoice:       s.Fields["tone_of_voice"],
		PersuasionTrigger: s.Fields["persuasion_trigger"],
		Template:          s.Fields["template"],
		ContactFileName:   s.ContactFileName,
		ContactColumns:    s.ContactColumns,
		ContactRows:       s.ContactRows,
		CreatedAt:         time.Now().UTC(),
	}
	sv.TruncateRows(m.maxRows)

	if err := m.store.Create(ctx, sv); err != nil {
		return nil, fmt.Errorf("persist survey: %w", err)
	}
	s.Submitted = true
	s.SurveyID = sv.ID

	m.logger.Info("survey submitted", "survey_id", sv.ID, "contacts", len(sv.ContactRows))
	if m.notifier != nil {
		m.notifier.Notify(context.WithoutCancel(ctx), sv)
	}
	return sv, nil
}

// Discard drops a session, e.g. once polling has taken over.
func (m *Manager) Discard(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
