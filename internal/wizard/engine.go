package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/leadpilot/leadpilot/internal/survey"
)

// Session is the client-side state of one wizard conversation. It lives
// only until the survey is submitted and polling takes over.
type Session struct {
	ID        string            `json:"session_id"`
	StepIndex int               `json:"step_index"`
	Fields    map[string]string `json:"fields"`

	ContactFileName string       `json:"contact_file_name,omitempty"`
	ContactColumns  []string     `json:"-"`
	ContactRows     []survey.Row `json:"-"`

	Transcript []Message `json:"transcript"`
	Submitted  bool      `json:"submitted"`
	SurveyID   string    `json:"survey_id,omitempty"`
}

// Engine validates answers and moves sessions through the configured steps.
type Engine struct {
	steps    []Step
	validate *validator.Validate
}

func NewEngine(steps []Step) *Engine {
	return &Engine{steps: steps, validate: validator.New()}
}

// Steps returns the static step configuration.
func (e *Engine) Steps() []Step { return e.steps }

// Current returns the step the session is waiting on.
func (e *Engine) Current(s *Session) Step { return e.steps[s.StepIndex] }

// Begin creates a session positioned at the first step, with the opening
// question already in the transcript.
func (e *Engine) Begin(id string) *Session {
	s := &Session{ID: id, Fields: make(map[string]string)}
	e.appendSystem(s, e.steps[0].Question)
	return s
}

// Advance validates the answer for the current step and, on success,
// merges it into the session, records the exchange in the transcript and
// moves to the next step. On a ValidationError the session is unchanged.
func (e *Engine) Advance(s *Session, value string) error {
	step := e.steps[s.StepIndex]
	if step.Kind == KindSummary {
		return ErrAtLastStep
	}

	display := value
	switch step.Kind {
	case KindChoice:
		values := make([]string, len(step.Options))
		for i, o := range step.Options {
			values[i] = o.Value
			if o.Value == value {
				display = o.Label
			}
		}
		if err := e.validate.Var(value, "required,oneof="+strings.Join(values, " ")); err != nil {
			return &ValidationError{Field: step.Field, Reason: "must be one of " + strings.Join(values, ", ")}
		}

	case KindText:
		rule := step.Validate
		if rule == "" {
			rule = "required"
		}
		if err := e.validate.Var(value, rule); err != nil {
			reason := "is required"
			if strings.Contains(rule, "url") {
				reason = "must be a valid URL"
			}
			return &ValidationError{Field: step.Field, Reason: reason}
		}

	case KindSlider:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return &ValidationError{Field: step.Field, Reason: "must be a number"}
		}
		if err := e.validate.Var(n, fmt.Sprintf("min=%d,max=%d", step.Min, step.Max)); err != nil {
			return &ValidationError{Field: step.Field, Reason: fmt.Sprintf("must be between %d and %d", step.Min, step.Max)}
		}
		value = strconv.Itoa(n)
		display = value

	case KindFile:
		if len(s.ContactRows) == 0 {
			return &ValidationError{Field: step.Field, Reason: "upload a contact list first"}
		}
		display = fmt.Sprintf("%s (%d contacts)", s.ContactFileName, len(s.ContactRows))
	}

	if step.Kind != KindFile {
		s.Fields[step.Field] = value
	}
	e.appendUser(s, display)

	s.StepIndex++
	next := e.steps[s.StepIndex]
	if next.Kind == KindSummary {
		e.appendSystem(s, e.synopsis(s))
	}
	e.appendSystem(s, next.Question)
	return nil
}

// Retreat steps back to the previous question, dropping the transcript
// entries the last Advance produced. Collected field values are kept, so
// going back and forward does not force re-answering.
func (e *Engine) Retreat(s *Session) error {
	if s.StepIndex == 0 {
		return ErrAtFirstStep
	}

	// Drop trailing system entries (question, and the synopsis when
	// retreating from the summary) plus the user answer before them.
	i := len(s.Transcript) - 1
	for i >= 0 && s.Transcript[i].Author == AuthorSystem {
		i--
	}
	if i >= 0 {
		s.Transcript = s.Transcript[:i]
	}
	s.StepIndex--
	return nil
}

// AttachContacts stores the parsed contact list on the session. A new
// upload replaces any previous one.
func (e *Engine) AttachContacts(s *Session, columns []string, rows []survey.Row, fileName string) error {
	if e.steps[s.StepIndex].Kind != KindFile {
		return &ValidationError{Field: e.steps[s.StepIndex].Field, Reason: "current step does not accept a file"}
	}
	s.ContactColumns = columns
	s.ContactRows = rows
	s.ContactFileName = fileName
	return nil
}

// synopsis renders the collected fields, in step order, for the summary step.
func (e *Engine) synopsis(s *Session) string {
	var sb strings.Builder
	sb.WriteString("Campaign summary:")
	for _, step := range e.steps {
		switch step.Kind {
		case KindSummary:
			continue
		case KindFile:
			if s.ContactFileName != "" {
				fmt.Fprintf(&sb, "\n- %s: %s (%d contacts)", humanize(step.Field), s.ContactFileName, len(s.ContactRows))
			}
			continue
		}
		v, ok := s.Fields[step.Field]
		if !ok {
			continue
		}
		for _, o := range step.Options {
			if o.Value == v {
				v = o.Label
				break
			}
		}
		fmt.Fprintf(&sb, "\n- %s: %s", humanize(step.Field), v)
	}
	return sb.String()
}

func (e *Engine) appendUser(s *Session, content string) {
	s.Transcript = append(s.Transcript, Message{ID: uuid.New().String(), Author: AuthorUser, Content: content})
}

func (e *Engine) appendSystem(s *Session, content string) {
	s.Transcript = append(s.Transcript, Message{ID: uuid.New().String(), Author: AuthorSystem, Content: content})
}

// humanize turns a field name like "funnel_stage" into "Funnel stage".
func humanize(field string) string {
	out := strings.ReplaceAll(field, "_", " ")
	if out == "" {
		return out
	}
	return strings.ToUpper(out[:1]) + out[1:]
}
