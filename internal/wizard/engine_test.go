package wizard

import (
	"errors"
	"strings"
	"testing"

	"github.com/leadpilot/leadpilot/internal/survey"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	steps, err := LoadSteps()
	if err != nil {
		t.Fatalf("LoadSteps: %v", err)
	}
	return NewEngine(steps)
}

// answerAll walks a session to the summary step with valid answers.
func answerAll(t *testing.T, e *Engine, s *Session) {
	t.Helper()
	answers := map[string]string{
		"channel":            "email",
		"funnel_stage":       "decision",
		"website_url":        "https://acme.example.com",
		"message_length":     "120",
		"tone_of_voice":      "friendly",
		"persuasion_trigger": "scarcity",
		"template":           "Hi {{name}}, quick question.",
	}
	for e.Current(s).Kind != KindSummary {
		step := e.Current(s)
		if step.Kind == KindFile {
			if err := e.AttachContacts(s, []string{"name"}, []survey.Row{{"name": "Ada"}}, "contacts.csv"); err != nil {
				t.Fatalf("AttachContacts: %v", err)
			}
			if err := e.Advance(s, ""); err != nil {
				t.Fatalf("Advance(%s): %v", step.Field, err)
			}
			continue
		}
		if err := e.Advance(s, answers[step.Field]); err != nil {
			t.Fatalf("Advance(%s): %v", step.Field, err)
		}
	}
}

func TestBegin_AsksFirstQuestion(t *testing.T) {
	e := testEngine(t)
	s := e.Begin("sess-1")

	if s.StepIndex != 0 {
		t.Errorf("StepIndex = %d, want 0", s.StepIndex)
	}
	if len(s.Transcript) != 1 {
		t.Fatalf("transcript has %d entries, want 1", len(s.Transcript))
	}
	if s.Transcript[0].Author != AuthorSystem || s.Transcript[0].Content != e.Steps()[0].Question {
		t.Errorf("opening message = %+v", s.Transcript[0])
	}
}

func TestAdvance_Validation(t *testing.T) {
	cases := []struct {
		name    string
		toField string
		value   string
		wantOK  bool
	}{
		{"valid choice", "channel", "email", true},
		{"choice outside options", "channel", "carrier_pigeon", false},
		{"empty choice", "channel", "", false},
		{"valid url", "website_url", "https://acme.example.com", true},
		{"not a url", "website_url", "acme dot com", false},
		{"slider in range", "message_length", "120", true},
		{"slider below min", "message_length", "5", false},
		{"slider not numeric", "message_length", "many", false},
		{"free text", "template", "Hi {{name}}", true},
		{"empty text", "template", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := testEngine(t)
			s := e.Begin("sess-1")
			for e.Current(s).Field != tc.toField {
				answerAllUntil(t, e, s, tc.toField)
			}

			before := s.StepIndex
			err := e.Advance(s, tc.value)
			if tc.wantOK {
				if err != nil {
					t.Fatalf("Advance: %v", err)
				}
				if s.StepIndex != before+1 {
					t.Errorf("StepIndex = %d, want %d", s.StepIndex, before+1)
				}
				return
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if ve.Field != tc.toField {
				t.Errorf("ValidationError.Field = %q, want %q", ve.Field, tc.toField)
			}
			if s.StepIndex != before {
				t.Errorf("failed answer moved the session: StepIndex = %d, want %d", s.StepIndex, before)
			}
		})
	}
}

// answerAllUntil advances one step with a valid canned answer, stopping
// before toField.
func answerAllUntil(t *testing.T, e *Engine, s *Session, toField string) {
	t.Helper()
	step := e.Current(s)
	if step.Field == toField {
		return
	}
	switch step.Field {
	case "channel":
		mustAdvance(t, e, s, "email")
	case "funnel_stage":
		mustAdvance(t, e, s, "awareness")
	case "website_url":
		mustAdvance(t, e, s, "https://acme.example.com")
	case "message_length":
		mustAdvance(t, e, s, "60")
	case "tone_of_voice":
		mustAdvance(t, e, s, "direct")
	case "persuasion_trigger":
		mustAdvance(t, e, s, "authority")
	case "template":
		mustAdvance(t, e, s, "Hello {{name}}")
	default:
		t.Fatalf("no canned answer for step %q", step.Field)
	}
}

func mustAdvance(t *testing.T, e *Engine, s *Session, value string) {
	t.Helper()
	if err := e.Advance(s, value); err != nil {
		t.Fatalf("Advance(%q): %v", value, err)
	}
}

func TestAdvance_FileStepRequiresUpload(t *testing.T) {
	e := testEngine(t)
	s := e.Begin("sess-1")
	for e.Current(s).Kind != KindFile {
		answerAllUntil(t, e, s, "contacts")
	}

	var ve *ValidationError
	if err := e.Advance(s, ""); !errors.As(err, &ve) {
		t.Fatalf("Advance without upload = %v, want *ValidationError", err)
	}

	if err := e.AttachContacts(s, []string{"name"}, []survey.Row{{"name": "Ada"}}, "contacts.csv"); err != nil {
		t.Fatalf("AttachContacts: %v", err)
	}
	if err := e.Advance(s, ""); err != nil {
		t.Fatalf("Advance after upload: %v", err)
	}
	last := s.Transcript[len(s.Transcript)-3]
	if last.Author != AuthorUser || !strings.Contains(last.Content, "contacts.csv (1 contacts)") {
		t.Errorf("file answer entry = %+v", last)
	}
}

func TestAttachContacts_ReplacesPreviousUpload(t *testing.T) {
	e := testEngine(t)
	s := e.Begin("sess-1")
	for e.Current(s).Kind != KindFile {
		answerAllUntil(t, e, s, "contacts")
	}

	if err := e.AttachContacts(s, []string{"name"}, []survey.Row{{"name": "Ada"}}, "first.csv"); err != nil {
		t.Fatalf("first AttachContacts: %v", err)
	}
	rows := []survey.Row{{"email": "g@example.com"}, {"email": "h@example.com"}}
	if err := e.AttachContacts(s, []string{"email"}, rows, "second.csv"); err != nil {
		t.Fatalf("second AttachContacts: %v", err)
	}

	if s.ContactFileName != "second.csv" || len(s.ContactRows) != 2 {
		t.Errorf("session kept %q with %d rows, want second.csv with 2", s.ContactFileName, len(s.ContactRows))
	}
	if len(s.ContactColumns) != 1 || s.ContactColumns[0] != "email" {
		t.Errorf("columns = %v", s.ContactColumns)
	}
}

func TestAttachContacts_OnlyAtFileStep(t *testing.T) {
	e := testEngine(t)
	s := e.Begin("sess-1")

	var ve *ValidationError
	err := e.AttachContacts(s, []string{"name"}, []survey.Row{{"name": "Ada"}}, "contacts.csv")
	if !errors.As(err, &ve) {
		t.Fatalf("AttachContacts at first step = %v, want *ValidationError", err)
	}
}

func TestAdvance_SynopsisBeforeSummary(t *testing.T) {
	e := testEngine(t)
	s := e.Begin("sess-1")
	answerAll(t, e, s)

	// Second-to-last transcript entry is the synopsis.
	syn := s.Transcript[len(s.Transcript)-2]
	if syn.Author != AuthorSystem {
		t.Fatalf("synopsis author = %q", syn.Author)
	}
	for _, want := range []string{
		"Campaign summary:",
		"- Channel: Email",
		"- Funnel stage: Decision",
		"- Website url: https://acme.example.com",
		"- Message length: 120",
		"- Contacts: contacts.csv (1 contacts)",
	} {
		if !strings.Contains(syn.Content, want) {
			t.Errorf("synopsis missing %q:\n%s", want, syn.Content)
		}
	}
}

func TestRetreat_RestoresQuestionAndKeepsValues(t *testing.T) {
	e := testEngine(t)
	s := e.Begin("sess-1")
	mustAdvance(t, e, s, "email")
	mustAdvance(t, e, s, "decision")

	if err := e.Retreat(s); err != nil {
		t.Fatalf("Retreat: %v", err)
	}

	if got := e.Current(s).Field; got != "funnel_stage" {
		t.Errorf("current step = %q, want funnel_stage", got)
	}
	if s.Fields["funnel_stage"] != "decision" {
		t.Errorf("retreat dropped the collected value: %v", s.Fields)
	}
	last := s.Transcript[len(s.Transcript)-1]
	if last.Author != AuthorSystem || last.Content != e.Current(s).Question {
		t.Errorf("transcript tail = %+v, want the funnel_stage question", last)
	}
}

func TestRetreat_AtFirstStep(t *testing.T) {
	e := testEngine(t)
	s := e.Begin("sess-1")
	if err := e.Retreat(s); !errors.Is(err, ErrAtFirstStep) {
		t.Errorf("Retreat = %v, want ErrAtFirstStep", err)
	}
}

func TestRetreat_FromSummaryDropsSynopsis(t *testing.T) {
	e := testEngine(t)
	s := e.Begin("sess-1")
	answerAll(t, e, s)

	if err := e.Retreat(s); err != nil {
		t.Fatalf("Retreat: %v", err)
	}
	if e.Current(s).Kind != KindFile {
		t.Fatalf("current step kind = %q, want file", e.Current(s).Kind)
	}
	for _, msg := range s.Transcript {
		if strings.HasPrefix(msg.Content, "Campaign summary:") {
			t.Error("synopsis still in transcript after retreating from summary")
		}
	}
}

func TestAdvance_AtSummaryStep(t *testing.T) {
	e := testEngine(t)
	s := e.Begin("sess-1")
	answerAll(t, e, s)

	if err := e.Advance(s, "anything"); !errors.Is(err, ErrAtLastStep) {
		t.Errorf("Advance at summary = %v, want ErrAtLastStep", err)
	}
}
