package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leadpilot/leadpilot/internal/survey"
)

func testSurvey() *survey.Survey {
	return &survey.Survey{
		ID:                "s-1",
		Channel:           "email",
		WebsiteURL:        "https://acme.example.com",
		MessageLength:     120,
		ToneOfVoice:       "friendly",
		PersuasionTrigger: "scarcity",
		ContactFileName:   "contacts.csv",
		ContactRows:       []survey.Row{{"name": "Ada"}},
	}
}

func TestNotify_PostsPayload(t *testing.T) {
	got := make(chan payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		got <- p
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "owner@example.com", nil)
	n.allowPrivate = true
	n.Notify(context.Background(), testSurvey())

	select {
	case p := <-got:
		if p.Channel != "email" || p.UserEmail != "owner@example.com" || p.ContactFileName != "contacts.csv" {
			t.Errorf("payload = %+v", p)
		}
		if len(p.ContactRows) != 1 || p.ContactRows[0]["name"] != "Ada" {
			t.Errorf("contact rows = %v", p.ContactRows)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never delivered")
	}
}

func TestNotify_EmptyURLIsNoop(t *testing.T) {
	n := NewNotifier("", "owner@example.com", nil)
	// Must not panic or spawn anything.
	n.Notify(context.Background(), testSurvey())
}

func TestNotify_RejectsBadScheme(t *testing.T) {
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))
	defer srv.Close()

	n := NewNotifier("ftp://automation.example.com/hook", "", nil)
	n.allowPrivate = true
	n.Notify(context.Background(), testSurvey())

	time.Sleep(50 * time.Millisecond)
	if called.Load() {
		t.Error("webhook delivered despite invalid scheme")
	}
}

func TestNotify_CancelledContextStopsDelivery(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewNotifier(srv.URL, "", nil)
	n.allowPrivate = true
	n.Notify(ctx, testSurvey())

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("webhook attempted %d calls with cancelled context", calls.Load())
	}
}

func TestJitter_Bounded(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := jitter(attempt)
		if d < 0 || d >= retryCap {
			t.Errorf("jitter(%d) = %v, want within [0, %v)", attempt, d, retryCap)
		}
	}
}
