// Package webhook notifies the external automation system that a
// campaign was submitted. Delivery is fire-and-forget: a failed
// notification is logged as a warning and never blocks the wizard.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/leadpilot/leadpilot/internal/survey"
)

const (
	retryAttempts = 3
	retryBase     = time.Second
	retryCap      = 30 * time.Second
)

// payload is the JSON body posted to the automation endpoint.
type payload struct {
	Channel           string       `json:"channel"`
	WebsiteURL        string       `json:"website_url"`
	ToneOfVoice       string       `json:"tone_of_voice"`
	MessageLength     int          `json:"message_length"`
	PersuasionTrigger string       `json:"persuasion_trigger"`
	UserEmail         string       `json:"user_email"`
	ContactFileName   string       `json:"contact_file_name"`
	ContactRows       []survey.Row `json:"contact_rows"`
}

// Notifier posts submitted campaigns to a configured automation URL.
type Notifier struct {
	url    string
	email  string
	client *http.Client
	logger *slog.Logger

	allowPrivate bool // tests post to 127.0.0.1
}

// NewNotifier builds a Notifier. An empty url disables notification.
func NewNotifier(url, email string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		url:    url,
		email:  email,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Notify dispatches the submission asynchronously. ctx should be
// context.WithoutCancel of the request context so delivery survives the
// submitting request but stops on server shutdown.
func (n *Notifier) Notify(ctx context.Context, sv *survey.Survey) {
	if n.url == "" {
		return
	}
	if err := n.validateURL(n.url); err != nil {
		n.logger.Warn("webhook: rejected automation URL", "url", n.url, "error", err)
		return
	}

	body, err := json.Marshal(payload{
		Channel:           sv.Channel,
		WebsiteURL:        sv.WebsiteURL,
		ToneOfVoice:       sv.ToneOfVoice,
		MessageLength:     sv.MessageLength,
		PersuasionTrigger: sv.PersuasionTrigger,
		UserEmail:         n.email,
		ContactFileName:   sv.ContactFileName,
		ContactRows:       sv.ContactRows,
	})
	if err != nil {
		n.logger.Warn("webhook: marshal payload", "survey_id", sv.ID, "error", err)
		return
	}

	go n.send(ctx, sv.ID, body)
}

// validateURL blocks non-HTTP schemes and private/internal IP ranges.
func (n *Notifier) validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if n.allowPrivate {
		return nil
	}

	host := u.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("DNS lookup failed: %w", err)
	}

	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("private/internal IP blocked: %s", ipStr)
		}
	}

	return nil
}

func (n *Notifier) send(ctx context.Context, surveyID string, body []byte) {
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		err := n.post(ctx, body)
		if err == nil {
			n.logger.Info("webhook delivered", "survey_id", surveyID)
			return
		}
		n.logger.Warn("webhook attempt failed", "survey_id", surveyID, "attempt", attempt, "error", err)
		if attempt < retryAttempts {
			time.Sleep(jitter(attempt))
		}
	}
	// Non-fatal: the campaign proceeds, the automation side just missed it.
	n.logger.Warn("webhook: all retries exhausted", "survey_id", surveyID, "url", n.url)
}

// jitter returns a random duration between 0 and min(retryCap, retryBase * 2^attempt).
// Full jitter prevents synchronized retries when several webhooks fail at once.
func jitter(attempt int) time.Duration {
	exp := retryBase * (1 << attempt)
	if exp > retryCap {
		exp = retryCap
	}
	return time.Duration(rand.Int63n(int64(exp)))
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return nil
}
