// Package provider talks to the external automation endpoints that
// process submitted surveys: a status function and an optional results
// function.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leadpilot/leadpilot/internal/status"
	"github.com/leadpilot/leadpilot/internal/survey"
)

// Client implements status.Provider against HTTP endpoints. The timeout
// here is the collaborator boundary: the polling layer itself imposes
// none and simply absorbs slow or failed calls.
type Client struct {
	statusURL  string
	resultsURL string
	httpc      *http.Client
}

// New builds a Client. resultsURL may be empty, in which case results are
// fetched through the status endpoint with fetch_data set.
func New(statusURL, resultsURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		statusURL:  statusURL,
		resultsURL: resultsURL,
		httpc:      &http.Client{Timeout: timeout},
	}
}

type statusRequest struct {
	SurveyID  string `json:"survey_id"`
	FetchData bool   `json:"fetch_data"`
}

// CheckStatus queries the status endpoint for the survey's progress.
func (c *Client) CheckStatus(ctx context.Context, surveyID string, fetchData bool) (status.ProviderStatus, error) {
	var resp status.ProviderStatus
	err := c.post(ctx, c.statusURL, statusRequest{SurveyID: surveyID, FetchData: fetchData}, &resp)
	if err != nil {
		return status.ProviderStatus{}, fmt.Errorf("check status for survey %s: %w", surveyID, err)
	}
	return resp, nil
}

// FetchResults returns the processed result rows for a completed survey.
func (c *Client) FetchResults(ctx context.Context, surveyID string) ([]survey.Row, error) {
	if c.resultsURL == "" {
		st, err := c.CheckStatus(ctx, surveyID, true)
		if err != nil {
			return nil, err
		}
		return st.Rows, nil
	}

	var resp struct {
		Rows []survey.Row `json:"rows"`
	}
	err := c.post(ctx, c.resultsURL, statusRequest{SurveyID: surveyID}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch results for survey %s: %w", surveyID, err)
	}
	return resp.Rows, nil
}

func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
