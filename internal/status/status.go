// Package status tracks the processing progress of submitted surveys:
// a TTL cache over the external status provider, plus a polling monitor
// that drives progress updates until completion.
package status

import (
	"context"

	"github.com/leadpilot/leadpilot/internal/survey"
)

// ProcessingStatus is the normalized view of a survey's progress.
// Rows is only populated when the check explicitly requested result data.
type ProcessingStatus struct {
	Total     int          `json:"total_count"`
	Processed int          `json:"processed_count"`
	Complete  bool         `json:"is_complete"`
	Rows      []survey.Row `json:"result_rows,omitempty"`
}

// ProviderStatus is the raw response of the external status provider.
type ProviderStatus struct {
	Count    int          `json:"count"`
	Total    int          `json:"total"`
	Complete bool         `json:"isComplete"`
	Rows     []survey.Row `json:"processedData,omitempty"`
}

// Provider queries the external automation system for a survey's progress.
type Provider interface {
	CheckStatus(ctx context.Context, surveyID string, fetchData bool) (ProviderStatus, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, surveyID string, fetchData bool) (ProviderStatus, error)

func (f ProviderFunc) CheckStatus(ctx context.Context, surveyID string, fetchData bool) (ProviderStatus, error) {
	return f(ctx, surveyID, fetchData)
}

// normalize converts a provider response into a ProcessingStatus.
// Negative counts are clamped to zero and completion is derived from the
// counts rather than trusted from the provider, so the invariant
// Complete ⇔ (Processed ≥ Total ∧ Total > 0) holds for every status
// this package produces. A processed count above total is reported as
// clamped so the tracker can log the data-integrity warning.
func normalize(raw ProviderStatus) (st ProcessingStatus, clamped bool) {
	total := raw.Total
	processed := raw.Count
	if total < 0 {
		total = 0
	}
	if processed < 0 {
		processed = 0
	}
	if total > 0 && processed > total {
		processed = total
		clamped = true
	}
	return ProcessingStatus{
		Total:     total,
		Processed: processed,
		Complete:  processed >= total && total > 0,
		Rows:      raw.Rows,
	}, clamped
}
