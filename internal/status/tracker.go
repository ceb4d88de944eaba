package status

import (
	"context"
	"log/slog"
	"time"
)

// Tracker answers "how far along is this survey?", shielding callers from
// the external provider: results are cached for a short window so several
// UI surfaces can poll cheaply, and provider failures degrade to a zeroed
// status instead of an error.
type Tracker struct {
	provider Provider
	cache    *Cache
	ttl      time.Duration
	logger   *slog.Logger
}

func NewTracker(provider Provider, ttl time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{provider: provider, cache: NewCache(), ttl: ttl, logger: logger}
}

// Check returns the survey's current ProcessingStatus.
//
// A cached status younger than the TTL is returned unchanged unless
// fetchData or bypassCache is set; either flag forces a provider call,
// since a cached entry can never carry the result rows fetchData asks
// for. Provider errors are absorbed: the caller gets a zeroed status and
// the next tick retries. The cache is overwritten with the outcome either
// way, which briefly caches the fallback and bounds retry storms.
func (t *Tracker) Check(ctx context.Context, surveyID string, fetchData, bypassCache bool) ProcessingStatus {
	if !fetchData && !bypassCache {
		if st, ok := t.cache.Get(surveyID, t.ttl); ok {
			return st
		}
	}

	raw, err := t.provider.CheckStatus(ctx, surveyID, fetchData)
	if err != nil {
		t.logger.Warn("status check failed", "survey_id", surveyID, "error", err)
		fallback := ProcessingStatus{}
		t.cache.Put(surveyID, fallback)
		return fallback
	}

	st, clamped := normalize(raw)
	if clamped {
		t.logger.Warn("provider reported processed > total",
			"survey_id", surveyID, "processed", raw.Count, "total", raw.Total)
	}
	t.cache.Put(surveyID, st)
	return st
}
