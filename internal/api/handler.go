// Package api exposes the wizard, status and export operations over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/leadpilot/leadpilot/internal/config"
	"github.com/leadpilot/leadpilot/internal/contacts"
	"github.com/leadpilot/leadpilot/internal/export"
	"github.com/leadpilot/leadpilot/internal/history"
	"github.com/leadpilot/leadpilot/internal/status"
	"github.com/leadpilot/leadpilot/internal/survey"
	"github.com/leadpilot/leadpilot/internal/wizard"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	manager    *wizard.Manager
	store      survey.Store
	tracker    *status.Tracker
	monitor    *status.Monitor
	reconciler *history.Reconciler
	exporter   *export.Exporter
	cfg        *config.Config
}

// NewHandler constructs a Handler with the given dependencies.
func NewHandler(manager *wizard.Manager, store survey.Store, tracker *status.Tracker, monitor *status.Monitor, reconciler *history.Reconciler, exporter *export.Exporter, cfg *config.Config) *Handler {
	return &Handler{
		manager:    manager,
		store:      store,
		tracker:    tracker,
		monitor:    monitor,
		reconciler: reconciler,
		exporter:   exporter,
		cfg:        cfg,
	}
}

// RegisterRoutes registers all API routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sessions", h.CreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.GetSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/answer", h.Answer)
	mux.HandleFunc("POST /api/v1/sessions/{id}/back", h.Back)
	mux.HandleFunc("POST /api/v1/sessions/{id}/contacts", h.UploadContacts)
	mux.HandleFunc("POST /api/v1/sessions/{id}/submit", h.Submit)

	mux.HandleFunc("GET /api/v1/surveys", h.ListSurveys)
	mux.HandleFunc("GET /api/v1/surveys/{id}", h.GetSurvey)
	mux.HandleFunc("GET /api/v1/surveys/{id}/resume", h.ResumeSurvey)
	mux.HandleFunc("GET /api/v1/surveys/{id}/status", h.SurveyStatus)
	mux.HandleFunc("GET /api/v1/surveys/{id}/events", h.StreamEvents)
	mux.HandleFunc("DELETE /api/v1/surveys/{id}/poll", h.StopPolling)
	mux.HandleFunc("GET /api/v1/surveys/{id}/export", h.ExportResults)

	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// sessionResponse pairs the session state with the step it is waiting on,
// so a client can render the right control without a second request.
type sessionResponse struct {
	Session *wizard.Session `json:"session"`
	Step    wizard.Step     `json:"step"`
}

func (h *Handler) sessionJSON(w http.ResponseWriter, code int, s *wizard.Session) {
	writeJSON(w, code, sessionResponse{Session: s, Step: h.manager.Engine().Current(s)})
}

// CreateSession handles POST /api/v1/sessions and responds 201 with a
// fresh wizard session positioned at the first question.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Create()
	h.sessionJSON(w, http.StatusCreated, s)
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		h.wizardError(w, err)
		return
	}
	h.sessionJSON(w, http.StatusOK, s)
}

// Answer handles POST /api/v1/sessions/{id}/answer: one step forward.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s, err := h.manager.Advance(r.PathValue("id"), req.Value)
	if err != nil {
		h.wizardError(w, err)
		return
	}
	h.sessionJSON(w, http.StatusOK, s)
}

// Back handles POST /api/v1/sessions/{id}/back: one step backward.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Retreat(r.PathValue("id"))
	if err != nil {
		h.wizardError(w, err)
		return
	}
	h.sessionJSON(w, http.StatusOK, s)
}

// UploadContacts handles POST /api/v1/sessions/{id}/contacts. The CSV
// comes as the "file" part of a multipart form.
func (h *Handler) UploadContacts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 8<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing \"file\" form part")
		return
	}
	defer file.Close()

	cols, rows, err := contacts.Parse(file, h.cfg.MaxContactRows)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid CSV: "+err.Error())
		return
	}

	s, err := h.manager.AttachContacts(r.PathValue("id"), cols, rows, header.Filename)
	if err != nil {
		h.wizardError(w, err)
		return
	}
	h.sessionJSON(w, http.StatusOK, s)
}

// Submit handles POST /api/v1/sessions/{id}/submit: it persists the
// survey, fires the automation webhook and starts progress polling.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sv, err := h.manager.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		h.wizardError(w, err)
		return
	}

	h.monitor.Start(sv.ID, nil)
	writeJSON(w, http.StatusAccepted, sv)
}

// ListSurveys handles GET /api/v1/surveys with limit/offset pagination.
func (h *Handler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r.URL.Query().Get("limit"), 20)
	offset := parseIntParam(r.URL.Query().Get("offset"), 0)

	surveys, total, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list surveys")
		return
	}

	// Return an empty array instead of null when there are no surveys.
	if surveys == nil {
		surveys = []*survey.Survey{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"surveys": surveys,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetSurvey handles GET /api/v1/surveys/{id}.
func (h *Handler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

// ResumeSurvey handles GET /api/v1/surveys/{id}/resume. It rebuilds the
// conversation transcript for a past submission and, when processing is
// still running, restarts polling. Resuming a finished campaign marks
// its completion as already signaled so polling cannot announce it again.
func (h *Handler) ResumeSurvey(w http.ResponseWriter, r *http.Request) {
	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}

	st := h.tracker.Check(r.Context(), sv.ID, false, false)
	transcript := h.reconciler.Rebuild(sv, &st)

	if st.Complete {
		h.monitor.MarkCompletionSignaled(sv.ID)
	} else {
		h.monitor.Start(sv.ID, nil)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"survey":     sv,
		"status":     st,
		"transcript": transcript,
		"polling":    h.monitor.Watching(sv.ID),
	})
}

// SurveyStatus handles GET /api/v1/surveys/{id}/status. fresh=1 bypasses
// the cache, data=1 additionally fetches the processed result rows.
func (h *Handler) SurveyStatus(w http.ResponseWriter, r *http.Request) {
	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	fetchData := q.Get("data") == "1"
	bypass := q.Get("fresh") == "1"

	st := h.tracker.Check(r.Context(), sv.ID, fetchData, bypass)
	writeJSON(w, http.StatusOK, st)
}

// StopPolling handles DELETE /api/v1/surveys/{id}/poll.
func (h *Handler) StopPolling(w http.ResponseWriter, r *http.Request) {
	h.monitor.Stop(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// ExportResults handles GET /api/v1/surveys/{id}/export?format=csv|xlsx
// and serves the rendered spreadsheet as a download.
func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	sv, ok := h.loadSurvey(w, r)
	if !ok {
		return
	}

	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatCSV
	}

	f, err := h.exporter.Export(r.Context(), sv, format)
	switch {
	case errors.Is(err, export.ErrBadFormat):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, export.ErrNotComplete), errors.Is(err, export.ErrNoResults):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	w.Write(f.Data) //nolint:errcheck
}

// Health handles GET /api/v1/health and responds 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadSurvey fetches the survey from the path ID, writing the error
// response itself when the survey cannot be served.
func (h *Handler) loadSurvey(w http.ResponseWriter, r *http.Request) (*survey.Survey, bool) {
	sv, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get survey")
		return nil, false
	}
	if sv == nil {
		writeError(w, http.StatusNotFound, "survey not found")
		return nil, false
	}
	return sv, true
}

// wizardError maps wizard package errors onto HTTP status codes.
func (h *Handler) wizardError(w http.ResponseWriter, err error) {
	var ve *wizard.ValidationError
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, wizard.ErrAlreadySubmitted):
		writeError(w, http.StatusConflict, "session already submitted")
	case errors.Is(err, wizard.ErrNotAtSummary), errors.Is(err, wizard.ErrAtFirstStep), errors.Is(err, wizard.ErrAtLastStep):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": ve.Error(),
			"field": ve.Field,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseIntParam parses a query string integer, returning the fallback on empty or invalid input.
func parseIntParam(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
