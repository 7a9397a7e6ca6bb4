package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	gormdb "github.com/thebtf/controlnotes/internal/db/gorm"
	"github.com/thebtf/controlnotes/internal/workflow"
)

const maxJSONBytes = 1 << 20

type lookupRequest struct {
	Control     string `json:"control"`
	Remediation bool   `json:"remediation"`
}

type errorResponse struct {
	Error       string   `json:"error"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if !s.ready.Load() {
		status, code = "starting", http.StatusServiceUnavailable
	}
	body := map[string]any{
		"version":        s.version,
		"uptime":         time.Since(s.startTime).Round(time.Second).String(),
		"controls":       s.catalog.Len(),
		"catalog_loaded": s.catalog.Loaded(),
	}

	if s.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		err := s.database.Ping(ctx)
		cancel()
		body["database"] = map[string]any{
			"driver": s.database.Driver(),
			"ok":     err == nil,
		}
		if err != nil {
			log.Warn().Err(err).Msg("History database ping failed")
			if code == http.StatusOK {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
	}

	body["status"] = status
	writeJSON(w, code, body)
}

func (s *Service) handleControls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.ListControlIDs())
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	if control := r.URL.Query().Get("control"); control != "" {
		entries, err := s.history.FindByControl(r.Context(), control)
		if err != nil {
			log.Error().Err(err).Str("control", control).Msg("Failed to query history")
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	limit := gormdb.ParseLimitParam(r, s.config.HistoryLimit)
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query history")
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Service) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.lookup.Run(r.Context(), workflow.Input{
		Typed:              req.Control,
		IncludeRemediation: req.Remediation,
	})
	var notFound *workflow.ControlNotFoundError
	switch {
	case errors.Is(err, workflow.ErrMissingControl):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Suggestions: notFound.Suggestions})
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.publishLookup(result)
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Service) handleReload(w http.ResponseWriter, r *http.Request) {
	loaded := s.ReloadCatalog(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded":   loaded,
		"controls": s.catalog.Len(),
	})
}
