package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/controlnotes/internal/annotate"
	"github.com/thebtf/controlnotes/internal/workflow"
)

const maxFormBytes = 64 << 10

func (s *Service) handleIndex(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, pageIndex, indexPage{
		Title:    "Lookup",
		Controls: s.catalog.ListControlIDs(),
	})
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in := workflow.Input{
		Selected:           r.PostFormValue("control"),
		Typed:              r.PostFormValue("control_text"),
		IncludeRemediation: r.PostFormValue("remediation") != "",
	}

	result, err := s.lookup.Run(r.Context(), in)
	if err != nil {
		if errors.Is(err, workflow.ErrMissingControl) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		page := resultPage{Title: "Lookup failed", Error: err.Error()}
		status := http.StatusInternalServerError
		var notFound *workflow.ControlNotFoundError
		if errors.As(err, &notFound) {
			status = http.StatusNotFound
			page.Suggestions = notFound.Suggestions
		}
		render(w, status, pageResult, page)
		return
	}

	s.publishLookup(result)
	render(w, http.StatusOK, pageResult, resultPage{Title: result.Control, Result: result})
}

func (s *Service) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	question := r.PostFormValue("question")
	page := indexPage{
		Title:    "Lookup",
		Controls: s.catalog.ListControlIDs(),
		Question: question,
	}

	answer, err := s.asker.Ask(r.Context(), question)
	switch {
	case errors.Is(err, annotate.ErrMissingCredential):
		page.Error = annotate.MissingCredentialMessage
	case err != nil:
		log.Warn().Err(err).Msg("Chat request failed")
		page.Error = "Error: " + err.Error()
	default:
		page.Response = annotate.RenderMarkdown(answer)
	}
	render(w, http.StatusOK, pageIndex, page)
}

func (s *Service) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	entries, err := s.history.Recent(r.Context(), s.config.HistoryLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load history")
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	render(w, http.StatusOK, pageHistory, historyPage{Title: "History", Entries: entries})
}
