package ui

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"binstudy/domain/experiment"

	"github.com/go-chi/chi/v5"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// handleBriefing renders the per-study markdown briefing
// (<briefing dir>/<study type>.md) as HTML for the transition screens.
func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	studyType, err := experiment.ParseStudyType(chi.URLParam(r, "study"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown study")
		return
	}
	if s.briefingDir == "" {
		writeError(w, http.StatusNotFound, "no briefings configured")
		return
	}

	path := filepath.Join(s.briefingDir, studyType.String()+".md")
	source, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "no briefing for study")
		return
	}
	if err != nil {
		s.logger.Error("read briefing %s: %v", path, err)
		writeError(w, http.StatusInternalServerError, "briefing unavailable")
		return
	}

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	rendered := markdown.ToHTML(source, p, renderer)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(rendered)
}
