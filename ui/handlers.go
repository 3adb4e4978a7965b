package ui

import (
	"encoding/json"
	"net/http"

	"binstudy/domain/core"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.experiment.Status())
}

func (s *Server) handleGetDigest(w http.ResponseWriter, r *http.Request) {
	if err := s.experiment.EnsureAssigned(r.Context()); err != nil {
		s.logger.Error("assignment failed: %v", err)
		writeError(w, http.StatusInternalServerError, "cannot assign experiment")
		return
	}
	digest, err := s.experiment.Digest()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"digest": digest.String()})
}

type digestOverrideRequest struct {
	Digest string `json:"digest"`
}

// handleOverrideDigest accepts a manually re-entered verification code. The
// override only re-points the displayed string; the assignment derived from
// the original digest is untouched.
func (s *Server) handleOverrideDigest(w http.ResponseWriter, r *http.Request) {
	var req digestOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.experiment.SetDigest(core.Digest(req.Digest)) {
		writeError(w, http.StatusUnprocessableEntity, "digest is not a valid assignment code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"digest": req.Digest})
}

func (s *Server) handleNextChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok, err := s.experiment.NextChallenge(r.Context())
	if err != nil {
		s.logger.Error("next challenge failed: %v", err)
		writeError(w, http.StatusInternalServerError, "cannot start experiment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"challenge": id.String(),
		"done":      !ok,
	})
}

func (s *Server) handleAllowView(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"allowed":  s.experiment.AllowView(category),
	})
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	path := s.reportFile
	if err := s.reports.Export(r.Context(), s.experiment.SessionID(), path); err != nil {
		s.logger.Error("report export failed: %v", err)
		writeError(w, http.StatusInternalServerError, "report export failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": path})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "encoding failure", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
