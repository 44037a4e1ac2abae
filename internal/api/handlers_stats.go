package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.oracle == nil || s.oracle.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":    s.oracle.ProviderName(),
		"model":       s.oracle.Model(),
		"stats":       s.oracle.Stats.Snapshot(),
		"by_category": s.oracle.Stats.ByCategory(),
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.oracle == nil || s.oracle.Usage == nil {
		jsonError(w, "usage unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.oracle.Usage.Summary())
}
