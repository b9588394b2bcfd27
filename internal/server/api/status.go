package api

import "net/http"

// StatusFunc returns a JSON-encodable snapshot of the monitor.
type StatusFunc func() any

// StatusHandler serves the live monitor state.
type StatusHandler struct {
	status StatusFunc
}

// NewStatusHandler creates a StatusHandler backed by status.
func NewStatusHandler(status StatusFunc) *StatusHandler {
	return &StatusHandler{status: status}
}

// ServeHTTP handles GET /api/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.status())
}
