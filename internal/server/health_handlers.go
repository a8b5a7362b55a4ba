package server

import "net/http"

// handleHealthCheck reports liveness plus database reachability.
func (ms *MusicServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := ms.db.Ping(); err != nil {
		ms.logger.WithError(err).Error("Health check database ping failed")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	ms.respondJSON(w, map[string]string{"status": status})
}
