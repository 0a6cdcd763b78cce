package handlers

import "net/http"

// HandleHealth is the liveness check: it reports that the HTTP service is
// alive and responding. The service holds no external connections, so there
// is no separate readiness probe.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
