package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/storekit-community/appstore-server-go/internal/version"
)

type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	Service   string `json:"service"`
}

// HandleVersion returns the version and build information for the service.
func HandleVersion() http.HandlerFunc {
	// Pre-create the response to avoid allocating on every request
	info := version.Get()
	response := VersionResponse{
		Version:   info.Version,
		GitCommit: info.GitCommit,
		BuildDate: info.BuildDate,
		Service:   "appstore-receiver",
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode version", http.StatusInternalServerError)
			return
		}
	}
}
