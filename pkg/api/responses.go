package api

import "github.com/aegi-platform/aegi-core/pkg/database"

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string                  `json:"status"`
	Version  string                  `json:"version"`
	Database *database.HealthStatus  `json:"database,omitempty"`
}

// messageResponse is a generic {"message": "..."} acknowledgement body.
type messageResponse struct {
	Message string `json:"message"`
}
