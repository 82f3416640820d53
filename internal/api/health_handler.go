package api

import (
	"net/http"

	"github.com/phrazzld/newsletter-api/internal/api/shared"
)

// HealthCheck handles GET /health. It answers 200 with an empty body as long
// as the process can serve requests; it does not touch the database.
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	shared.RespondWithStatus(w, http.StatusOK)
}
