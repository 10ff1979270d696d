package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "balangay/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses,
// keeping a consistent JSON error envelope across handlers.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.HTTPStatus(code), map[string]string{
		"error": string(code),
	})
}
