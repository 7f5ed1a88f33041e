package handler

import "net/http"

// Root serves GET /v1/.
func Root(w http.ResponseWriter, _ *http.Request) {
	Respond(w, map[string]string{"message": "FastForm API", "version": "v1"}, http.StatusOK)
}
