package handler

import (
	"encoding/json"
	"net/http"
	"strings"
)

// allowMethods answers CORS preflights and rejects methods outside the
// route's set. It reports whether the handler should continue.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	allowed := strings.Join(append(methods, http.MethodOptions), ", ")

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", allowed)
	h.Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}

	h.Set("Allow", allowed)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
