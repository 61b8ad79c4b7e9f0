package middleware

import (
	"net/http"
	"strings"
)

// CORS allows any of the configured origins. origins is a comma list;
// "*" allows every origin.
func CORS(origins string) func(http.Handler) http.Handler {
	allowList := strings.Split(origins, ",")
	for i := range allowList {
		allowList[i] = strings.TrimSpace(allowList[i])
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqOrigin := r.Header.Get("Origin")
			allowed := allowList[0]

			if reqOrigin != "" && isAllowed(reqOrigin, allowList) {
				allowed = reqOrigin
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAllowed(reqOrigin string, allowList []string) bool {
	for _, o := range allowList {
		if o == "*" || o == reqOrigin {
			return true
		}
		// Local dev servers on any port.
		if o == "http://localhost" && strings.HasPrefix(reqOrigin, "http://localhost:") {
			return true
		}
	}
	return false
}
