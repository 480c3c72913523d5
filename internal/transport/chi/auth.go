package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// apiKeyHeader is the header PostgREST-style clients already send.
const apiKeyHeader = "apikey"

// BearerAuthMiddleware guards the JSON API with static keys. A key is read
// from "Authorization: Bearer <key>" or, failing that, the apikey header.
// CORS preflight requests pass. With no non-empty key configured the
// middleware is a pass-through.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var keys [][]byte
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				next.ServeHTTP(w, r)
				return
			}

			token, msg := presentedKey(r)
			if msg != "" {
				unauthorized(w, r, msg)
				return
			}
			if !knownKey(keys, token) {
				unauthorized(w, r, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// presentedKey returns the key sent with r, or a client-facing reason it is missing.
func presentedKey(r *http.Request) (string, string) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(auth, bearerPrefix) {
			return "", "authorization header must use Bearer scheme"
		}
		return strings.TrimSpace(auth[len(bearerPrefix):]), ""
	}
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key, ""
	}
	return "", "missing authorization header"
}

func knownKey(keys [][]byte, token string) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, []byte(token))
	}
	return found == 1
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="dealscout"`)
	writeError(w, r, http.StatusUnauthorized, codeUnauthorized, msg)
}
