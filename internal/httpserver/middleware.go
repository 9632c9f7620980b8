package httpserver

import (
	"net"
	"net/http"
	"strings"
)

// unknownClient is the identity used when no address can be derived
const unknownClient = "unknown"

// corsMiddleware implements the cross-origin policy of the contact
// endpoint. The allow-list holds exact origin strings; a matching
// Origin is reflected back, anything else gets no allow-origin header
// and the browser blocks the cross-origin read. Preflight probes are
// answered immediately regardless of origin match.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) isAllowedOrigin(origin string) bool {
	for _, allowed := range s.cors.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// clientIdentity derives the rate limiting key for a request.
//
// Behind a trusted reverse proxy the first forwarded-for value is the
// original client; exposed directly, that header is attacker-controlled
// and RemoteAddr is the only honest answer. Either way this is an
// abuse-reduction heuristic, not a security control.
func (s *Server) clientIdentity(r *http.Request) string {
	if s.srvCfg.TrustedProxy {
		if fwd := r.Header.Get(s.srvCfg.ForwardedHeader); fwd != "" {
			parts := strings.Split(fwd, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return unknownClient
}
