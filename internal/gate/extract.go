package gate

import (
	"net/http"
	"strings"
)

const (
	bearerPrefix    = "bearer "
	eventStreamMIME = "text/event-stream"
	tokenQueryParam = "token"
)

// Extract returns the bearer token of r. The token query parameter is honoured only for
// event-stream requests without a bearer header, since browsers cannot set headers there.
func Extract(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	if IsEventStream(r) {
		return strings.TrimSpace(r.URL.Query().Get(tokenQueryParam))
	}
	return ""
}

// IsEventStream reports whether r negotiates a server-sent event stream.
func IsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), eventStreamMIME)
}
