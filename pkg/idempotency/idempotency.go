package idempotency

import (
	"net/http"
	"strings"
)

const Header = "Idempotency-Key"

// MaxKeyLength bounds keys accepted by the server.
const MaxKeyLength = 128

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

func Set(r *http.Request, key string) {
	if key != "" {
		r.Header.Set(Header, key)
	}
}
