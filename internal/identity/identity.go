// Package identity resolves the acting user for a request. Authentication
// itself is out of scope — the deployment fronts this service with its
// auth proxy, which injects the verified user id. An empty identity means
// the caller only sees the shared default catalog.
package identity

import "net/http"

// Header is set by the auth proxy with the verified user id.
const Header = "X-User-ID"

// FromRequest returns the acting user's opaque id, or "" when anonymous.
// The query parameter fallback mirrors the reference API's ?userId= form.
func FromRequest(r *http.Request) string {
	if id := r.Header.Get(Header); id != "" {
		return id
	}
	return r.URL.Query().Get("userId")
}
