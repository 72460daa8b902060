// Package caldav implements provider.Remote against a generic CalDAV
// server (RFC 4791) — iCloud, Fastmail, or any other CalDAV host —
// driven from cmd/caldir-provider-caldav as a JSON-over-stdio
// subprocess.
package caldav

import "net/http"

// basicAuthTransport attaches HTTP Basic auth to every request. go-webdav
// takes an http.Client but never builds one for you; the library expects
// the caller to supply whatever auth its target server needs.
type basicAuthTransport struct {
	Username string
	Password string
	Base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	cloned := req.Clone(req.Context())
	cloned.SetBasicAuth(t.Username, t.Password)
	return base.RoundTrip(cloned)
}

func newHTTPClient(username, password string) *http.Client {
	return &http.Client{Transport: &basicAuthTransport{Username: username, Password: password}}
}
