package api

import "net/http"

// TokenSource yields the current bearer token, if any. It is consulted
// fresh on every outbound request so a credential change between requests
// is observed immediately. credstore.Store satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// authTransport attaches "Authorization: Bearer <token>" to every request
// iff a token is currently present, and otherwise forwards the request
// unmodified. It performs no retries and interprets no responses.
type authTransport struct {
	tokens TokenSource
	base   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token, ok := t.tokens.Token(); ok && token != "" {
		// Per RoundTripper contract the request must not be mutated.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
