package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/olx/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

// AuthMode names the credential source picked by [NewHTTPClient].
type AuthMode string

const (
	AuthOAuth   AuthMode = "oauth"
	AuthToken   AuthMode = "token"
	AuthSession AuthMode = "session"
)

// NewHTTPClient builds an authenticated client for the CRM site.
//
// OAuth client credentials win over an API key pair, which wins over a captured browser session.
func NewHTTPClient(ctx context.Context, cfg shared.ServerConfig) (*http.Client, AuthMode, error) {
	switch {
	case cfg.OAuth.Enabled():
		cc := clientcredentials.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			TokenURL:     cfg.OAuth.TokenURL,
			Scopes:       cfg.OAuth.Scopes,
		}
		return cc.Client(ctx), AuthOAuth, nil

	case cfg.APIKey != "" && cfg.APISecret != "":
		return &http.Client{Transport: &tokenTransport{key: cfg.APIKey, secret: cfg.APISecret}}, AuthToken, nil

	case cfg.APIKey != "" || cfg.APISecret != "":
		return nil, "", fmt.Errorf("%w: api_key and api_secret must be set together", shared.ErrInvalidCredentials)

	case cfg.SessionFile != "":
		session, err := shared.LoadBrowserSession(cfg.SessionFile)
		if err != nil {
			return nil, "", err
		}
		if session.Guest() {
			return nil, "", fmt.Errorf("%w: session file holds a guest cookie", shared.ErrNotAuthenticated)
		}
		return &http.Client{Transport: &sessionTransport{session: session}}, AuthSession, nil
	}

	return nil, "", shared.ErrMissingCredentials
}

// tokenTransport signs requests with "Authorization: token key:secret".
type tokenTransport struct {
	key, secret string
	base        http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", t.key, t.secret))
	return transport(t.base).RoundTrip(req)
}

// sessionTransport replays a browser session's cookie and CSRF token.
type sessionTransport struct {
	session *shared.BrowserSession
	base    http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	t.session.Apply(req)
	return transport(t.base).RoundTrip(req)
}

func transport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}
