package zaptec

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// passwordAuth caches the bearer token from Zaptec's password-grant OAuth
// endpoint and fetches a fresh one when the cached token expires.
type passwordAuth struct {
	conf     oauth2.Config
	username string
	password string
	httpc    *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

func newPasswordAuth(tokenURL, username, password string, httpc *http.Client) *passwordAuth {
	return &passwordAuth{
		conf: oauth2.Config{
			Endpoint: oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		},
		username: username,
		password: password,
		httpc:    httpc,
	}
}

// setAuthHeader attaches a valid bearer token to the request.
func (a *passwordAuth) setAuthHeader(ctx context.Context, req *http.Request) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token == nil || !a.token.Valid() {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpc)
		tok, err := a.conf.PasswordCredentialsToken(ctx, a.username, a.password)
		if err != nil {
			return fmt.Errorf("fetch token: %w", err)
		}
		a.token = tok
	}
	a.token.SetAuthHeader(req)
	return nil
}
