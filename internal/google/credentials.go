// Package google wraps the Drive and Gmail APIs and the OAuth credentials
// both of them share.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
)

// Scopes covers reading the knowledge-base folder and writing drafts.
var Scopes = []string{drive.DriveReadonlyScope, gmail.GmailModifyScope}

// ErrNoCredentials means a source has nothing configured; the next source in
// the chain is tried.
var ErrNoCredentials = errors.New("no google credentials configured")

// CredentialSource produces a token source or reports ErrNoCredentials.
type CredentialSource interface {
	Name() string
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// EnvCredentials holds a client id, secret and refresh token from configuration.
type EnvCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (EnvCredentials) Name() string { return "environment" }

func (e EnvCredentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if e.ClientID == "" || e.ClientSecret == "" || e.RefreshToken == "" {
		return nil, ErrNoCredentials
	}
	cfg := oauthConfig(e.ClientID, e.ClientSecret, "")
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: e.RefreshToken}), nil
}

// TokenFileCredentials reads an authorized-user token file, the format
// written by `quotekb auth` and by Google's Python client libraries.
type TokenFileCredentials struct {
	Path string
}

func (t TokenFileCredentials) Name() string { return "token file " + t.Path }

type authorizedUser struct {
	Token        string   `json:"token,omitempty"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri,omitempty"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`
}

func (t TokenFileCredentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if strings.TrimSpace(t.Path) == "" {
		return nil, ErrNoCredentials
	}
	raw, err := os.ReadFile(t.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("read token file failed: %w", err)
	}

	var user authorizedUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("parse token file failed: %w", err)
	}
	if user.ClientID == "" || user.ClientSecret == "" || user.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s lacks client_id, client_secret or refresh_token", t.Path)
	}

	tok := &oauth2.Token{AccessToken: user.Token, RefreshToken: user.RefreshToken}
	if user.Expiry != "" {
		if expiry, err := time.Parse(time.RFC3339Nano, user.Expiry); err == nil {
			tok.Expiry = expiry
		}
	}
	cfg := oauthConfig(user.ClientID, user.ClientSecret, user.TokenURI)
	return cfg.TokenSource(ctx, tok), nil
}

// ResolveTokenSource returns the first configured source in order. A source
// that is configured but broken stops the search with its error.
func ResolveTokenSource(ctx context.Context, sources ...CredentialSource) (oauth2.TokenSource, string, error) {
	for _, src := range sources {
		ts, err := src.TokenSource(ctx)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		if err != nil {
			return nil, src.Name(), fmt.Errorf("%s: %w", src.Name(), err)
		}
		return ts, src.Name(), nil
	}
	return nil, "", ErrNoCredentials
}

// WriteTokenFile stores tok in the authorized-user format TokenFileCredentials reads.
func WriteTokenFile(path string, cfg *oauth2.Config, tok *oauth2.Token) error {
	user := authorizedUser{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
	}
	if !tok.Expiry.IsZero() {
		user.Expiry = tok.Expiry.UTC().Format(time.RFC3339Nano)
	}
	payload, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token file failed: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write token file failed: %w", err)
	}
	return nil
}

func oauthConfig(clientID, clientSecret, tokenURI string) *oauth2.Config {
	endpoint := googleoauth.Endpoint
	if tokenURI != "" {
		endpoint.TokenURL = tokenURI
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		Scopes:       Scopes,
	}
}
