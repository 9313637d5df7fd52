package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// ConfigFromCredentialsFile loads an OAuth client downloaded from the Google
// Cloud console ("installed" or "web" application).
func ConfigFromCredentialsFile(path string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file failed: %w", err)
	}
	cfg, err := googleoauth.ConfigFromJSON(raw, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file failed: %w", err)
	}
	return cfg, nil
}

// RunInstalledAppFlow asks the user to approve access in a browser and
// receives the authorization code on a loopback listener. showURL is called
// with the consent URL.
func RunInstalledAppFlow(ctx context.Context, cfg *oauth2.Config, showURL func(string)) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback failed: %w", err)
	}

	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())
	state, err := randomState()
	if err != nil {
		ln.Close()
		return nil, err
	}

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	finish := func(r result) {
		select {
		case done <- r:
		default:
		}
	}
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case q.Get("state") != state:
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			case q.Get("error") != "":
				fmt.Fprintln(w, "Authorization was denied. You can close this window.")
				finish(result{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
			case q.Get("code") == "":
				http.Error(w, "missing code", http.StatusBadRequest)
				return
			default:
				fmt.Fprintln(w, "Authorization complete. You can close this window.")
				finish(result{code: q.Get("code")})
			}
		}),
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			finish(result{err: fmt.Errorf("oauth callback server failed: %w", err)})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	showURL(flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := flowCfg.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code failed: %w", err)
	}
	return tok, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
