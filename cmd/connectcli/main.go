// Command connectcli walks the full authorization flow against a running
// server from the terminal. It is a development aid: it opens the authorize
// URL, catches the callback on localhost, exchanges the code and prints the
// resulting tokens.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
)

func main() {
	var (
		serverURL    = flag.String("server", "https://connect.pollverse.dev", "authorization server base URL")
		clientID     = flag.String("client-id", "pollverse-agent", "OAuth client ID")
		clientSecret = flag.String("client-secret", "", "OAuth client secret (empty for a public client)")
		redirectURL  = flag.String("redirect", "https://localhost:9094/callback", "allow-listed redirect URI")
		scope        = flag.String("scope", "act", "requested scope")
	)
	flag.Parse()

	conf := &oauth2.Config{
		ClientID:     *clientID,
		ClientSecret: *clientSecret,
		RedirectURL:  *redirectURL,
		Scopes:       []string{*scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  *serverURL + "/oauth2/authorize",
			TokenURL: *serverURL + "/oauth2/token",
		},
	}

	if err := run(conf); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(conf *oauth2.Config) error {
	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier() // random string, reused generator

	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	fmt.Println("Open this URL in your browser and approve the request:")
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()

	code, err := waitForCallback(state)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return err
	}
	printToken("token response", tok)

	// Force a refresh to show the access token rotating while the refresh
	// token stays put.
	tok.Expiry = time.Now().Add(-time.Minute)
	refreshed, err := conf.TokenSource(ctx, tok).Token()
	if err != nil {
		return err
	}
	printToken("after refresh", refreshed)
	return nil
}

// waitForCallback runs a one-shot listener for the redirect leg and returns
// the authorization code once the browser lands on it.
func waitForCallback(state string) (string, error) {
	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			done <- result{err: fmt.Errorf("state mismatch")}
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			done <- result{err: fmt.Errorf("%s: %s", e, q.Get("error_description"))}
			fmt.Fprintln(w, "Authorization failed, you can close this tab.")
			return
		}
		done <- result{code: q.Get("code")}
		fmt.Fprintln(w, "Authorized, you can close this tab.")
	})

	srv := &http.Server{Addr: ":9094", Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			done <- result{err: err}
		}
	}()
	defer srv.Close()

	res := <-done
	return res.code, res.err
}

func printToken(label string, tok *oauth2.Token) {
	fmt.Println(label + ":")
	out, _ := json.MarshalIndent(map[string]any{
		"access_token":  tok.AccessToken,
		"token_type":    tok.TokenType,
		"refresh_token": tok.RefreshToken,
		"expiry":        tok.Expiry.Format(time.RFC3339),
	}, "  ", "  ")
	fmt.Println("  " + string(out))
}
