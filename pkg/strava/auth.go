package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/yuriiter/bixistrava/pkg/faults"
	"github.com/yuriiter/bixistrava/pkg/utils"
)

const (
	defaultAuthorizeURL = "https://www.strava.com/api/v3/oauth/authorize"
	defaultTokenURL     = "https://www.strava.com/api/v3/oauth/token"
	defaultCallbackAddr = "127.0.0.1:5000"

	activityWriteScope = "activity:write"
)

// TokenBundle is what a token exchange yields. The refresh token is the
// durable secret; Strava rotates it on every exchange, so persist the one
// you get back, not the one you sent.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Authorizer obtains TokenBundles, either interactively through a browser
// consent + local callback, or silently from a refresh token.
type Authorizer struct {
	AuthorizeURL string
	TokenURL     string
	CallbackAddr string
	// OpenBrowser opens the consent URL for the user. Overridable for tests.
	OpenBrowser func(url string) error

	clientID     string
	clientSecret string
	http         *http.Client
}

func NewAuthorizer(clientID, clientSecret string) *Authorizer {
	return &Authorizer{
		AuthorizeURL: defaultAuthorizeURL,
		TokenURL:     defaultTokenURL,
		CallbackAddr: defaultCallbackAddr,
		OpenBrowser:  openBrowser,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

// Authorize runs the three-legged flow: open the consent page, wait for the
// provider to redirect to the local listener with a code, exchange the code.
// It blocks until exactly one valid callback lands or ctx expires. The
// callback handler hands its result over on a one-shot channel; only the
// first valid callback counts.
func (a *Authorizer) Authorize(ctx context.Context) (TokenBundle, error) {
	ln, err := net.Listen("tcp", a.CallbackAddr)
	if err != nil {
		return TokenBundle{}, &faults.AuthError{Op: "strava: authorize", Msg: "listen on " + a.CallbackAddr, Err: err}
	}

	state := uuid.NewString()
	redirectURI := fmt.Sprintf("http://%s/callback", ln.Addr().String())
	consentURL := a.authorizeURL(redirectURI, state)

	type exchange struct {
		bundle TokenBundle
		err    error
	}
	done := make(chan exchange, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if errParam := r.URL.Query().Get("error"); errParam != "" {
			select {
			case done <- exchange{err: &faults.AuthError{Op: "strava: authorize", Msg: "consent denied: " + errParam}}:
			default:
			}
			http.Error(w, "authorization failed", http.StatusBadRequest)
			return
		}
		bundle, err := a.token("authorization_code", r.URL.Query().Get("code"), "")
		select {
		case done <- exchange{bundle: bundle, err: err}:
		default:
			// A callback already landed; ignore extras.
		}
		fmt.Fprintln(w, "Success! You can close this window.")
	})

	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()

	utils.DebugLog("Strava: opening consent page %s", consentURL)
	if err := a.OpenBrowser(consentURL); err != nil {
		fmt.Printf("Open this URL to authorize: %s\n", consentURL)
	}

	select {
	case ex := <-done:
		return ex.bundle, ex.err
	case <-ctx.Done():
		return TokenBundle{}, &faults.AuthError{Op: "strava: authorize", Msg: "no OAuth callback received", Err: ctx.Err()}
	}
}

// Refresh exchanges a stored refresh token for a fresh bundle. No browser.
func (a *Authorizer) Refresh(refreshToken string) (TokenBundle, error) {
	return a.token("refresh_token", "", refreshToken)
}

func (a *Authorizer) authorizeURL(redirectURI, state string) string {
	params := url.Values{}
	params.Set("client_id", a.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("approval_prompt", "auto")
	params.Set("scope", activityWriteScope)
	params.Set("state", state)
	return a.AuthorizeURL + "?" + params.Encode()
}

// token posts to the token endpoint. Exactly one of code / refreshToken is
// set, matching the grant type.
func (a *Authorizer) token(grantType, code, refreshToken string) (TokenBundle, error) {
	data := url.Values{}
	data.Set("client_id", a.clientID)
	data.Set("client_secret", a.clientSecret)
	data.Set("grant_type", grantType)
	if code != "" {
		data.Set("code", code)
	}
	if refreshToken != "" {
		data.Set("refresh_token", refreshToken)
	}

	utils.DebugLog("Strava: token exchange (%s)", grantType)
	resp, err := a.http.PostForm(a.TokenURL, data)
	if err != nil {
		return TokenBundle{}, &faults.TransientError{Op: "strava: token exchange", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return TokenBundle{}, &faults.AuthError{
			Op:  "strava: token exchange",
			Msg: fmt.Sprintf("status %d: %s", resp.StatusCode, body),
		}
	}
	var bundle TokenBundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return TokenBundle{}, &faults.ParseError{Op: "strava: token exchange", Msg: err.Error()}
	}
	if bundle.AccessToken == "" {
		return TokenBundle{}, &faults.AuthError{Op: "strava: token exchange", Msg: "response has no access_token"}
	}
	return bundle, nil
}

func openBrowser(u string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", u).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", u).Start()
	default:
		return exec.Command("xdg-open", u).Start()
	}
}
