package strava_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/yuriiter/bixistrava/pkg/faults"
	"github.com/yuriiter/bixistrava/pkg/strava"
)

const tokenResponse = `{"access_token": "acc-new", "refresh_token": "ref-new"}`

func TestRefresh_SendsRefreshGrantWithoutCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		if got := r.PostFormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostFormValue("refresh_token"); got != "ref-old" {
			t.Errorf("refresh_token = %q", got)
		}
		if _, present := r.PostForm["code"]; present {
			t.Error("refresh grant must not send code")
		}
		if got := r.PostFormValue("client_id"); got != "client-1" {
			t.Errorf("client_id = %q", got)
		}
		if got := r.PostFormValue("client_secret"); got != "secret-1" {
			t.Errorf("client_secret = %q", got)
		}
		fmt.Fprint(w, tokenResponse)
	}))
	defer srv.Close()

	a := strava.NewAuthorizer("client-1", "secret-1")
	a.TokenURL = srv.URL

	tokens, err := a.Refresh("ref-old")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if tokens.AccessToken != "acc-new" || tokens.RefreshToken != "ref-new" {
		t.Fatalf("tokens = %+v", tokens)
	}
}

func TestRefresh_RejectedIsAuthFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad Request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	a := strava.NewAuthorizer("client-1", "secret-1")
	a.TokenURL = srv.URL

	_, err := a.Refresh("ref-old")
	var ae *faults.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want AuthError", err)
	}
}

func TestAuthorize_ExchangesCallbackCode(t *testing.T) {
	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
			return
		}
		if got := r.PostFormValue("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostFormValue("code"); got != "the-code" {
			t.Errorf("code = %q", got)
		}
		if _, present := r.PostForm["refresh_token"]; present {
			t.Error("code grant must not send refresh_token")
		}
		fmt.Fprint(w, tokenResponse)
	}))
	defer token.Close()

	a := strava.NewAuthorizer("client-1", "secret-1")
	a.TokenURL = token.URL
	a.CallbackAddr = "127.0.0.1:0"
	a.OpenBrowser = func(consentURL string) error {
		u, err := url.Parse(consentURL)
		if err != nil {
			t.Errorf("bad consent URL: %v", err)
			return nil
		}
		q := u.Query()
		if got := q.Get("response_type"); got != "code" {
			t.Errorf("response_type = %q", got)
		}
		if got := q.Get("scope"); got != "activity:write" {
			t.Errorf("scope = %q", got)
		}
		redirect := q.Get("redirect_uri")
		state := q.Get("state")
		if state == "" {
			t.Error("consent URL has no state")
		}
		// Play the provider: redirect the browser to the local listener.
		go http.Get(redirect + "?state=" + url.QueryEscape(state) + "&code=the-code")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tokens, err := a.Authorize(ctx)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if tokens.AccessToken != "acc-new" || tokens.RefreshToken != "ref-new" {
		t.Fatalf("tokens = %+v", tokens)
	}
}

func TestAuthorize_RejectsStateMismatch(t *testing.T) {
	tokenCalled := false
	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalled = true
		fmt.Fprint(w, tokenResponse)
	}))
	defer token.Close()

	status := make(chan int, 1)
	a := strava.NewAuthorizer("client-1", "secret-1")
	a.TokenURL = token.URL
	a.CallbackAddr = "127.0.0.1:0"
	a.OpenBrowser = func(consentURL string) error {
		u, _ := url.Parse(consentURL)
		redirect := u.Query().Get("redirect_uri")
		go func() {
			resp, err := http.Get(redirect + "?state=forged&code=the-code")
			if err == nil {
				status <- resp.StatusCode
				resp.Body.Close()
			}
		}()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := a.Authorize(ctx)
	if err == nil {
		t.Fatal("Authorize succeeded with a forged state")
	}
	if tokenCalled {
		t.Error("token endpoint was called for a forged state")
	}
	select {
	case code := <-status:
		if code != http.StatusBadRequest {
			t.Errorf("callback status = %d, want 400", code)
		}
	case <-time.After(2 * time.Second):
		t.Error("forged callback never completed")
	}
}

func TestAuthorize_TimesOutWithoutCallback(t *testing.T) {
	a := strava.NewAuthorizer("client-1", "secret-1")
	a.CallbackAddr = "127.0.0.1:0"
	a.OpenBrowser = func(string) error { return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := a.Authorize(ctx)
	var ae *faults.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want AuthError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want wrapped DeadlineExceeded", err)
	}
}

func TestAuthorize_ConsentDeniedIsAuthFault(t *testing.T) {
	a := strava.NewAuthorizer("client-1", "secret-1")
	a.CallbackAddr = "127.0.0.1:0"
	a.OpenBrowser = func(consentURL string) error {
		u, _ := url.Parse(consentURL)
		q := u.Query()
		go http.Get(q.Get("redirect_uri") + "?state=" + url.QueryEscape(q.Get("state")) + "&error=access_denied")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := a.Authorize(ctx)
	var ae *faults.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want AuthError", err)
	}
}
