package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFakeProvider creates an executable shell script named
// caldir-provider-<name> in a fresh directory, prepends that directory
// to PATH for the duration of the test, and returns a *Subprocess bound
// to it. The script ignores its input and always emits response.
func writeFakeProvider(t *testing.T, name, response string) *Subprocess {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "caldir-provider-"+name)
	script := "#!/bin/sh\ncat >/dev/null\necho '" + response + "'\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write fake provider: %v", err)
	}

	oldPath := os.Getenv("PATH")
	os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath)
	t.Cleanup(func() { os.Setenv("PATH", oldPath) })

	sub, err := NewSubprocess(name)
	if err != nil {
		t.Fatalf("NewSubprocess: %v", err)
	}
	sub.Timeout = 5 * time.Second
	return sub
}

func TestSubprocessAuthInitOAuthRedirect(t *testing.T) {
	sub := writeFakeProvider(t, "fake-oauth", `{"status":"success","data":{"auth_type":"oauth_redirect","oauth":{"authorization_url":"https://example.com/auth","state":"xyz","scopes":["cal"]}}}`)

	resp, err := sub.AuthInit(context.Background())
	if err != nil {
		t.Fatalf("AuthInit: %v", err)
	}
	if resp.AuthType != AuthOAuthRedirect || resp.OAuth == nil || resp.OAuth.State != "xyz" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSubprocessListCalendars(t *testing.T) {
	sub := writeFakeProvider(t, "fake-cals", `{"status":"success","data":[{"id":"c1","name":"Primary","primary":true}]}`)

	cals, err := sub.ListCalendars(context.Background(), map[string]string{"account": "a@ex.com"})
	if err != nil {
		t.Fatalf("ListCalendars: %v", err)
	}
	if len(cals) != 1 || cals[0].ID != "c1" || !cals[0].Primary {
		t.Fatalf("unexpected calendars: %+v", cals)
	}
}

func TestSubprocessErrorResponseIsWrapped(t *testing.T) {
	sub := writeFakeProvider(t, "fake-err", `{"status":"error","error":{"kind":"rate_limited","message":"slow down"}}`)

	_, err := sub.ListCalendars(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsRetryable(err) {
		t.Fatalf("expected rate_limited error to be retryable, got %v", err)
	}
}

func TestSubprocessAuthRequiredIsNotRetryable(t *testing.T) {
	sub := writeFakeProvider(t, "fake-auth-err", `{"status":"error","error":{"kind":"auth_required","message":"token expired"}}`)

	_, err := sub.ListCalendars(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsRetryable(err) {
		t.Fatalf("expected auth_required to be non-retryable")
	}
}

func TestSubprocessMissingBinary(t *testing.T) {
	if _, err := NewSubprocess("does-not-exist-xyz"); err == nil {
		t.Fatalf("expected error for missing provider binary")
	}
}
