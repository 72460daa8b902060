package google

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"
)

func TestFileTokenStoreLoadMissingReturnsNil(t *testing.T) {
	store := fileTokenStore{Path: filepath.Join(t.TempDir(), "missing.json")}
	token, err := store.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if token != nil {
		t.Fatalf("expected nil token for missing file, got %+v", token)
	}
}

func TestFileTokenStoreSaveThenLoadRoundTrips(t *testing.T) {
	store := fileTokenStore{Path: filepath.Join(t.TempDir(), "nested", "token.json")}
	want := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}

	if err := store.SaveToken(want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	got, err := store.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("LoadToken() = %+v, want %+v", got, want)
	}
}

type fakeTokenSource struct {
	tokens []*oauth2.Token
	i      int
}

func (f *fakeTokenSource) Token() (*oauth2.Token, error) {
	tok := f.tokens[f.i]
	if f.i < len(f.tokens)-1 {
		f.i++
	}
	return tok, nil
}

func TestAutoSaveTokenSourceSavesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := fileTokenStore{Path: path}
	src := &autoSaveTokenSource{
		source: &fakeTokenSource{tokens: []*oauth2.Token{
			{AccessToken: "first"},
			{AccessToken: "second"},
		}},
		store: store,
	}

	if _, err := src.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	saved, err := store.LoadToken()
	if err != nil || saved.AccessToken != "first" {
		t.Fatalf("expected first token saved, got %+v err=%v", saved, err)
	}

	if _, err := src.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	saved, err = store.LoadToken()
	if err != nil || saved.AccessToken != "second" {
		t.Fatalf("expected second token saved after refresh, got %+v err=%v", saved, err)
	}
}

func TestAutoSaveTokenSourceSkipsSaveWhenUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := fileTokenStore{Path: path}
	src := &autoSaveTokenSource{
		source: &fakeTokenSource{tokens: []*oauth2.Token{{AccessToken: "same"}}},
		store:  store,
	}

	if _, err := src.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	// Remove the file the first call saved: a second, identical token
	// must not write it again.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove saved token: %v", err)
	}
	if _, err := src.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no save for an unchanged token, stat err=%v", err)
	}
}
