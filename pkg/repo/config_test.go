package repo

import (
	"strings"
	"testing"
)

func TestConfig_RoundTrip(t *testing.T) {
	r := newTestRepo(t)

	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig on fresh repo: %v", err)
	}
	if len(cfg.Remotes) != 0 {
		t.Errorf("fresh config remotes = %v, want none", cfg.Remotes)
	}

	cfg.User = UserConfig{Name: "Ada", Email: "ada@example.com"}
	cfg.Remotes["origin"] = "http://example.com/repo"
	if err := r.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	got, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if got.User.Name != "Ada" || got.User.Email != "ada@example.com" {
		t.Errorf("user = %+v", got.User)
	}
	if got.Remotes["origin"] != "http://example.com/repo" {
		t.Errorf("remotes = %v", got.Remotes)
	}
}

func TestSetRemote_AndLookup(t *testing.T) {
	r := newTestRepo(t)

	if _, err := r.RemoteURL("origin"); err == nil {
		t.Error("RemoteURL on unconfigured remote should fail")
	}

	if err := r.SetRemote("origin", "http://example.com/a"); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	if err := r.SetRemote("backup", "http://example.com/b"); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}

	// Empty name resolves to the default remote.
	u, err := r.RemoteURL("")
	if err != nil {
		t.Fatalf("RemoteURL: %v", err)
	}
	if u != "http://example.com/a" {
		t.Errorf("default remote = %q", u)
	}

	u, err = r.RemoteURL("backup")
	if err != nil {
		t.Fatalf("RemoteURL(backup): %v", err)
	}
	if u != "http://example.com/b" {
		t.Errorf("backup remote = %q", u)
	}

	// Re-setting overwrites.
	if err := r.SetRemote("origin", "http://example.com/new"); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	u, err = r.RemoteURL("origin")
	if err != nil {
		t.Fatalf("RemoteURL: %v", err)
	}
	if u != "http://example.com/new" {
		t.Errorf("origin after overwrite = %q", u)
	}

	if err := r.SetRemote("", "http://example.com"); err == nil {
		t.Error("SetRemote with empty name should fail")
	}
	if err := r.SetRemote("origin", ""); err == nil {
		t.Error("SetRemote with empty url should fail")
	}
}

func TestAuthor(t *testing.T) {
	r := newTestRepo(t)

	// Unconfigured: falls back to a host-derived identity.
	fallback := r.Author()
	if !strings.Contains(fallback, "<") || !strings.Contains(fallback, "@") {
		t.Errorf("fallback author = %q, want name <user@host> shape", fallback)
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	cfg.User = UserConfig{Name: "Ada Lovelace", Email: "ada@example.com"}
	if err := r.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if got := r.Author(); got != "Ada Lovelace <ada@example.com>" {
		t.Errorf("author = %q", got)
	}

	// A name without an email still produces a stable identity.
	cfg.User.Email = ""
	if err := r.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if got := r.Author(); got != "Ada Lovelace <(none)>" {
		t.Errorf("author without email = %q", got)
	}
}
