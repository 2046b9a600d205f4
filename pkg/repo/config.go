package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultRemote is the remote name used when none is given.
const DefaultRemote = "origin"

// Config stores repository-local settings: named remotes and the author
// identity recorded in commits.
type Config struct {
	User    UserConfig        `toml:"user"`
	Remotes map[string]string `toml:"remotes"`
}

// UserConfig is the commit author identity.
type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

func (r *Repo) configPath() string {
	return filepath.Join(r.HoltDir, "config.toml")
}

// ReadConfig reads .holt/config.toml. A missing file returns an empty
// config.
func (r *Repo) ReadConfig() (*Config, error) {
	cfg := &Config{Remotes: make(map[string]string)}
	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("read config: decode: %w", err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}
	return cfg, nil
}

// WriteConfig atomically writes .holt/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Remotes == nil {
		cfg.Remotes = make(map[string]string)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp, err := os.CreateTemp(r.HoltDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// SetRemote records the URL for a named remote.
func (r *Repo) SetRemote(name, remoteURL string) error {
	name = strings.TrimSpace(name)
	remoteURL = strings.TrimSpace(remoteURL)
	if name == "" {
		return fmt.Errorf("set remote: name is required")
	}
	if remoteURL == "" {
		return fmt.Errorf("set remote: url is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return fmt.Errorf("set remote: %w", err)
	}
	cfg.Remotes[name] = remoteURL
	if err := r.WriteConfig(cfg); err != nil {
		return fmt.Errorf("set remote: %w", err)
	}
	return nil
}

// RemoteURL returns the URL for a named remote. An empty name means the
// default remote.
func (r *Repo) RemoteURL(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultRemote
	}
	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	u, ok := cfg.Remotes[name]
	if !ok || strings.TrimSpace(u) == "" {
		return "", fmt.Errorf("remote %q is not configured", name)
	}
	return u, nil
}

// Author returns the configured commit author as "Name <email>", falling
// back to a host-derived identity when unset.
func (r *Repo) Author() string {
	cfg, err := r.ReadConfig()
	if err == nil && strings.TrimSpace(cfg.User.Name) != "" {
		email := strings.TrimSpace(cfg.User.Email)
		if email == "" {
			email = "(none)"
		}
		return fmt.Sprintf("%s <%s>", strings.TrimSpace(cfg.User.Name), email)
	}

	user := os.Getenv("USER")
	if user == "" {
		user = "holt"
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s <%s@%s>", user, user, host)
}
