package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/holtvcs/holt/pkg/object"
)

// DefaultBranch is the branch created by Init.
const DefaultBranch = "main"

// InitialCommitMessage is the message of the bootstrap commit created when
// a repository is initialized without remote history.
const InitialCommitMessage = "Initial commit"

// Init creates a new holt repository at path. It creates the .holt/
// directory structure: HEAD, objects/, refs/heads/, and logs/. Returns an
// error if a .holt/ directory already exists.
func Init(path string) (*Repo, error) {
	holtDir := filepath.Join(path, ".holt")

	if _, err := os.Stat(holtDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", holtDir)
	}

	dirs := []string{
		filepath.Join(holtDir, "objects"),
		filepath.Join(holtDir, "refs", "heads"),
		filepath.Join(holtDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	headPath := filepath.Join(holtDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/"+DefaultBranch+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	return &Repo{
		RootDir: path,
		HoltDir: holtDir,
		Store:   object.NewFileStore(holtDir),
	}, nil
}

// Open opens the repository whose root is exactly path. Returns an error if
// path has no .holt/ directory.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}
	holtDir := filepath.Join(abs, ".holt")
	info, err := os.Stat(holtDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("open: not a holt repository: %s", abs)
	}
	return &Repo{
		RootDir: abs,
		HoltDir: holtDir,
		Store:   object.NewFileStore(holtDir),
	}, nil
}

// Discover searches upward from path for a .holt/ directory and opens the
// repository. Returns an error if none is found up to the filesystem root.
func Discover(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("discover: abs path: %w", err)
	}

	cur := abs
	for {
		if r, err := Open(cur); err == nil {
			return r, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("discover: not a holt repository (or any parent up to /)")
		}
		cur = parent
	}
}

// OpenOrInit opens an existing repository at path, or initializes one.
//
// A fresh repository gets a bootstrap commit with message "Initial commit"
// and an empty tree; files already present in the directory stay untracked
// until staged. When remoteURL is non-empty and no local history exists,
// the initial state is cloned from the remote instead (falling back to the
// bootstrap commit when the remote has no branches yet), and the remote is
// recorded as "origin".
func OpenOrInit(ctx context.Context, path, remoteURL string) (*Repo, error) {
	if r, err := Open(path); err == nil {
		return r, nil
	}

	if remoteURL != "" {
		r, err := Clone(ctx, remoteURL, path)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrRemoteEmpty) {
			return nil, fmt.Errorf("open or init: %w", err)
		}
		// Remote exists but has no history: initialize locally and keep the
		// remote configured for the first push.
	}

	r, err := Init(path)
	if err != nil {
		return nil, fmt.Errorf("open or init: %w", err)
	}
	if remoteURL != "" {
		if err := r.SetRemote(DefaultRemote, remoteURL); err != nil {
			return nil, fmt.Errorf("open or init: %w", err)
		}
	}
	if _, err := r.commitInitial(); err != nil {
		return nil, fmt.Errorf("open or init: %w", err)
	}
	return r, nil
}
