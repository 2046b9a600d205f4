package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/holtvcs/holt/pkg/object"
)

// newTestRepo initializes a repository with its bootstrap commit, the
// state OpenOrInit leaves behind.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := r.commitInitial(); err != nil {
		t.Fatalf("initial commit: %v", err)
	}
	return r
}

func writeWorkFile(t *testing.T, r *Repo, rel, content string) {
	t.Helper()
	abs := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func stageOne(t *testing.T, r *Repo, rel string) {
	t.Helper()
	failed, err := r.Stage([]string{rel})
	if err != nil {
		t.Fatalf("Stage(%s): %v", rel, err)
	}
	if len(failed) != 0 {
		t.Fatalf("Stage(%s): unexpected failures: %v", rel, failed)
	}
}

func mustCommit(t *testing.T, r *Repo, message string) object.Hash {
	t.Helper()
	h, err := r.Commit(message)
	if err != nil {
		t.Fatalf("Commit(%q): %v", message, err)
	}
	return h
}

func statusFor(t *testing.T, r *Repo, rel string) (FileStatus, bool) {
	t.Helper()
	statuses, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, s := range statuses {
		if s.Path == rel {
			return s, true
		}
	}
	return FileStatus{}, false
}
