package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/holtvcs/holt/pkg/object"
)

// Repo represents an opened holt repository: a working directory root, its
// .holt/ metadata directory, and a handle to the object store.
type Repo struct {
	RootDir string       // working directory root
	HoltDir string       // .holt/ directory
	Store   object.Store // content-addressed object store
}

// Path returns the repository's working directory root.
func (r *Repo) Path() string {
	return r.RootDir
}

const (
	lockRetryDelay = 5 * time.Millisecond
	lockWaitLimit  = 2 * time.Second
)

// lockRepo takes the repository-wide mutation lock (.holt/lock). Every
// mutating operation holds it so a crash mid-operation never interleaves
// with another writer's index or reference update.
func (r *Repo) lockRepo() (release func(), err error) {
	lockPath := filepath.Join(r.HoltDir, "lock")
	f, err := acquireLockFile(lockPath)
	if err != nil {
		return nil, fmt.Errorf("lock repository: %w", err)
	}
	return func() {
		f.Close()
		os.Remove(lockPath)
	}, nil
}

// acquireLockFile creates lockPath exclusively, retrying until the wait
// limit elapses.
func acquireLockFile(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(lockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(lockRetryDelay)
			continue
		}
		return nil, err
	}
}
