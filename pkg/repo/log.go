package repo

import (
	"fmt"

	"github.com/holtvcs/holt/pkg/object"
)

// LogEntry is one commit in a first-parent history walk.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// Log walks history from start (a ref name, or "" for HEAD) following
// first parents, newest first. limit <= 0 means no limit.
func (r *Repo) Log(start string, limit int) ([]LogEntry, error) {
	if start == "" {
		start = "HEAD"
	}
	hash, err := r.ResolveRef(start)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}

	var out []LogEntry
	for hash != "" {
		if limit > 0 && len(out) >= limit {
			break
		}
		commit, err := object.ReadCommit(r.Store, hash)
		if err != nil {
			return nil, fmt.Errorf("log: %w: commit %s: %v", ErrRepositoryCorrupt, hash, err)
		}
		out = append(out, LogEntry{Hash: hash, Commit: commit})
		if len(commit.Parents) == 0 {
			break
		}
		hash = commit.Parents[0]
	}
	return out, nil
}

// nthAncestor follows first parents n steps back from hash. n == 0
// returns hash itself. Running out of history reports
// ErrInsufficientHistory.
func (r *Repo) nthAncestor(hash object.Hash, n int) (object.Hash, error) {
	for ; n > 0; n-- {
		commit, err := object.ReadCommit(r.Store, hash)
		if err != nil {
			return "", fmt.Errorf("%w: commit %s: %v", ErrRepositoryCorrupt, hash, err)
		}
		if len(commit.Parents) == 0 {
			return "", ErrInsufficientHistory
		}
		hash = commit.Parents[0]
	}
	return hash, nil
}
