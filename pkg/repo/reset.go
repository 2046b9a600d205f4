package repo

import (
	"fmt"
	"strings"
)

// ResetBack moves the active branch n commits back along its first-parent
// chain without touching the index or the working directory. n must be
// non-negative; zero resolves to the current tip and is a no-op, and
// walking past the root commit reports ErrInsufficientHistory.
func (r *Repo) ResetBack(n int) error {
	if n < 0 {
		return fmt.Errorf("reset: steps must be non-negative, got %d", n)
	}

	release, err := r.lockRepo()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer release()

	return r.resetBackLocked(n, false)
}

// HardResetBack moves the branch like ResetBack and then rewrites the
// index and working directory to match the target commit.
func (r *Repo) HardResetBack(n int) error {
	if n < 0 {
		return fmt.Errorf("reset: steps must be non-negative, got %d", n)
	}

	release, err := r.lockRepo()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	defer release()

	return r.resetBackLocked(n, true)
}

func (r *Repo) resetBackLocked(n int, hard bool) error {
	tip, err := r.ResolveRef("HEAD")
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	target, err := r.nthAncestor(tip, n)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if target == tip && !hard {
		return nil
	}

	head, err := r.Head()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	refName := "HEAD"
	if strings.HasPrefix(head, "refs/") {
		refName = head
	}
	if err := r.UpdateRefCAS(refName, target, tip); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	if hard {
		if err := r.checkoutCommit(target); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}
