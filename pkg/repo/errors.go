package repo

import "errors"

var (
	// ErrPathOutsideRepository reports a staging path that is absolute or
	// escapes the repository root.
	ErrPathOutsideRepository = errors.New("path outside repository")

	// ErrNothingStaged reports a commit attempt with an index identical to
	// the current tree.
	ErrNothingStaged = errors.New("nothing staged")

	// ErrNonFastForward reports a push where the remote tip is not an
	// ancestor of the local tip.
	ErrNonFastForward = errors.New("non-fast-forward")

	// ErrDivergedHistory reports a pull where local and remote histories
	// have diverged and neither tip contains the other.
	ErrDivergedHistory = errors.New("diverged history")

	// ErrInsufficientHistory reports a reset further back than the commit
	// chain reaches.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrRepositoryCorrupt reports an unreadable or inconsistent object in
	// the underlying store.
	ErrRepositoryCorrupt = errors.New("repository corrupt")

	// ErrReferenceConflict reports a reference update lost to a concurrent
	// writer (compare-and-swap mismatch).
	ErrReferenceConflict = errors.New("reference conflict")

	// ErrRemoteEmpty reports a clone from a remote that has no branches.
	ErrRemoteEmpty = errors.New("remote repository is empty")
)

// StageError records a single path that could not be staged. Path-level
// staging failures are collected and returned alongside partial success;
// they never abort the whole call.
type StageError struct {
	Path string
	Err  error
}

func (e StageError) Error() string {
	return "stage " + e.Path + ": " + e.Err.Error()
}

func (e StageError) Unwrap() error {
	return e.Err
}
