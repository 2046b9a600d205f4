package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/holtvcs/holt/pkg/object"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string persisted in the commit.
type CommitSigner func(payload []byte) (string, error)

// Commit creates a new commit from a consistent snapshot of the index.
//
// The commit fails with ErrNothingStaged when the index carries no staged
// deletions and every entry matches the current tree. On success the
// active branch reference is advanced with a compare-and-swap against the
// previous tip, tombstones are dropped, and the surviving entries now
// match the new tree.
func (r *Repo) Commit(message string) (object.Hash, error) {
	return r.CommitWithSigner(message, nil)
}

// CommitWithSigner creates a commit and signs it when signer is non-nil.
func (r *Repo) CommitWithSigner(message string, signer CommitSigner) (object.Hash, error) {
	release, err := r.lockRepo()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	defer release()

	return r.commitLocked(message, signer, false)
}

// commitInitial writes the bootstrap commit of a fresh repository. An
// empty index is allowed and produces an empty tree.
func (r *Repo) commitInitial() (object.Hash, error) {
	release, err := r.lockRepo()
	if err != nil {
		return "", fmt.Errorf("initial commit: %w", err)
	}
	defer release()

	return r.commitLocked(InitialCommitMessage, nil, true)
}

func (r *Repo) commitLocked(message string, signer CommitSigner, allowEmpty bool) (object.Hash, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	head, err := r.headTreeEntries()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	if !allowEmpty && !hasStagedChanges(idx, head) {
		return "", fmt.Errorf("commit: %w", ErrNothingStaged)
	}

	treeHash, err := r.BuildTree(idx)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	var parents []object.Hash
	parentHash, err := r.ResolveRef("HEAD")
	if err == nil && parentHash != "" {
		parents = append(parents, parentHash)
	}

	commit := &object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    r.Author(),
		Timestamp: time.Now().Unix(),
		Message:   message,
	}
	if signer != nil {
		signature, err := signer(object.CommitSigningPayload(commit))
		if err != nil {
			return "", fmt.Errorf("commit: sign: %w", err)
		}
		commit.Signature = signature
	}

	commitHash, err := object.WriteCommit(r.Store, commit)
	if err != nil {
		return "", fmt.Errorf("commit: write: %w", err)
	}

	if err := r.advanceHead(commitHash, parentHash); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// The committed entries now match the tree; tombstones collapse away.
	// An index that never existed and has nothing to record stays absent.
	for p, e := range idx.Entries {
		if e.Deleted {
			delete(idx.Entries, p)
		}
	}
	if len(idx.Entries) > 0 || r.hasIndexFile() {
		if err := r.WriteIndex(idx); err != nil {
			return "", fmt.Errorf("commit: %w", err)
		}
	}

	return commitHash, nil
}

// advanceHead moves the active branch (or a detached HEAD) to commitHash,
// guarding against concurrent writers with a compare-and-swap on the old
// tip.
func (r *Repo) advanceHead(commitHash, oldTip object.Hash) error {
	head, err := r.Head()
	if err != nil {
		return fmt.Errorf("read HEAD: %w", err)
	}

	if strings.HasPrefix(head, "refs/") {
		// oldTip is "" for the first commit, matching the missing ref.
		return r.UpdateRefCAS(head, commitHash, oldTip)
	}
	// Detached HEAD: update HEAD directly against the old hash.
	return r.UpdateRefCAS("HEAD", commitHash, object.Hash(strings.TrimSpace(head)))
}

// hasStagedChanges reports whether any index entry differs from the
// current tree: a tombstone, a new path, or changed content or mode. A
// tree path with no index entry counts as a staged deletion.
func hasStagedChanges(idx *Index, head map[string]headTreeState) bool {
	for p, e := range idx.Entries {
		hs, inHead := head[p]
		switch {
		case e.Deleted:
			if inHead {
				return true
			}
		case !inHead:
			return true
		case e.BlobHash != hs.BlobHash || e.Mode != hs.Mode:
			return true
		}
	}
	for p := range head {
		if _, ok := idx.Entries[p]; !ok {
			return true
		}
	}
	return false
}

// LastCommitMessage returns the message of the commit HEAD points at.
func (r *Repo) LastCommitMessage() (string, error) {
	headHash, err := r.ResolveRef("HEAD")
	if err != nil {
		return "", fmt.Errorf("last commit message: %w", err)
	}
	commit, err := object.ReadCommit(r.Store, headHash)
	if err != nil {
		return "", fmt.Errorf("last commit message: %w: %v", ErrRepositoryCorrupt, err)
	}
	return commit.Message, nil
}
