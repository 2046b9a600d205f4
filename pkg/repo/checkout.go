package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/holtvcs/holt/pkg/object"
)

// Checkout switches the working directory to the state of target, a
// branch name or a raw commit hash. The working tree must be clean.
func (r *Repo) Checkout(target string) error {
	release, err := r.lockRepo()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	defer release()

	if err := r.ensureClean(); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	isBranch := false
	var targetHash object.Hash
	if branchHash, err := r.ResolveRef("refs/heads/" + target); err == nil {
		targetHash = branchHash
		isBranch = true
	} else {
		if err := object.ValidateHash(object.Hash(target)); err != nil {
			return fmt.Errorf("checkout: %q is neither a branch nor a commit hash", target)
		}
		targetHash = object.Hash(target)
	}

	if err := r.checkoutCommit(targetHash); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	headPath := filepath.Join(r.HoltDir, "HEAD")
	headContent := string(targetHash) + "\n"
	if isBranch {
		headContent = "ref: refs/heads/" + target + "\n"
	}
	if err := os.WriteFile(headPath, []byte(headContent), 0o644); err != nil {
		return fmt.Errorf("checkout: update HEAD: %w", err)
	}
	return nil
}

// checkoutCommit rewrites the working directory and the index to match
// the tree of the given commit. Tracked files not in the target tree are
// removed; untracked files are left alone. HEAD is not touched.
func (r *Repo) checkoutCommit(commitHash object.Hash) error {
	commit, err := object.ReadCommit(r.Store, commitHash)
	if err != nil {
		return fmt.Errorf("read commit %s: %w", commitHash, err)
	}
	targetFiles, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return fmt.Errorf("flatten target tree: %w", err)
	}

	targetMap := make(map[string]TreeFileEntry, len(targetFiles))
	for _, f := range targetFiles {
		targetMap[f.Path] = f
	}

	for path := range r.trackedFiles() {
		if _, keep := targetMap[path]; keep {
			continue
		}
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %q: %w", path, err)
		}
		r.removeEmptyParents(filepath.Dir(absPath))
	}

	idx := &Index{Entries: make(map[string]*IndexEntry, len(targetFiles))}
	for _, f := range targetFiles {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return fmt.Errorf("mkdir for %q: %w", f.Path, err)
		}
		blob, err := object.ReadBlob(r.Store, f.BlobHash)
		if err != nil {
			return fmt.Errorf("read blob for %q: %w", f.Path, err)
		}
		if err := os.WriteFile(absPath, blob.Data, filePermFromMode(f.Mode)); err != nil {
			return fmt.Errorf("write %q: %w", f.Path, err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("stat %q: %w", f.Path, err)
		}
		idx.Entries[f.Path] = &IndexEntry{
			Path:        f.Path,
			BlobHash:    f.BlobHash,
			Mode:        f.Mode,
			ModTime:     info.ModTime().UnixNano(),
			Size:        info.Size(),
			Fingerprint: xxh3.Hash(blob.Data),
		}
	}
	return r.WriteIndex(idx)
}

// ensureClean verifies the working tree carries no staged or unstaged
// changes relative to the current tree.
func (r *Repo) ensureClean() error {
	statuses, err := r.Status()
	if err != nil {
		return fmt.Errorf("check status: %w", err)
	}
	for _, s := range statuses {
		if s.Handling != HandlingUnchanged {
			return fmt.Errorf("working tree is not clean (%q has uncommitted changes)", s.Path)
		}
	}
	return nil
}

// trackedFiles is the set of paths in the current tree plus live index
// entries.
func (r *Repo) trackedFiles() map[string]struct{} {
	files := make(map[string]struct{})
	if head, err := r.headTreeEntries(); err == nil {
		for path := range head {
			files[path] = struct{}{}
		}
	}
	if idx, err := r.ReadIndex(); err == nil {
		for path, e := range idx.Entries {
			if !e.Deleted {
				files[path] = struct{}{}
			}
		}
	}
	return files
}

// removeEmptyParents prunes empty directories up to, but not including,
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}
