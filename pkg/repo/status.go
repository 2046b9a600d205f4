package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/holtvcs/holt/pkg/object"
)

// Handling says where a path's pending change lives.
type Handling int

const (
	HandlingUnchanged Handling = iota // identical in tree, index, and working copy
	HandlingUntracked                 // known only to the working directory
	HandlingUnstaged                  // differs between working copy and index
	HandlingStaged                    // differs between index and tree
)

func (h Handling) String() string {
	switch h {
	case HandlingUnchanged:
		return "unchanged"
	case HandlingUntracked:
		return "untracked"
	case HandlingUnstaged:
		return "unstaged"
	case HandlingStaged:
		return "staged"
	default:
		return fmt.Sprintf("Handling(%d)", int(h))
	}
}

// Change names the kind of pending change.
type Change int

const (
	ChangeUnchanged Change = iota
	ChangeUntracked
	ChangeModified
	ChangeNew
	ChangeDeleted
)

func (c Change) String() string {
	switch c {
	case ChangeUnchanged:
		return "unchanged"
	case ChangeUntracked:
		return "untracked"
	case ChangeModified:
		return "modified"
	case ChangeNew:
		return "new file"
	case ChangeDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("Change(%d)", int(c))
	}
}

// FileStatus is the derived, per-path classification returned by Status.
// It is recomputed on every query and never persisted.
type FileStatus struct {
	Path     string
	Handling Handling
	Change   Change
}

// pathDiff is the per-comparison result of the three-way diff: how one
// view of a path relates to the view beneath it.
type pathDiff int

const (
	diffSame pathDiff = iota
	diffAdded
	diffModified
	diffDeleted
	diffAbsent // path does not exist in either view
)

type headTreeState struct {
	BlobHash object.Hash
	Mode     string
}

// Status computes the working tree status: one FileStatus per path in the
// union of the current tree, the index, and the working directory,
// ordered by path. Tracked paths identical in all three views are
// reported as unchanged; a missing HEAD commit compares against an empty
// tree. Status never mutates repository state.
func (r *Repo) Status() ([]FileStatus, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	head, err := r.headTreeEntries()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	workFiles, err := r.walkWorktree()
	if err != nil {
		return nil, fmt.Errorf("status: walk: %w", err)
	}

	union := make(map[string]struct{}, len(head)+len(idx.Entries)+len(workFiles))
	for p := range head {
		union[p] = struct{}{}
	}
	for p := range idx.Entries {
		union[p] = struct{}{}
	}
	for p := range workFiles {
		union[p] = struct{}{}
	}

	statuses := make([]FileStatus, 0, len(union))
	for _, p := range sortedPaths(union) {
		hs, inHead := head[p]
		entry := idx.Entries[p]
		info, onDisk := workFiles[p]

		indexDiff := classifyIndexDiff(entry, hs, inHead)
		workDiff, err := r.classifyWorkDiff(p, entry, info, onDisk)
		if err != nil {
			return nil, fmt.Errorf("status: %q: %w", p, err)
		}

		fs, report := collapseDiffs(p, indexDiff, workDiff)
		if report {
			statuses = append(statuses, fs)
		}
	}
	return statuses, nil
}

// classifyIndexDiff compares a path's index entry against the current
// tree. A tracked path with no live entry counts as a staged deletion.
func classifyIndexDiff(entry *IndexEntry, hs headTreeState, inHead bool) pathDiff {
	switch {
	case entry == nil && !inHead:
		return diffAbsent
	case entry == nil || entry.Deleted:
		return diffDeleted
	case !inHead:
		return diffAdded
	case entry.BlobHash != hs.BlobHash || entry.Mode != hs.Mode:
		return diffModified
	default:
		return diffSame
	}
}

// classifyWorkDiff compares the working copy of a path against its index
// entry, using the stat cache and xxh3 fingerprint before falling back to
// a content hash.
func (r *Repo) classifyWorkDiff(rel string, entry *IndexEntry, info os.FileInfo, onDisk bool) (pathDiff, error) {
	live := entry != nil && !entry.Deleted
	switch {
	case !live && !onDisk:
		return diffAbsent, nil
	case !live:
		return diffAdded, nil
	case !onDisk:
		return diffDeleted, nil
	}

	if indexStatMatches(entry, info) {
		return diffSame, nil
	}

	absPath := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	hash, fingerprint, err := worktreeFileHash(absPath, info.Size())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Deleted between the walk and the hash.
			return diffDeleted, nil
		}
		return diffAbsent, err
	}

	if entry.Fingerprint != 0 && fingerprint == entry.Fingerprint && modeFromFileInfo(info) == entry.Mode {
		return diffSame, nil
	}
	if hash == entry.BlobHash && modeFromFileInfo(info) == entry.Mode {
		return diffSame, nil
	}
	return diffModified, nil
}

// collapseDiffs folds the two-level diff into the public vocabulary. When
// a path carries both a staged and an unstaged change, the staged side
// takes precedence in the report.
func collapseDiffs(path string, indexDiff, workDiff pathDiff) (FileStatus, bool) {
	switch indexDiff {
	case diffAdded:
		return FileStatus{Path: path, Handling: HandlingStaged, Change: ChangeNew}, true
	case diffModified:
		return FileStatus{Path: path, Handling: HandlingStaged, Change: ChangeModified}, true
	case diffDeleted:
		return FileStatus{Path: path, Handling: HandlingStaged, Change: ChangeDeleted}, true
	case diffAbsent:
		// Known only to the working directory.
		if workDiff == diffAbsent {
			return FileStatus{}, false
		}
		return FileStatus{Path: path, Handling: HandlingUntracked, Change: ChangeUntracked}, true
	}

	// Index matches the tree; the working copy decides.
	switch workDiff {
	case diffModified:
		return FileStatus{Path: path, Handling: HandlingUnstaged, Change: ChangeModified}, true
	case diffDeleted:
		// A working-directory deletion that was never staged: the path is
		// still tracked but missing on disk, reported as an untracked
		// divergence rather than silently skipped.
		return FileStatus{Path: path, Handling: HandlingUntracked, Change: ChangeUntracked}, true
	default:
		return FileStatus{Path: path, Handling: HandlingUnchanged, Change: ChangeUnchanged}, true
	}
}

const statusRacyCleanWindow = 2 * time.Second

// indexStatMatches reports whether the stat cache proves the working copy
// still matches the index entry. Recent modification times are never
// trusted: same-size edits inside the mtime resolution could slip past.
func indexStatMatches(entry *IndexEntry, info os.FileInfo) bool {
	if entry.Mode != modeFromFileInfo(info) {
		return false
	}
	if entry.Size != info.Size() {
		return false
	}
	if entry.ModTime == 0 {
		return false
	}
	mod := info.ModTime()
	if mod.Nanosecond() == 0 {
		// Coarse (second-level) filesystem mtimes cannot be trusted.
		return false
	}
	now := time.Now()
	if mod.After(now) || now.Sub(mod) < statusRacyCleanWindow {
		return false
	}
	return entry.ModTime == mod.UnixNano()
}

// headTreeEntries reads the HEAD commit's tree flattened into path →
// {blob hash, mode}. A repository with no commits yet yields an empty
// map; unreadable objects behind an existing ref report
// ErrRepositoryCorrupt.
func (r *Repo) headTreeEntries() (map[string]headTreeState, error) {
	result := make(map[string]headTreeState)

	headHash, err := r.ResolveRef("HEAD")
	if err != nil || headHash == "" {
		// No commits yet.
		return result, nil
	}

	commit, err := object.ReadCommit(r.Store, headHash)
	if err != nil {
		return nil, fmt.Errorf("%w: head commit %s: %v", ErrRepositoryCorrupt, headHash, err)
	}

	if err := r.flattenTreeInto(commit.TreeHash, "", result); err != nil {
		return nil, err
	}
	return result, nil
}

// flattenTreeInto recursively walks a tree object and populates entries
// with path → blob state mappings.
func (r *Repo) flattenTreeInto(treeHash object.Hash, prefix string, entries map[string]headTreeState) error {
	tree, err := object.ReadTree(r.Store, treeHash)
	if err != nil {
		return fmt.Errorf("%w: tree %s: %v", ErrRepositoryCorrupt, treeHash, err)
	}

	for _, te := range tree.Entries {
		path := te.Name
		if prefix != "" {
			path = prefix + "/" + te.Name
		}

		if te.IsDir {
			if err := r.flattenTreeInto(te.SubtreeHash, path, entries); err != nil {
				return err
			}
			continue
		}
		entries[path] = headTreeState{BlobHash: te.BlobHash, Mode: te.Mode}
	}
	return nil
}
