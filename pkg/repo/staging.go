package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/holtvcs/holt/pkg/object"
	"github.com/zeebo/xxh3"
)

// IndexEntry records the staged state of a single path. A Deleted entry is
// a tombstone: the path is tracked in the current tree and its removal is
// staged for the next commit.
type IndexEntry struct {
	Path        string      `json:"path"`
	BlobHash    object.Hash `json:"blob_hash,omitempty"`
	Mode        string      `json:"mode,omitempty"`
	Deleted     bool        `json:"deleted,omitempty"`
	ModTime     int64       `json:"mod_time,omitempty"` // unix nanoseconds
	Size        int64       `json:"size,omitempty"`
	Fingerprint uint64      `json:"fingerprint,omitempty"` // xxh3 of file content
}

// Index holds the full staging area for a repository. Tracked paths keep an
// entry between commits; an entry whose hash differs from the current tree
// (or a tombstone) is a staged change.
type Index struct {
	Entries map[string]*IndexEntry `json:"entries"`
}

func (r *Repo) indexPath() string {
	return filepath.Join(r.HoltDir, "index")
}

func (r *Repo) hasIndexFile() bool {
	_, err := os.Stat(r.indexPath())
	return err == nil
}

// ReadIndex loads the staging area from .holt/index. A missing file yields
// an empty index.
func (r *Repo) ReadIndex() (*Index, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Index{Entries: make(map[string]*IndexEntry)}, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("read index: %w: %v", ErrRepositoryCorrupt, err)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]*IndexEntry)
	}
	return &idx, nil
}

// WriteIndex atomically writes the staging area to .holt/index.
func (r *Repo) WriteIndex(idx *Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("write index: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(r.HoltDir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write index: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write index: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: close: %w", err)
	}

	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write index: rename: %w", err)
	}
	return nil
}

// CurrentEntries returns a read-only snapshot of the index, keyed by
// repo-relative path.
func (r *Repo) CurrentEntries() (map[string]IndexEntry, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	out := make(map[string]IndexEntry, len(idx.Entries))
	for p, e := range idx.Entries {
		out[p] = *e
	}
	return out, nil
}

// Stage stages each given path: existing files get their content hashed
// and recorded, tracked-but-missing files get a staged deletion. Paths may
// be absolute (inside the root) or repo-relative. Failures are collected
// per path and returned alongside partial success; only an index or store
// failure aborts the call.
//
// Staging is idempotent: re-staging an unchanged path leaves its entry
// identical.
func (r *Repo) Stage(paths []string) ([]StageError, error) {
	release, err := r.lockRepo()
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	defer release()

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	head, err := r.headTreeEntries()
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}

	var failed []StageError
	for _, p := range paths {
		rel, err := r.repoRelPath(p)
		if err != nil {
			failed = append(failed, StageError{Path: p, Err: err})
			continue
		}
		if errs := r.stagePath(idx, head, rel); len(errs) > 0 {
			failed = append(failed, errs...)
		}
	}

	if err := r.WriteIndex(idx); err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	return failed, nil
}

// stagePath stages one repo-relative path into idx. Directories are staged
// recursively.
func (r *Repo) stagePath(idx *Index, head map[string]headTreeState, rel string) []StageError {
	absPath := filepath.Join(r.RootDir, filepath.FromSlash(rel))

	info, err := os.Lstat(absPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return []StageError{{Path: rel, Err: err}}
		}
		// Missing on disk: a tracked path becomes a staged deletion,
		// anything else is an error.
		if r.isTracked(idx, head, rel) {
			r.stageDeletion(idx, head, rel)
			return nil
		}
		return []StageError{{Path: rel, Err: err}}
	}

	if info.IsDir() {
		var failed []StageError
		ic := NewIgnoreChecker(r.RootDir)
		walkErr := filepath.WalkDir(absPath, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			sub, err := filepath.Rel(r.RootDir, path)
			if err != nil {
				return err
			}
			sub = filepath.ToSlash(sub)
			if ic.IsIgnored(sub) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if errs := r.stagePath(idx, head, sub); len(errs) > 0 {
				failed = append(failed, errs...)
			}
			return nil
		})
		if walkErr != nil {
			failed = append(failed, StageError{Path: rel, Err: walkErr})
		}
		return failed
	}

	if !info.Mode().IsRegular() {
		return []StageError{{Path: rel, Err: fmt.Errorf("not a regular file")}}
	}

	if err := r.stageFile(idx, rel, absPath, info); err != nil {
		return []StageError{{Path: rel, Err: err}}
	}
	return nil
}

// stageFile hashes the working copy of rel and records an index entry,
// writing the blob to the store if it is not already present.
func (r *Repo) stageFile(idx *Index, rel, absPath string, info os.FileInfo) error {
	if err := object.ValidateEntryName(rel); err != nil {
		return err
	}
	hash, fingerprint, err := worktreeFileHash(absPath, info.Size())
	if err != nil {
		return err
	}

	if !r.Store.Has(hash) {
		content, err := os.ReadFile(absPath)
		if err != nil {
			return err
		}
		written, err := object.WriteBlob(r.Store, &object.Blob{Data: content})
		if err != nil {
			return err
		}
		if written != hash {
			// The file changed between hashing and reading. The bytes we
			// stored are authoritative; refresh the entry from them.
			hash = written
			fingerprint = 0
			if int64(len(content)) < mmapHashThreshold {
				fingerprint = xxh3.Hash(content)
			}
			if cur, statErr := os.Lstat(absPath); statErr == nil {
				info = cur
			}
		}
	}

	idx.Entries[rel] = &IndexEntry{
		Path:        rel,
		BlobHash:    hash,
		Mode:        modeFromFileInfo(info),
		ModTime:     info.ModTime().UnixNano(),
		Size:        info.Size(),
		Fingerprint: fingerprint,
	}
	return nil
}

// stageDeletion records the removal of rel. A path present in the current
// tree gets a tombstone; a path staged but never committed is simply
// dropped from the index.
func (r *Repo) stageDeletion(idx *Index, head map[string]headTreeState, rel string) {
	if _, inHead := head[rel]; inHead {
		idx.Entries[rel] = &IndexEntry{Path: rel, Deleted: true}
		return
	}
	delete(idx.Entries, rel)
}

func (r *Repo) isTracked(idx *Index, head map[string]headTreeState, rel string) bool {
	if _, ok := head[rel]; ok {
		return true
	}
	e, ok := idx.Entries[rel]
	return ok && !e.Deleted
}

// StageAll stages every difference between the working directory and the
// current tracked tree: additions, modifications, and deletions,
// recursively.
func (r *Repo) StageAll() error {
	release, err := r.lockRepo()
	if err != nil {
		return fmt.Errorf("stage all: %w", err)
	}
	defer release()

	idx, err := r.ReadIndex()
	if err != nil {
		return fmt.Errorf("stage all: %w", err)
	}
	head, err := r.headTreeEntries()
	if err != nil {
		return fmt.Errorf("stage all: %w", err)
	}

	workFiles, err := r.walkWorktree()
	if err != nil {
		return fmt.Errorf("stage all: %w", err)
	}

	for rel, info := range workFiles {
		if err := r.stageFile(idx, rel, filepath.Join(r.RootDir, filepath.FromSlash(rel)), info); err != nil {
			return fmt.Errorf("stage all: %q: %w", rel, err)
		}
	}

	// Tracked paths gone from disk become staged deletions.
	for rel := range trackedPaths(idx, head) {
		if _, onDisk := workFiles[rel]; !onDisk {
			r.stageDeletion(idx, head, rel)
		}
	}

	if err := r.WriteIndex(idx); err != nil {
		return fmt.Errorf("stage all: %w", err)
	}
	return nil
}

// Remove stages a deletion for each given path without touching the
// working copy. Per-path failures are collected like Stage.
func (r *Repo) Remove(paths []string) ([]StageError, error) {
	release, err := r.lockRepo()
	if err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}
	defer release()

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}
	head, err := r.headTreeEntries()
	if err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}

	var failed []StageError
	for _, p := range paths {
		rel, err := r.repoRelPath(p)
		if err != nil {
			failed = append(failed, StageError{Path: p, Err: err})
			continue
		}
		if !r.isTracked(idx, head, rel) {
			failed = append(failed, StageError{Path: rel, Err: fmt.Errorf("not tracked")})
			continue
		}
		r.stageDeletion(idx, head, rel)
	}

	if err := r.WriteIndex(idx); err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}
	return failed, nil
}

// RemoveDirectory stages a deletion for every tracked file under dir,
// recursively. Unrelated paths are untouched.
func (r *Repo) RemoveDirectory(dir string) error {
	rel, err := r.repoRelPath(dir)
	if err != nil {
		return fmt.Errorf("remove directory: %w", err)
	}

	release, err := r.lockRepo()
	if err != nil {
		return fmt.Errorf("remove directory: %w", err)
	}
	defer release()

	idx, err := r.ReadIndex()
	if err != nil {
		return fmt.Errorf("remove directory: %w", err)
	}
	head, err := r.headTreeEntries()
	if err != nil {
		return fmt.Errorf("remove directory: %w", err)
	}

	prefix := rel + "/"
	for p := range trackedPaths(idx, head) {
		if p == rel || strings.HasPrefix(p, prefix) {
			r.stageDeletion(idx, head, p)
		}
	}

	if err := r.WriteIndex(idx); err != nil {
		return fmt.Errorf("remove directory: %w", err)
	}
	return nil
}

// trackedPaths is the union of tree paths and live index entries.
func trackedPaths(idx *Index, head map[string]headTreeState) map[string]struct{} {
	out := make(map[string]struct{}, len(head)+len(idx.Entries))
	for p := range head {
		out[p] = struct{}{}
	}
	for p, e := range idx.Entries {
		if !e.Deleted {
			out[p] = struct{}{}
		}
	}
	return out
}

// walkWorktree collects every non-ignored regular file below the root,
// keyed by repo-relative slash path.
func (r *Repo) walkWorktree() (map[string]os.FileInfo, error) {
	ic := NewIgnoreChecker(r.RootDir)
	out := make(map[string]os.FileInfo)

	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if ic.IsIgnored(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		out[rel] = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// repoRelPath normalizes p to a slash-separated path relative to the
// repository root. Absolute paths are accepted only when they resolve
// inside the root; anything escaping the root reports
// ErrPathOutsideRepository.
func (r *Repo) repoRelPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathOutsideRepository)
	}

	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrPathOutsideRepository, p)
		}
		p = rel
	}

	p = filepath.ToSlash(filepath.Clean(p))
	if p == "." {
		return "", fmt.Errorf("%w: repository root is not a stageable path", ErrPathOutsideRepository)
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRepository, p)
	}
	return p, nil
}

// sortedPaths returns the keys of a path-keyed map in lexical order.
func sortedPaths[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
