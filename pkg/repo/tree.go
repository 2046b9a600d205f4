package repo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/holtvcs/holt/pkg/object"
)

// TreeFileEntry represents a single file in a flattened tree.
type TreeFileEntry struct {
	Path     string
	BlobHash object.Hash
	Mode     string
}

// BuildTree materializes the index's live entries into a hierarchical tree,
// writing tree objects to the store and returning the root hash. Staged
// deletions are omitted, which is what removes them from the commit.
func (r *Repo) BuildTree(idx *Index) (object.Hash, error) {
	return r.buildTreeDir(idx, "")
}

// buildTreeDir builds the tree object for one directory prefix and writes
// it to the store, returning its hash.
func (r *Repo) buildTreeDir(idx *Index, prefix string) (object.Hash, error) {
	files := make(map[string]*IndexEntry) // name -> entry
	subdirs := make(map[string]struct{})  // immediate child dir names

	for p, entry := range idx.Entries {
		if entry.Deleted {
			continue
		}

		var rel string
		if prefix == "" {
			rel = p
		} else {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}

		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			files[rel] = entry
		} else {
			subdirs[rel[:slash]] = struct{}{}
		}
	}

	names := make([]string, 0, len(files)+len(subdirs))
	for name := range files {
		names = append(names, name)
	}
	for name := range subdirs {
		// A name cannot be both a file and a directory.
		if _, isFile := files[name]; !isFile {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var entries []object.TreeEntry
	for _, name := range names {
		if entry, isFile := files[name]; isFile {
			entries = append(entries, object.TreeEntry{
				Name:     name,
				Mode:     entry.Mode,
				BlobHash: entry.BlobHash,
			})
			continue
		}

		childPrefix := name
		if prefix != "" {
			childPrefix = prefix + "/" + name
		}
		subHash, err := r.buildTreeDir(idx, childPrefix)
		if err != nil {
			return "", fmt.Errorf("build tree %q: %w", childPrefix, err)
		}
		entries = append(entries, object.TreeEntry{
			Name:        name,
			IsDir:       true,
			Mode:        object.TreeModeDir,
			SubtreeHash: subHash,
		})
	}

	h, err := object.WriteTree(r.Store, &object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// FlattenTree walks a tree object recursively, returning all file entries
// with their full slash-separated paths.
func (r *Repo) FlattenTree(h object.Hash) ([]TreeFileEntry, error) {
	return r.flattenTreeFiles(h, "")
}

func (r *Repo) flattenTreeFiles(h object.Hash, prefix string) ([]TreeFileEntry, error) {
	tree, err := object.ReadTree(r.Store, h)
	if err != nil {
		return nil, fmt.Errorf("%w: tree %s: %v", ErrRepositoryCorrupt, h, err)
	}

	var result []TreeFileEntry
	for _, te := range tree.Entries {
		path := te.Name
		if prefix != "" {
			path = prefix + "/" + te.Name
		}
		if te.IsDir {
			sub, err := r.flattenTreeFiles(te.SubtreeHash, path)
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
			continue
		}
		result = append(result, TreeFileEntry{Path: path, BlobHash: te.BlobHash, Mode: te.Mode})
	}
	return result, nil
}
