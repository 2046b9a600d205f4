package object

import (
	"fmt"
)

// Store is a content-addressed object store. Implementations must be safe
// for use by a single repository handle; Write is idempotent for identical
// content.
type Store interface {
	// Has reports whether the store contains an object with the given hash.
	Has(h Hash) bool
	// Write stores an object and returns its content hash.
	Write(objType ObjectType, data []byte) (Hash, error)
	// Read retrieves an object by hash, returning its type and raw content.
	Read(h Hash) (ObjectType, []byte, error)
}

func readTyped(s Store, h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, fmt.Errorf("object %s: type %s, expected %s", h, objType, want)
	}
	return data, nil
}

// WriteBlob stores a blob and returns its hash.
func WriteBlob(s Store, b *Blob) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob retrieves a blob by hash.
func ReadBlob(s Store, h Hash) (*Blob, error) {
	data, err := readTyped(s, h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(data)
}

// WriteTree stores a tree and returns its hash.
func WriteTree(s Store, tr *TreeObj) (Hash, error) {
	return s.Write(TypeTree, MarshalTree(tr))
}

// ReadTree retrieves a tree by hash.
func ReadTree(s Store, h Hash) (*TreeObj, error) {
	data, err := readTyped(s, h, TypeTree)
	if err != nil {
		return nil, err
	}
	return UnmarshalTree(data)
}

// WriteCommit stores a commit and returns its hash.
func WriteCommit(s Store, c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit retrieves a commit by hash.
func ReadCommit(s Store, h Hash) (*CommitObj, error) {
	data, err := readTyped(s, h, TypeCommit)
	if err != nil {
		return nil, err
	}
	return UnmarshalCommit(data)
}

// ReferencedHashes returns the hashes directly referenced by the object
// with the given type and content. Blobs reference nothing; trees reference
// blobs and subtrees; commits reference their tree and parents.
func ReferencedHashes(objType ObjectType, data []byte) ([]Hash, error) {
	switch objType {
	case TypeBlob:
		return nil, nil
	case TypeTree:
		tree, err := UnmarshalTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			if e.IsDir {
				refs = append(refs, e.SubtreeHash)
			} else {
				refs = append(refs, e.BlobHash)
			}
		}
		return refs, nil
	case TypeCommit:
		commit, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, 1+len(commit.Parents))
		refs = append(refs, commit.TreeHash)
		refs = append(refs, commit.Parents...)
		return refs, nil
	default:
		return nil, fmt.Errorf("unsupported object type %q", objType)
	}
}

// ParseObjectType validates a wire-level object type string.
func ParseObjectType(raw string) (ObjectType, error) {
	switch ObjectType(raw) {
	case TypeBlob, TypeTree, TypeCommit:
		return ObjectType(raw), nil
	default:
		return "", fmt.Errorf("unsupported object type %q", raw)
	}
}
