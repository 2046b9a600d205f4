package remote

import (
	"net/http/httptest"
	"testing"

	"github.com/holtvcs/holt/pkg/object"
)

// newTestServer starts a protocol server backed by an in-memory store.
func newTestServer(t *testing.T) (*Server, *object.MemStore, *Client) {
	t.Helper()
	store := object.NewMemStore()
	srv := NewServer(store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := NewClient(ts.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return srv, store, client
}

// writeTestCommit stores a blob, a single-entry tree, and a commit built
// on them, returning the commit hash.
func writeTestCommit(t *testing.T, store object.Store, parent object.Hash, name, content string) object.Hash {
	t.Helper()
	blobHash, err := object.WriteBlob(store, &object.Blob{Data: []byte(content)})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	treeHash, err := object.WriteTree(store, &object.TreeObj{Entries: []object.TreeEntry{
		{Name: name, Mode: object.TreeModeFile, BlobHash: blobHash},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	c := &object.CommitObj{
		TreeHash:  treeHash,
		Author:    "test <test@example.com>",
		Timestamp: 1724630400,
		Message:   "commit " + content,
	}
	if parent != "" {
		c.Parents = []object.Hash{parent}
	}
	commitHash, err := object.WriteCommit(store, c)
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	return commitHash
}

// countReachable walks the graph from root counting stored objects.
func countReachable(t *testing.T, store object.Store, root object.Hash) int {
	t.Helper()
	set, err := ReachableSet(store, []object.Hash{root})
	if err != nil {
		t.Fatalf("ReachableSet: %v", err)
	}
	return len(set)
}
