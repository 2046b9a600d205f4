package remote

import (
	"context"
	"testing"

	"github.com/holtvcs/holt/pkg/object"
)

func TestFetchIntoStore_FullGraph(t *testing.T) {
	_, serverStore, client := newTestServer(t)
	c1 := writeTestCommit(t, serverStore, "", "a.txt", "one")
	c2 := writeTestCommit(t, serverStore, c1, "a.txt", "two")

	local := object.NewMemStore()
	written, err := FetchIntoStore(context.Background(), client, local, []object.Hash{c2}, nil)
	if err != nil {
		t.Fatalf("FetchIntoStore: %v", err)
	}
	// Two commits, two trees, two blobs.
	if written != 6 {
		t.Errorf("written = %d, want 6", written)
	}
	if got := countReachable(t, local, c2); got != 6 {
		t.Errorf("reachable locally = %d, want 6", got)
	}

	// A repeat fetch transfers nothing new.
	written, err = FetchIntoStore(context.Background(), client, local, []object.Hash{c2}, []object.Hash{c2})
	if err != nil {
		t.Fatalf("second FetchIntoStore: %v", err)
	}
	if written != 0 {
		t.Errorf("repeat fetch wrote %d objects", written)
	}
}

func TestFetchIntoStore_DeltaWithHaves(t *testing.T) {
	_, serverStore, client := newTestServer(t)
	c1 := writeTestCommit(t, serverStore, "", "a.txt", "one")
	c2 := writeTestCommit(t, serverStore, c1, "a.txt", "two")

	// Local already carries the c1 subgraph.
	local := object.NewMemStore()
	if _, err := FetchIntoStore(context.Background(), client, local, []object.Hash{c1}, nil); err != nil {
		t.Fatalf("seed fetch: %v", err)
	}

	written, err := FetchIntoStore(context.Background(), client, local, []object.Hash{c2}, []object.Hash{c1})
	if err != nil {
		t.Fatalf("delta fetch: %v", err)
	}
	// Only the new commit, tree, and blob travel.
	if written != 3 {
		t.Errorf("delta fetch wrote %d objects, want 3", written)
	}
	if got := countReachable(t, local, c2); got != 6 {
		t.Errorf("reachable locally = %d, want full graph of 6", got)
	}
}

func TestFetchIntoStore_ClosureRepairsOverstatedHaves(t *testing.T) {
	_, serverStore, client := newTestServer(t)
	c1 := writeTestCommit(t, serverStore, "", "a.txt", "one")
	c2 := writeTestCommit(t, serverStore, c1, "a.txt", "two")

	// The have claim is wrong: the local store has nothing. The batch
	// response omits the c1 subgraph, and the closure walk must repair
	// the gap with point fetches.
	local := object.NewMemStore()
	written, err := FetchIntoStore(context.Background(), client, local, []object.Hash{c2}, []object.Hash{c1})
	if err != nil {
		t.Fatalf("FetchIntoStore: %v", err)
	}
	if written != 6 {
		t.Errorf("written = %d, want all 6 despite the overstated have", written)
	}
	if !local.Has(c1) {
		t.Error("parent commit missing after closure")
	}
}

func TestCollectObjectsForPush_StopSet(t *testing.T) {
	store := object.NewMemStore()
	c1 := writeTestCommit(t, store, "", "a.txt", "one")
	c2 := writeTestCommit(t, store, c1, "a.txt", "two")

	all, err := CollectObjectsForPush(store, []object.Hash{c2}, nil)
	if err != nil {
		t.Fatalf("CollectObjectsForPush: %v", err)
	}
	if len(all) != 6 {
		t.Errorf("full collection = %d objects, want 6", len(all))
	}

	delta, err := CollectObjectsForPush(store, []object.Hash{c2}, []object.Hash{c1})
	if err != nil {
		t.Fatalf("CollectObjectsForPush with stop set: %v", err)
	}
	if len(delta) != 3 {
		t.Errorf("delta collection = %d objects, want 3", len(delta))
	}
	for _, obj := range delta {
		if obj.Hash == c1 {
			t.Error("stop root itself was collected")
		}
	}
}

func TestReachableSet_IgnoresMissingRoots(t *testing.T) {
	store := object.NewMemStore()
	c1 := writeTestCommit(t, store, "", "a.txt", "one")

	set, err := ReachableSet(store, []object.Hash{c1, object.HashBytes([]byte("absent"))})
	if err != nil {
		t.Fatalf("ReachableSet: %v", err)
	}
	if len(set) != 3 {
		t.Errorf("reachable = %d, want 3", len(set))
	}
	if _, ok := set[c1]; !ok {
		t.Error("root commit missing from the set")
	}
}

func TestWriteVerifiedObject(t *testing.T) {
	store := object.NewMemStore()
	data := []byte("content")
	good := ObjectRecord{Hash: object.HashObject(object.TypeBlob, data), Type: object.TypeBlob, Data: data}

	n, err := writeVerifiedObject(store, good)
	if err != nil {
		t.Fatalf("writeVerifiedObject: %v", err)
	}
	if n != 1 {
		t.Errorf("written = %d, want 1", n)
	}

	// A second write of the same object counts zero.
	n, err = writeVerifiedObject(store, good)
	if err != nil {
		t.Fatalf("repeat writeVerifiedObject: %v", err)
	}
	if n != 0 {
		t.Errorf("repeat written = %d, want 0", n)
	}

	bad := ObjectRecord{Hash: object.HashBytes([]byte("lies")), Type: object.TypeBlob, Data: data}
	if _, err := writeVerifiedObject(store, bad); err == nil {
		t.Error("corrupted record accepted")
	}
	if _, err := writeVerifiedObject(store, ObjectRecord{Type: object.TypeBlob, Data: data}); err == nil {
		t.Error("record without a hash accepted")
	}
}
