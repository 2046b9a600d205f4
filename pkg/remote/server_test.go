package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/holtvcs/holt/pkg/object"
)

func TestServer_BatchRefUpdatesAreAtomic(t *testing.T) {
	srv, store, client := newTestServer(t)
	c1 := writeTestCommit(t, store, "", "a.txt", "one")
	c2 := writeTestCommit(t, store, c1, "a.txt", "two")
	srv.SetRef("refs/heads/main", c1)

	// The second update in the batch conflicts; the first must not be
	// applied either.
	empty := object.Hash("")
	_, err := client.UpdateRefs(context.Background(), []RefUpdate{
		{Name: "refs/heads/feature", Old: &empty, New: &c2},
		{Name: "refs/heads/main", Old: &c2, New: &c2},
	})
	if !errors.Is(err, ErrRefConflict) {
		t.Fatalf("batch with conflict = %v, want ErrRefConflict", err)
	}

	refs := srv.Refs()
	if _, ok := refs["refs/heads/feature"]; ok {
		t.Error("conflicting batch partially applied")
	}
	if refs["refs/heads/main"] != c1 {
		t.Errorf("main = %s, want untouched %s", refs["refs/heads/main"], c1)
	}
}

func TestServer_CreateOnlyAndDelete(t *testing.T) {
	srv, store, client := newTestServer(t)
	c1 := writeTestCommit(t, store, "", "a.txt", "one")

	// Create-only succeeds once.
	empty := object.Hash("")
	if _, err := client.UpdateRefs(context.Background(), []RefUpdate{
		{Name: "refs/heads/main", Old: &empty, New: &c1},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := client.UpdateRefs(context.Background(), []RefUpdate{
		{Name: "refs/heads/main", Old: &empty, New: &c1},
	}); !errors.Is(err, ErrRefConflict) {
		t.Fatalf("second create = %v, want ErrRefConflict", err)
	}

	// A nil new hash deletes the ref.
	if _, err := client.UpdateRefs(context.Background(), []RefUpdate{
		{Name: "refs/heads/main", Old: &c1, New: nil},
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := srv.Refs()["refs/heads/main"]; ok {
		t.Error("ref survived deletion")
	}
}

func TestServer_RejectsRefToMissingObject(t *testing.T) {
	_, _, client := newTestServer(t)
	missing := object.HashBytes([]byte("never uploaded"))
	if _, err := client.UpdateRefs(context.Background(), []RefUpdate{
		{Name: "refs/heads/main", New: &missing},
	}); err == nil {
		t.Fatal("ref to an absent object accepted")
	}
}

func TestServer_ListRefs(t *testing.T) {
	srv, store, client := newTestServer(t)
	c1 := writeTestCommit(t, store, "", "a.txt", "one")
	srv.SetRef("refs/heads/main", c1)
	srv.SetRef("refs/heads/dev", c1)

	refs, err := client.ListRefs(context.Background())
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if len(refs) != 2 || refs["refs/heads/main"] != c1 || refs["refs/heads/dev"] != c1 {
		t.Errorf("refs = %v", refs)
	}
}

func TestServer_BatchObjectsTruncation(t *testing.T) {
	_, store, client := newTestServer(t)
	c1 := writeTestCommit(t, store, "", "a.txt", "one")
	c2 := writeTestCommit(t, store, c1, "a.txt", "two")

	objects, truncated, err := client.BatchObjects(context.Background(), []object.Hash{c2}, nil, 2)
	if err != nil {
		t.Fatalf("BatchObjects: %v", err)
	}
	if !truncated {
		t.Fatal("undersized batch cap did not truncate")
	}
	if len(objects) != 2 {
		t.Errorf("objects = %d, want capped at 2", len(objects))
	}

	// Without a cap the whole graph arrives in one round.
	objects, truncated, err = client.BatchObjects(context.Background(), []object.Hash{c2}, nil, 0)
	if err != nil {
		t.Fatalf("BatchObjects: %v", err)
	}
	if truncated {
		t.Error("uncapped batch reported truncation")
	}
	if len(objects) != 6 {
		t.Errorf("objects = %d, want 6", len(objects))
	}
}

func TestServer_GetObjectCarriesType(t *testing.T) {
	_, store, client := newTestServer(t)
	c1 := writeTestCommit(t, store, "", "a.txt", "one")

	rec, err := client.GetObject(context.Background(), c1)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if rec.Type != object.TypeCommit {
		t.Errorf("type = %s, want commit", rec.Type)
	}
	if object.HashObject(rec.Type, rec.Data) != c1 {
		t.Error("object data does not hash back to its name")
	}
}
