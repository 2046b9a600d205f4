package object

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarshalTree_Deterministic(t *testing.T) {
	blobA := HashBytes([]byte("a"))
	blobB := HashBytes([]byte("b"))
	sub := HashBytes([]byte("subtree"))

	forward := &TreeObj{Entries: []TreeEntry{
		{Name: "alpha.txt", Mode: TreeModeFile, BlobHash: blobA},
		{Name: "beta", IsDir: true, SubtreeHash: sub},
		{Name: "gamma.sh", Mode: TreeModeExecutable, BlobHash: blobB},
	}}
	backward := &TreeObj{Entries: []TreeEntry{
		{Name: "gamma.sh", Mode: TreeModeExecutable, BlobHash: blobB},
		{Name: "beta", IsDir: true, SubtreeHash: sub},
		{Name: "alpha.txt", Mode: TreeModeFile, BlobHash: blobA},
	}}

	if !bytes.Equal(MarshalTree(forward), MarshalTree(backward)) {
		t.Fatal("entry order changed the serialized tree")
	}
	if HashObject(TypeTree, MarshalTree(forward)) != HashObject(TypeTree, MarshalTree(backward)) {
		t.Fatal("entry order changed the tree hash")
	}
}

func TestTree_RoundTrip(t *testing.T) {
	orig := &TreeObj{Entries: []TreeEntry{
		{Name: "dir", IsDir: true, SubtreeHash: HashBytes([]byte("d"))},
		{Name: "file.txt", Mode: TreeModeFile, BlobHash: HashBytes([]byte("f"))},
		{Name: "run.sh", Mode: TreeModeExecutable, BlobHash: HashBytes([]byte("r"))},
	}}

	got, err := UnmarshalTree(MarshalTree(orig))
	if err != nil {
		t.Fatalf("UnmarshalTree: %v", err)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(got.Entries))
	}
	if !got.Entries[0].IsDir || got.Entries[0].Mode != TreeModeDir {
		t.Errorf("dir entry = %+v", got.Entries[0])
	}
	if got.Entries[1].BlobHash != orig.Entries[1].BlobHash || got.Entries[1].Mode != TreeModeFile {
		t.Errorf("file entry = %+v", got.Entries[1])
	}
	if got.Entries[2].Mode != TreeModeExecutable {
		t.Errorf("executable entry mode = %q", got.Entries[2].Mode)
	}
}

func TestUnmarshalTree_Empty(t *testing.T) {
	tr, err := UnmarshalTree(nil)
	if err != nil {
		t.Fatalf("UnmarshalTree(nil): %v", err)
	}
	if len(tr.Entries) != 0 {
		t.Errorf("entries = %v, want none", tr.Entries)
	}
}

func TestUnmarshalTree_Malformed(t *testing.T) {
	if _, err := UnmarshalTree([]byte("only two\n")); err == nil {
		t.Error("short entry accepted")
	}
	if _, err := UnmarshalTree([]byte("777777 - - name\n")); err == nil {
		t.Error("unknown mode accepted")
	}
	if _, err := UnmarshalTree([]byte("100644 - - \n")); err == nil {
		t.Error("empty name accepted")
	}
}

func TestTree_NamesWithSpacesRoundTrip(t *testing.T) {
	orig := &TreeObj{Entries: []TreeEntry{
		{Name: "my file.txt", Mode: TreeModeFile, BlobHash: HashBytes([]byte("f"))},
		{Name: "with  two  spaces", Mode: TreeModeFile, BlobHash: HashBytes([]byte("g"))},
		{Name: "a dir", IsDir: true, SubtreeHash: HashBytes([]byte("d"))},
	}}

	got, err := UnmarshalTree(MarshalTree(orig))
	if err != nil {
		t.Fatalf("UnmarshalTree: %v", err)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(got.Entries))
	}
	// Entries come back sorted by name.
	if got.Entries[0].Name != "a dir" || !got.Entries[0].IsDir {
		t.Errorf("dir entry = %+v", got.Entries[0])
	}
	if got.Entries[1].Name != "my file.txt" || got.Entries[1].BlobHash != orig.Entries[0].BlobHash {
		t.Errorf("spaced file entry = %+v", got.Entries[1])
	}
	if got.Entries[2].Name != "with  two  spaces" {
		t.Errorf("name = %q, consecutive spaces lost", got.Entries[2].Name)
	}
}

func TestValidateEntryName(t *testing.T) {
	if err := ValidateEntryName("my file.txt"); err != nil {
		t.Errorf("spaced name rejected: %v", err)
	}
	for _, bad := range []string{"", "a\nb", "a\rb"} {
		if err := ValidateEntryName(bad); err == nil {
			t.Errorf("ValidateEntryName(%q) accepted", bad)
		}
	}
}

func TestCommit_RoundTrip(t *testing.T) {
	orig := &CommitObj{
		TreeHash:  HashBytes([]byte("tree")),
		Parents:   []Hash{HashBytes([]byte("parent"))},
		Author:    "Ada Lovelace <ada@example.com>",
		Timestamp: 1724630400,
		Signature: "sshsig-v1:ssh-ed25519:AAAA:BBBB",
		Message:   "subject line\n\nbody with\nmultiple lines",
	}

	got, err := UnmarshalCommit(MarshalCommit(orig))
	if err != nil {
		t.Fatalf("UnmarshalCommit: %v", err)
	}
	if got.TreeHash != orig.TreeHash {
		t.Errorf("tree = %s", got.TreeHash)
	}
	if len(got.Parents) != 1 || got.Parents[0] != orig.Parents[0] {
		t.Errorf("parents = %v", got.Parents)
	}
	if got.Author != orig.Author || got.Timestamp != orig.Timestamp {
		t.Errorf("author/timestamp = %q/%d", got.Author, got.Timestamp)
	}
	if got.Signature != orig.Signature {
		t.Errorf("signature = %q", got.Signature)
	}
	if got.Message != orig.Message {
		t.Errorf("message = %q", got.Message)
	}
}

func TestCommit_RootHasNoParents(t *testing.T) {
	root := &CommitObj{
		TreeHash:  HashBytes([]byte("tree")),
		Author:    "a <a@b>",
		Timestamp: 1,
		Message:   "root",
	}
	got, err := UnmarshalCommit(MarshalCommit(root))
	if err != nil {
		t.Fatalf("UnmarshalCommit: %v", err)
	}
	if len(got.Parents) != 0 {
		t.Errorf("parents = %v, want none", got.Parents)
	}
}

func TestCommitSigningPayload_ExcludesSignature(t *testing.T) {
	signed := &CommitObj{
		TreeHash:  HashBytes([]byte("tree")),
		Author:    "a <a@b>",
		Timestamp: 7,
		Signature: "sig-material",
		Message:   "m",
	}
	unsigned := *signed
	unsigned.Signature = ""

	payload := CommitSigningPayload(signed)
	if strings.Contains(string(payload), "sig-material") {
		t.Error("payload contains the signature")
	}
	if !bytes.Equal(payload, MarshalCommit(&unsigned)) {
		t.Error("payload differs from the unsigned serialization")
	}
	// Computing the payload does not modify the commit.
	if signed.Signature != "sig-material" {
		t.Error("CommitSigningPayload mutated its argument")
	}
}

func TestReferencedHashes(t *testing.T) {
	blobRefs, err := ReferencedHashes(TypeBlob, []byte("data"))
	if err != nil || len(blobRefs) != 0 {
		t.Errorf("blob refs = %v, %v", blobRefs, err)
	}

	tr := &TreeObj{Entries: []TreeEntry{
		{Name: "d", IsDir: true, SubtreeHash: HashBytes([]byte("sub"))},
		{Name: "f", Mode: TreeModeFile, BlobHash: HashBytes([]byte("blob"))},
	}}
	treeRefs, err := ReferencedHashes(TypeTree, MarshalTree(tr))
	if err != nil {
		t.Fatalf("tree refs: %v", err)
	}
	wantTree := map[Hash]bool{HashBytes([]byte("sub")): true, HashBytes([]byte("blob")): true}
	if len(treeRefs) != 2 || !wantTree[treeRefs[0]] || !wantTree[treeRefs[1]] {
		t.Errorf("tree refs = %v", treeRefs)
	}

	c := &CommitObj{
		TreeHash:  HashBytes([]byte("t")),
		Parents:   []Hash{HashBytes([]byte("p"))},
		Author:    "a <a@b>",
		Timestamp: 1,
		Message:   "m",
	}
	commitRefs, err := ReferencedHashes(TypeCommit, MarshalCommit(c))
	if err != nil {
		t.Fatalf("commit refs: %v", err)
	}
	if len(commitRefs) != 2 || commitRefs[0] != c.TreeHash || commitRefs[1] != c.Parents[0] {
		t.Errorf("commit refs = %v", commitRefs)
	}
}

func TestValidateHash(t *testing.T) {
	if err := ValidateHash(HashBytes([]byte("x"))); err != nil {
		t.Errorf("valid hash rejected: %v", err)
	}
	for _, bad := range []Hash{"", "abc", Hash(strings.Repeat("z", 64))} {
		if err := ValidateHash(bad); err == nil {
			t.Errorf("ValidateHash(%q) accepted", bad)
		}
	}
}
