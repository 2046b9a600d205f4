package repo

import (
	"errors"
	"strings"
	"testing"

	"github.com/holtvcs/holt/pkg/object"
)

func TestCommit_NothingStaged(t *testing.T) {
	r := newTestRepo(t)

	if _, err := r.Commit("empty"); !errors.Is(err, ErrNothingStaged) {
		t.Fatalf("Commit on clean repo = %v, want ErrNothingStaged", err)
	}

	// Staging and committing, then committing again without changes,
	// reports the same error.
	writeWorkFile(t, r, "a.txt", "a")
	stageOne(t, r, "a.txt")
	mustCommit(t, r, "add a")
	if _, err := r.Commit("still empty"); !errors.Is(err, ErrNothingStaged) {
		t.Fatalf("Commit without staged changes = %v, want ErrNothingStaged", err)
	}
}

func TestCommit_AdvancesBranchAndRecordsTree(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "lib/core.go", "package lib\n")
	writeWorkFile(t, r, "readme.md", "# project\n")
	stageOne(t, r, "lib")
	stageOne(t, r, "readme.md")

	parent, err := r.ResolveRef("HEAD")
	if err != nil {
		t.Fatalf("ResolveRef(HEAD): %v", err)
	}

	h := mustCommit(t, r, "first real commit")

	tip, err := r.ResolveRef("refs/heads/main")
	if err != nil {
		t.Fatalf("ResolveRef(main): %v", err)
	}
	if tip != h {
		t.Fatalf("branch tip = %s, want %s", tip, h)
	}

	commit, err := object.ReadCommit(r.Store, h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 1 || commit.Parents[0] != parent {
		t.Errorf("parents = %v, want [%s]", commit.Parents, parent)
	}
	if commit.Message != "first real commit" {
		t.Errorf("message = %q", commit.Message)
	}

	files, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	paths := make(map[string]bool, len(files))
	for _, f := range files {
		paths[f.Path] = true
	}
	if !paths["lib/core.go"] || !paths["readme.md"] {
		t.Errorf("tree files = %v, want lib/core.go and readme.md", paths)
	}
}

func TestCommit_FilenamesWithSpaces(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "my file.txt", "spaced")
	writeWorkFile(t, r, "release notes/v2 draft.md", "# draft\n")
	stageOne(t, r, "my file.txt")
	stageOne(t, r, "release notes")
	h := mustCommit(t, r, "add spaced paths")

	// Everything that reads the tree back must keep working.
	commit, err := object.ReadCommit(r.Store, h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	files, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	paths := make(map[string]bool, len(files))
	for _, f := range files {
		paths[f.Path] = true
	}
	if !paths["my file.txt"] || !paths["release notes/v2 draft.md"] {
		t.Fatalf("tree files = %v, spaced paths lost", paths)
	}

	s, ok := statusFor(t, r, "my file.txt")
	if !ok {
		t.Fatal("my file.txt missing from status after commit")
	}
	if s.Handling != HandlingUnchanged {
		t.Errorf("post-commit handling = %s, want unchanged", s.Handling)
	}

	// A follow-up edit cycles through normally.
	writeWorkFile(t, r, "my file.txt", "edited")
	stageOne(t, r, "my file.txt")
	mustCommit(t, r, "edit spaced file")
	if msg, err := r.LastCommitMessage(); err != nil || msg != "edit spaced file" {
		t.Errorf("LastCommitMessage = %q, %v", msg, err)
	}
}

func TestCommit_BootstrapLeavesNoIndex(t *testing.T) {
	r := newTestRepo(t)

	if r.hasIndexFile() {
		t.Fatal("bootstrap commit created an index file")
	}

	writeWorkFile(t, r, "a.txt", "a")
	stageOne(t, r, "a.txt")
	mustCommit(t, r, "add a")
	if !r.hasIndexFile() {
		t.Error("index file missing after staging and committing")
	}
}

func TestCommit_TreeIsCleanAfterward(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "x.txt", "x")
	stageOne(t, r, "x.txt")
	mustCommit(t, r, "add x")

	s, ok := statusFor(t, r, "x.txt")
	if !ok {
		t.Fatal("x.txt missing from status after commit")
	}
	if s.Handling != HandlingUnchanged {
		t.Errorf("post-commit handling = %s, want unchanged", s.Handling)
	}
}

func TestCommit_TombstonesCollapse(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "trash.txt", "temporary")
	stageOne(t, r, "trash.txt")
	mustCommit(t, r, "add trash")

	if _, err := r.Remove([]string{"trash.txt"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	h := mustCommit(t, r, "drop trash")

	if _, ok := mustEntries(t, r)["trash.txt"]; ok {
		t.Error("tombstone survived the commit")
	}

	commit, err := object.ReadCommit(r.Store, h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	files, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	for _, f := range files {
		if f.Path == "trash.txt" {
			t.Error("deleted path still present in the committed tree")
		}
	}
}

func TestCommit_RemoveDirectoryThenCommit(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "pkg/a.go", "package pkg\n")
	writeWorkFile(t, r, "pkg/b.go", "package pkg\n")
	writeWorkFile(t, r, "main.go", "package main\n")
	stageOne(t, r, "pkg")
	stageOne(t, r, "main.go")
	mustCommit(t, r, "add all")

	if err := r.RemoveDirectory("pkg"); err != nil {
		t.Fatalf("RemoveDirectory: %v", err)
	}
	h := mustCommit(t, r, "drop pkg")

	commit, err := object.ReadCommit(r.Store, h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	files, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(files) != 1 || files[0].Path != "main.go" {
		t.Errorf("tree after directory removal = %v, want only main.go", files)
	}
}

func TestCommit_Signed(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "signed.txt", "verify me")
	stageOne(t, r, "signed.txt")

	var signedPayload []byte
	signer := func(payload []byte) (string, error) {
		signedPayload = append([]byte(nil), payload...)
		return "test-sig", nil
	}

	h, err := r.CommitWithSigner("signed commit", signer)
	if err != nil {
		t.Fatalf("CommitWithSigner: %v", err)
	}

	commit, err := object.ReadCommit(r.Store, h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if commit.Signature != "test-sig" {
		t.Errorf("signature = %q, want test-sig", commit.Signature)
	}

	// The signed payload must equal the commit serialization with the
	// signature cleared, so verifiers can reconstruct it.
	if string(signedPayload) != string(object.CommitSigningPayload(commit)) {
		t.Error("signed payload does not match the canonical signing payload")
	}
	if strings.Contains(string(signedPayload), "test-sig") {
		t.Error("signature leaked into its own signing payload")
	}
}

func TestLastCommitMessage(t *testing.T) {
	r := newTestRepo(t)

	msg, err := r.LastCommitMessage()
	if err != nil {
		t.Fatalf("LastCommitMessage: %v", err)
	}
	if msg != InitialCommitMessage {
		t.Errorf("bootstrap message = %q, want %q", msg, InitialCommitMessage)
	}

	writeWorkFile(t, r, "f.txt", "f")
	stageOne(t, r, "f.txt")
	mustCommit(t, r, "add f")

	msg, err = r.LastCommitMessage()
	if err != nil {
		t.Fatalf("LastCommitMessage: %v", err)
	}
	if msg != "add f" {
		t.Errorf("message = %q, want %q", msg, "add f")
	}
}

func TestLog_FirstParentNewestFirst(t *testing.T) {
	r := newTestRepo(t)
	for _, name := range []string{"one", "two", "three"} {
		writeWorkFile(t, r, name+".txt", name)
		stageOne(t, r, name+".txt")
		mustCommit(t, r, "add "+name)
	}

	entries, err := r.Log("", 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("log length = %d, want 4 (three commits + bootstrap)", len(entries))
	}
	if entries[0].Commit.Message != "add three" {
		t.Errorf("newest message = %q, want %q", entries[0].Commit.Message, "add three")
	}
	if entries[3].Commit.Message != InitialCommitMessage {
		t.Errorf("oldest message = %q, want %q", entries[3].Commit.Message, InitialCommitMessage)
	}

	limited, err := r.Log("", 2)
	if err != nil {
		t.Fatalf("Log(limit): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited log length = %d, want 2", len(limited))
	}
}
