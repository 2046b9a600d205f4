package repo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStatus_UntrackedFile(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "wild.txt", "untracked")

	s, ok := statusFor(t, r, "wild.txt")
	if !ok {
		t.Fatal("wild.txt missing from status")
	}
	if s.Handling != HandlingUntracked || s.Change != ChangeUntracked {
		t.Errorf("got {%s, %s}, want {untracked, untracked}", s.Handling, s.Change)
	}
}

func TestStatus_StagedNewFile(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "fresh.txt", "brand new")
	stageOne(t, r, "fresh.txt")

	s, ok := statusFor(t, r, "fresh.txt")
	if !ok {
		t.Fatal("fresh.txt missing from status")
	}
	if s.Handling != HandlingStaged || s.Change != ChangeNew {
		t.Errorf("got {%s, %s}, want {staged, new file}", s.Handling, s.Change)
	}
}

func TestStatus_UnstagedModification(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "story.txt", "draft one")
	stageOne(t, r, "story.txt")
	mustCommit(t, r, "draft")

	writeWorkFile(t, r, "story.txt", "draft two, reworked")

	s, ok := statusFor(t, r, "story.txt")
	if !ok {
		t.Fatal("story.txt missing from status")
	}
	if s.Handling != HandlingUnstaged || s.Change != ChangeModified {
		t.Errorf("got {%s, %s}, want {unstaged, modified}", s.Handling, s.Change)
	}
}

func TestStatus_StagedModification(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "story.txt", "draft one")
	stageOne(t, r, "story.txt")
	mustCommit(t, r, "draft")

	writeWorkFile(t, r, "story.txt", "draft two")
	stageOne(t, r, "story.txt")

	s, ok := statusFor(t, r, "story.txt")
	if !ok {
		t.Fatal("story.txt missing from status")
	}
	if s.Handling != HandlingStaged || s.Change != ChangeModified {
		t.Errorf("got {%s, %s}, want {staged, modified}", s.Handling, s.Change)
	}
}

// A staged change takes precedence over a further unstaged edit of the
// same path.
func TestStatus_StagedWinsOverLaterEdit(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "both.txt", "v1")
	stageOne(t, r, "both.txt")
	writeWorkFile(t, r, "both.txt", "v2, edited after staging")

	s, ok := statusFor(t, r, "both.txt")
	if !ok {
		t.Fatal("both.txt missing from status")
	}
	if s.Handling != HandlingStaged || s.Change != ChangeNew {
		t.Errorf("got {%s, %s}, want {staged, new file}", s.Handling, s.Change)
	}
}

func TestStatus_StagedDeletion(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "gone.txt", "soon to go")
	stageOne(t, r, "gone.txt")
	mustCommit(t, r, "add gone")

	if _, err := r.Remove([]string{"gone.txt"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	s, ok := statusFor(t, r, "gone.txt")
	if !ok {
		t.Fatal("gone.txt missing from status")
	}
	if s.Handling != HandlingStaged || s.Change != ChangeDeleted {
		t.Errorf("got {%s, %s}, want {staged, deleted}", s.Handling, s.Change)
	}
}

// An on-disk deletion that was never staged: the path is still tracked
// but diverges from the working directory, reported as untracked.
func TestStatus_UnstagedDeletion_ReportedUntracked(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "vanish.txt", "here")
	stageOne(t, r, "vanish.txt")
	mustCommit(t, r, "add vanish")

	if err := os.Remove(filepath.Join(r.RootDir, "vanish.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	s, ok := statusFor(t, r, "vanish.txt")
	if !ok {
		t.Fatal("vanish.txt missing from status")
	}
	if s.Handling != HandlingUntracked || s.Change != ChangeUntracked {
		t.Errorf("got {%s, %s}, want {untracked, untracked}", s.Handling, s.Change)
	}
}

func TestStatus_UnchangedTrackedFileIncluded(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "steady.txt", "unchanging")
	stageOne(t, r, "steady.txt")
	mustCommit(t, r, "add steady")

	s, ok := statusFor(t, r, "steady.txt")
	if !ok {
		t.Fatal("unchanged tracked file missing from status")
	}
	if s.Handling != HandlingUnchanged || s.Change != ChangeUnchanged {
		t.Errorf("got {%s, %s}, want {unchanged, unchanged}", s.Handling, s.Change)
	}
}

func TestStatus_SortedAndReadOnly(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, "b.txt", "b")
	writeWorkFile(t, r, "a.txt", "a")
	writeWorkFile(t, r, "c.txt", "c")

	before, err := os.ReadFile(filepath.Join(r.HoltDir, "HEAD"))
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}

	statuses, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for i := 1; i < len(statuses); i++ {
		if statuses[i-1].Path >= statuses[i].Path {
			t.Fatalf("status not sorted: %q before %q", statuses[i-1].Path, statuses[i].Path)
		}
	}

	// Status must not create an index or touch refs.
	if _, err := os.Stat(filepath.Join(r.HoltDir, "index")); err == nil {
		t.Error("Status created an index file")
	}
	after, err := os.ReadFile(filepath.Join(r.HoltDir, "HEAD"))
	if err != nil {
		t.Fatalf("read HEAD: %v", err)
	}
	if string(before) != string(after) {
		t.Error("Status modified HEAD")
	}
}

func TestStatus_IgnoredFilesExcluded(t *testing.T) {
	r := newTestRepo(t)
	writeWorkFile(t, r, ".holtignore", "*.log\nbuild/\n")
	writeWorkFile(t, r, "debug.log", "ignored")
	writeWorkFile(t, r, "build/out.bin", "ignored too")
	writeWorkFile(t, r, "kept.txt", "shown")

	if _, ok := statusFor(t, r, "debug.log"); ok {
		t.Error("ignored file debug.log reported by status")
	}
	if _, ok := statusFor(t, r, "build/out.bin"); ok {
		t.Error("ignored file build/out.bin reported by status")
	}
	if _, ok := statusFor(t, r, "kept.txt"); !ok {
		t.Error("kept.txt missing from status")
	}
}

func TestStatus_FreshRepoHasNoEntries(t *testing.T) {
	r := newTestRepo(t)

	statuses, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("fresh repo status = %v, want empty", statuses)
	}
}
