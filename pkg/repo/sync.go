package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/holtvcs/holt/pkg/object"
	"github.com/holtvcs/holt/pkg/remote"
)

// PushResult describes a completed push.
type PushResult struct {
	Branch    string
	OldRemote object.Hash // "" when the remote branch was created
	NewRemote object.Hash
	Uploaded  int
}

// PullResult describes a completed pull.
type PullResult struct {
	Branch   string
	OldLocal object.Hash // "" when the local branch was created
	NewLocal object.Hash
	Fetched  int
	UpToDate bool
}

// remoteClient builds a protocol client for the named remote
// (DefaultRemote when name is empty).
func (r *Repo) remoteClient(name string) (string, *remote.Client, error) {
	remoteName := strings.TrimSpace(name)
	if remoteName == "" {
		remoteName = DefaultRemote
	}
	url, err := r.RemoteURL(remoteName)
	if err != nil {
		return "", nil, err
	}
	client, err := remote.NewClient(url)
	if err != nil {
		return "", nil, err
	}
	return remoteName, client, nil
}

// Push uploads the named branch (current branch when empty) to the
// remote and advances the remote ref with a compare-and-swap.
//
// A remote tip that is not an ancestor of the local tip reports
// ErrNonFastForward. A remote ref that moved between negotiation and
// update reports ErrReferenceConflict.
func (r *Repo) Push(ctx context.Context, remoteName, branch string) (*PushResult, error) {
	remoteName, client, err := r.remoteClient(remoteName)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	branch, err = r.resolveBranchArg(branch)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}

	localRef := "refs/heads/" + branch
	localHash, err := r.ResolveRef(localRef)
	if err != nil {
		return nil, fmt.Errorf("push: resolve %s: %w", localRef, err)
	}

	remoteRefs, err := client.ListRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	remoteRef := localRef
	remoteHash, hasRemote := remoteRefs[remoteRef]
	if hasRemote && remoteHash == "" {
		hasRemote = false
	}

	if hasRemote && remoteHash == localHash {
		_ = r.UpdateRef(remoteTrackingRef(remoteName, branch), remoteHash)
		return &PushResult{Branch: branch, OldRemote: remoteHash, NewRemote: remoteHash}, nil
	}

	if hasRemote {
		// The fast-forward check needs the remote tip's history locally.
		if !r.Store.Has(remoteHash) {
			haves := r.localRefTips()
			if _, err := remote.FetchIntoStore(ctx, client, r.Store, []object.Hash{remoteHash}, haves); err != nil {
				return nil, fmt.Errorf("push: fetch remote tip for ancestry check: %w", err)
			}
		}
		ancestor, err := r.isAncestor(remoteHash, localHash)
		if err != nil {
			return nil, fmt.Errorf("push: %w", err)
		}
		if !ancestor {
			return nil, fmt.Errorf("push %s: remote is at %s: %w", branch, remoteHash, ErrNonFastForward)
		}
	}

	stopRoots := make([]object.Hash, 0, len(remoteRefs))
	for _, h := range remoteRefs {
		if h != "" && r.Store.Has(h) {
			stopRoots = append(stopRoots, h)
		}
	}
	objects, err := remote.CollectObjectsForPush(r.Store, []object.Hash{localHash}, stopRoots)
	if err != nil {
		return nil, fmt.Errorf("push: collect objects: %w", err)
	}
	uploaded, err := pushObjectsChunked(ctx, client, objects)
	if err != nil {
		return nil, fmt.Errorf("push: upload: %w", err)
	}

	old := object.Hash("")
	if hasRemote {
		old = remoteHash
	}
	newHash := localHash
	if _, err := client.UpdateRefs(ctx, []remote.RefUpdate{{Name: remoteRef, Old: &old, New: &newHash}}); err != nil {
		if errors.Is(err, remote.ErrRefConflict) {
			return nil, fmt.Errorf("push %s: %w", branch, ErrReferenceConflict)
		}
		return nil, fmt.Errorf("push: update remote ref: %w", err)
	}

	if err := r.UpdateRef(remoteTrackingRef(remoteName, branch), localHash); err != nil {
		return nil, fmt.Errorf("push: update tracking ref: %w", err)
	}
	return &PushResult{Branch: branch, OldRemote: old, NewRemote: localHash, Uploaded: uploaded}, nil
}

// Pull fetches the named branch (current branch when empty) and
// fast-forwards the local branch to the remote tip.
//
// A local branch that is ahead of the remote is a successful no-op.
// Histories where neither tip contains the other report
// ErrDivergedHistory and leave all local state untouched.
func (r *Repo) Pull(ctx context.Context, remoteName, branch string) (*PullResult, error) {
	remoteName, client, err := r.remoteClient(remoteName)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	branch, err = r.resolveBranchArg(branch)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}

	remoteRefs, err := client.ListRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	remoteHash, ok := remoteRefs["refs/heads/"+branch]
	if !ok || remoteHash == "" {
		return nil, fmt.Errorf("pull: remote branch %q not found", branch)
	}

	localRef := "refs/heads/" + branch
	localHash, err := r.ResolveRef(localRef)
	hasLocal := err == nil && localHash != ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("pull: %w", err)
	}

	fetched, err := remote.FetchIntoStore(ctx, client, r.Store, []object.Hash{remoteHash}, r.localRefTips())
	if err != nil {
		return nil, fmt.Errorf("pull: fetch: %w", err)
	}
	if err := r.UpdateRef(remoteTrackingRef(remoteName, branch), remoteHash); err != nil {
		return nil, fmt.Errorf("pull: update tracking ref: %w", err)
	}

	if hasLocal && localHash == remoteHash {
		return &PullResult{Branch: branch, OldLocal: localHash, NewLocal: localHash, Fetched: fetched, UpToDate: true}, nil
	}

	if hasLocal {
		localAhead, err := r.isAncestor(remoteHash, localHash)
		if err != nil {
			return nil, fmt.Errorf("pull: %w", err)
		}
		if localAhead {
			return &PullResult{Branch: branch, OldLocal: localHash, NewLocal: localHash, Fetched: fetched, UpToDate: true}, nil
		}
		fastForward, err := r.isAncestor(localHash, remoteHash)
		if err != nil {
			return nil, fmt.Errorf("pull: %w", err)
		}
		if !fastForward {
			return nil, fmt.Errorf("pull %s: local %s, remote %s: %w", branch, localHash, remoteHash, ErrDivergedHistory)
		}
	}

	currentBranch, err := r.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	if currentBranch == branch {
		if err := r.ensureClean(); err != nil {
			return nil, fmt.Errorf("pull: %w", err)
		}
		if err := r.checkoutCommit(remoteHash); err != nil {
			return nil, fmt.Errorf("pull: %w", err)
		}
	}

	if hasLocal {
		if err := r.UpdateRefCAS(localRef, remoteHash, localHash); err != nil {
			return nil, fmt.Errorf("pull: %w", err)
		}
	} else {
		if err := r.UpdateRefCAS(localRef, remoteHash); err != nil {
			return nil, fmt.Errorf("pull: %w", err)
		}
	}

	return &PullResult{Branch: branch, OldLocal: localHash, NewLocal: remoteHash, Fetched: fetched}, nil
}

// Fetch downloads the remote tip of the named branch into the local
// store and updates the remote-tracking ref. Local branches and the
// working directory stay untouched.
func (r *Repo) Fetch(ctx context.Context, remoteName, branch string) (object.Hash, int, error) {
	remoteName, client, err := r.remoteClient(remoteName)
	if err != nil {
		return "", 0, fmt.Errorf("fetch: %w", err)
	}
	branch, err = r.resolveBranchArg(branch)
	if err != nil {
		return "", 0, fmt.Errorf("fetch: %w", err)
	}

	remoteRefs, err := client.ListRefs(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("fetch: %w", err)
	}
	remoteHash, ok := remoteRefs["refs/heads/"+branch]
	if !ok || remoteHash == "" {
		return "", 0, fmt.Errorf("fetch: remote branch %q not found", branch)
	}

	fetched, err := remote.FetchIntoStore(ctx, client, r.Store, []object.Hash{remoteHash}, r.localRefTips())
	if err != nil {
		return "", fetched, fmt.Errorf("fetch: %w", err)
	}
	if err := r.UpdateRef(remoteTrackingRef(remoteName, branch), remoteHash); err != nil {
		return "", fetched, fmt.Errorf("fetch: update tracking ref: %w", err)
	}
	return remoteHash, fetched, nil
}

// Clone creates a new repository at path populated from remoteURL. The
// destination must not exist or must be an empty directory. A remote
// with no branches reports ErrRemoteEmpty and leaves no repository
// behind.
func Clone(ctx context.Context, remoteURL, path string) (*Repo, error) {
	if err := ensureEmptyDestination(path); err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}

	client, err := remote.NewClient(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	remoteRefs, err := client.ListRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}

	branch, tip := pickCloneBranch(remoteRefs)
	if branch == "" {
		return nil, fmt.Errorf("clone %s: %w", remoteURL, ErrRemoteEmpty)
	}

	r, err := Init(path)
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	cleanup := func() { os.RemoveAll(r.HoltDir) }

	if err := r.SetRemote(DefaultRemote, remoteURL); err != nil {
		cleanup()
		return nil, fmt.Errorf("clone: %w", err)
	}
	if _, err := remote.FetchIntoStore(ctx, client, r.Store, []object.Hash{tip}, nil); err != nil {
		cleanup()
		return nil, fmt.Errorf("clone: fetch: %w", err)
	}
	if err := r.UpdateRefCAS("refs/heads/"+branch, tip); err != nil {
		cleanup()
		return nil, fmt.Errorf("clone: %w", err)
	}
	if err := r.UpdateRef(remoteTrackingRef(DefaultRemote, branch), tip); err != nil {
		cleanup()
		return nil, fmt.Errorf("clone: %w", err)
	}
	headPath := filepath.Join(r.HoltDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: refs/heads/"+branch+"\n"), 0o644); err != nil {
		cleanup()
		return nil, fmt.Errorf("clone: write HEAD: %w", err)
	}
	if err := r.checkoutCommit(tip); err != nil {
		cleanup()
		return nil, fmt.Errorf("clone: %w", err)
	}
	return r, nil
}

// BranchUpToDate reports whether the local branch tip equals the remote
// branch tip. It consults the remote's ref listing only; no objects are
// transferred. A branch missing on the remote is not up to date.
func (r *Repo) BranchUpToDate(ctx context.Context, remoteName, branch string) (bool, error) {
	_, client, err := r.remoteClient(remoteName)
	if err != nil {
		return false, fmt.Errorf("branch up to date: %w", err)
	}
	branch, err = r.resolveBranchArg(branch)
	if err != nil {
		return false, fmt.Errorf("branch up to date: %w", err)
	}

	localHash, err := r.ResolveRef("refs/heads/" + branch)
	if err != nil {
		return false, fmt.Errorf("branch up to date: %w", err)
	}
	remoteRefs, err := client.ListRefs(ctx)
	if err != nil {
		return false, fmt.Errorf("branch up to date: %w", err)
	}
	remoteHash, ok := remoteRefs["refs/heads/"+branch]
	if !ok || remoteHash == "" {
		return false, nil
	}
	return remoteHash == localHash, nil
}

// resolveBranchArg defaults an empty branch to the current branch.
func (r *Repo) resolveBranchArg(branch string) (string, error) {
	branch = strings.TrimSpace(branch)
	if branch != "" {
		return branch, nil
	}
	branch, err := r.CurrentBranch()
	if err != nil {
		return "", err
	}
	if branch == "" {
		return "", fmt.Errorf("cannot infer branch while HEAD is detached; specify branch")
	}
	return branch, nil
}

// localRefTips returns the tips of all local branch and tracking refs
// that are present in the store, for batch negotiation haves.
func (r *Repo) localRefTips() []object.Hash {
	tips := make([]object.Hash, 0, 8)
	for _, prefix := range []string{"heads", "remotes"} {
		refs, err := r.ListRefs(prefix)
		if err != nil {
			continue
		}
		for _, h := range refs {
			if h != "" && r.Store.Has(h) {
				tips = append(tips, h)
			}
		}
	}
	sort.Slice(tips, func(i, j int) bool { return tips[i] < tips[j] })
	return tips
}

// isAncestor reports whether ancestor is reachable from descendant by
// following parent edges.
func (r *Repo) isAncestor(ancestor, descendant object.Hash) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	seen := make(map[object.Hash]struct{})
	stack := []object.Hash{descendant}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		if h == ancestor {
			return true, nil
		}
		commit, err := object.ReadCommit(r.Store, h)
		if err != nil {
			return false, fmt.Errorf("%w: commit %s: %v", ErrRepositoryCorrupt, h, err)
		}
		stack = append(stack, commit.Parents...)
	}
	return false, nil
}

// pickCloneBranch chooses the branch to check out after clone: the
// default branch when the remote has it, the lexically first branch
// otherwise.
func pickCloneBranch(remoteRefs map[string]object.Hash) (string, object.Hash) {
	if h, ok := remoteRefs["refs/heads/"+DefaultBranch]; ok && h != "" {
		return DefaultBranch, h
	}
	names := make([]string, 0, len(remoteRefs))
	for name, h := range remoteRefs {
		if strings.HasPrefix(name, "refs/heads/") && h != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", ""
	}
	sort.Strings(names)
	return strings.TrimPrefix(names[0], "refs/heads/"), remoteRefs[names[0]]
}

func ensureEmptyDestination(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("destination %s is not a directory", path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("destination %s is not empty", path)
	}
	return nil
}

// pushObjectsChunked uploads objects in bounded chunks so a single
// request body stays under server limits.
func pushObjectsChunked(ctx context.Context, client *remote.Client, objects []remote.ObjectRecord) (int, error) {
	const (
		maxChunkObjects = 2000
		maxChunkBytes   = 32 << 20
		maxObjectBytes  = 16 << 20
	)
	if len(objects) == 0 {
		return 0, nil
	}

	chunk := make([]remote.ObjectRecord, 0, maxChunkObjects)
	chunkBytes := 0
	uploaded := 0

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := client.PushObjects(ctx, chunk); err != nil {
			return err
		}
		uploaded += len(chunk)
		chunk = chunk[:0]
		chunkBytes = 0
		return nil
	}

	for _, obj := range objects {
		if len(obj.Data) > maxObjectBytes {
			return uploaded, fmt.Errorf("object %s exceeds %d-byte push limit", obj.Hash, maxObjectBytes)
		}
		recBytes := len(obj.Data) + 128
		if len(chunk) > 0 && (len(chunk) >= maxChunkObjects || chunkBytes+recBytes > maxChunkBytes) {
			if err := flush(); err != nil {
				return uploaded, err
			}
		}
		chunk = append(chunk, obj)
		chunkBytes += recBytes
	}
	if err := flush(); err != nil {
		return uploaded, err
	}
	return uploaded, nil
}
