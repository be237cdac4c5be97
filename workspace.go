package coderunner

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// WorkspaceRoot is the default parent directory workspaces are created
// under; overridable via config (see SPEC_FULL.md §6).
const WorkspaceRoot = "/tmp/coderunner"

// Workspace is a transient per-execution filesystem directory. It is
// created before execution and destroyed after the output event is
// published, regardless of success.
type Workspace struct {
	Root     string
	OwnerKey string

	// ExecID is a fresh identifier for a single acquire/release span; it
	// does not affect the directory path, which is always reused per
	// owner per spec.md §4.3. No log line in this module carries it.
	ExecID string
}

// WriteFile atomically replaces relativeName inside the workspace.
func (w *Workspace) WriteFile(relativeName string, data []byte) error {
	target := filepath.Join(w.Root, relativeName)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s into place: %w", target, err)
	}
	return nil
}

// Path returns the absolute path to a file inside the workspace.
func (w *Workspace) Path(relativeName string) string {
	return filepath.Join(w.Root, relativeName)
}

// Release best-effort removes the workspace directory.
func (w *Workspace) Release() {
	_ = os.RemoveAll(w.Root)
}

// WorkspaceManager allocates per-owner workspace directories and
// serializes concurrent executions from the same owner, per spec.md §4.3
// and the design note in §9 ("replace per-user-path workspace
// collisions..."). The locking here is the same double-checked-locking
// shape store.go uses to guard per-node event state, substituting "owner
// pubkey" for "node pubkey".
type WorkspaceManager struct {
	root string

	mu     sync.RWMutex
	owners map[string]*sync.Mutex
}

func NewWorkspaceManager(root string) *WorkspaceManager {
	if root == "" {
		root = WorkspaceRoot
	}
	return &WorkspaceManager{
		root:   root,
		owners: make(map[string]*sync.Mutex),
	}
}

func (m *WorkspaceManager) ownerLock(ownerKey string) *sync.Mutex {
	m.mu.RLock()
	lock, ok := m.owners[ownerKey]
	m.mu.RUnlock()
	if ok {
		return lock
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if lock, ok = m.owners[ownerKey]; ok {
		return lock
	}
	lock = &sync.Mutex{}
	m.owners[ownerKey] = lock
	return lock
}

// Acquire locks the owner's slot and creates (or reuses) its directory.
// The returned release func must be called exactly once — it releases
// both the per-owner mutex and the filesystem directory. Two concurrent
// acquisitions for the same owner block until the first is released, so
// a handler's prepare+execute+publish span never interleaves with
// another for the same owner.
func (m *WorkspaceManager) Acquire(ownerKey string) (*Workspace, func(), error) {
	lock := m.ownerLock(ownerKey)
	lock.Lock()

	dir := filepath.Join(m.root, ownerKey)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		lock.Unlock()
		return nil, nil, fmt.Errorf("creating workspace directory: %w", err)
	}

	ws := &Workspace{
		Root:     dir,
		OwnerKey: ownerKey,
		ExecID:   uuid.New().String(),
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		ws.Release()
		lock.Unlock()
	}
	return ws, release, nil
}

// Sweep removes every owner directory under root, intended to run once at
// node startup per spec.md §9 open question on retention across restarts.
func (m *WorkspaceManager) Sweep() error {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading workspace root: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.root, entry.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", entry.Name(), err)
		}
	}
	return nil
}
