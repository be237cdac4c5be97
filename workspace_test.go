package coderunner

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkspaceManagerAcquireReusesOwnerDirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	m := NewWorkspaceManager(root)

	ws1, release1, err := m.Acquire("owner-1")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "owner-1"), ws1.Root)
	release1()

	ws2, release2, err := m.Acquire("owner-1")
	require.NoError(t, err)
	require.Equal(t, ws1.Root, ws2.Root)
	require.NotEqual(t, ws1.ExecID, ws2.ExecID)
	release2()
}

func TestWorkspaceManagerSerializesSameOwner(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	m := NewWorkspaceManager(root)

	var mu sync.Mutex
	var order []int
	var active, maxActive int
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := m.Acquire("same-owner")
			require.NoError(t, err)
			mu.Lock()
			order = append(order, i)
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	require.Len(t, order, 2)
	require.Equal(t, 1, maxActive)
}

func TestWorkspaceWriteFileAtomic(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	m := NewWorkspaceManager(root)

	ws, release, err := m.Acquire("owner-2")
	require.NoError(t, err)
	defer release()

	require.NoError(t, ws.WriteFile("main.rs", []byte("fn main() {}")))
	data, err := os.ReadFile(ws.Path("main.rs"))
	require.NoError(t, err)
	require.Equal(t, "fn main() {}", string(data))
}

func TestWorkspaceSweepRemovesOwnerDirectories(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	m := NewWorkspaceManager(root)

	_, release, err := m.Acquire("owner-3")
	require.NoError(t, err)
	release()

	require.NoError(t, m.Sweep())
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)
}
