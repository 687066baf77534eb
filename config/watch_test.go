package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatch(t *testing.T, path string) <-chan string {
	t.Helper()
	changes := make(chan string, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(host string) { changes <- host }, quietLogger())
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	return changes
}

func expectHost(t *testing.T, changes <-chan string, want string) {
	t.Helper()
	select {
	case got := <-changes:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("no change reported, want %q", want)
	}
}

func expectQuiet(t *testing.T, changes <-chan string) {
	t.Helper()
	select {
	case got := <-changes:
		t.Fatalf("unexpected change %q", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchReportsNewHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.txt")
	require.NoError(t, SaveHost(path, "first.local"))
	changes := startWatch(t, path)

	require.NoError(t, SaveHost(path, "second.local"))
	expectHost(t, changes, "second.local")
}

func TestWatchSkipsRepeatsAndBlank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.txt")
	require.NoError(t, SaveHost(path, "first.local"))
	changes := startWatch(t, path)

	require.NoError(t, SaveHost(path, "first.local\n"))
	expectQuiet(t, changes)

	require.NoError(t, SaveHost(path, "   "))
	expectQuiet(t, changes)

	require.NoError(t, SaveHost(path, "third.local"))
	expectHost(t, changes, "third.local")
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.txt")
	require.NoError(t, SaveHost(path, "first.local"))
	changes := startWatch(t, path)

	require.NoError(t, SaveHost(filepath.Join(dir, "display.log"), "not a host"))
	expectQuiet(t, changes)
}

func TestWatchMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", "host.txt")
	err := Watch(context.Background(), path, func(string) {}, quietLogger())
	assert.Error(t, err)
}
