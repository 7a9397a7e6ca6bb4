package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "controls.csv")
	require.NoError(t, os.WriteFile(target, []byte("a,b\n"), 0600))

	var calls atomic.Int32
	w, err := New(target, func() { calls.Add(1) })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(target, []byte("a,b\nc,d\n"), 0600))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "controls.csv")
	require.NoError(t, os.WriteFile(target, []byte("a,b\n"), 0600))

	var calls atomic.Int32
	w, err := New(target, func() { calls.Add(1) })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcher_FiresOnReplace(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "controls.csv")
	require.NoError(t, os.WriteFile(target, []byte("a,b\n"), 0600))

	var calls atomic.Int32
	w, err := New(target, func() { calls.Add(1) })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Stop()

	tmp := filepath.Join(dir, "controls.csv.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("new\n"), 0600))
	require.NoError(t, os.Rename(tmp, target))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "controls.csv")

	w, err := New(target, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Start())

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
