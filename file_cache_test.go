package cfddns_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Travis-Britz/cfddns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheRoundTrip(t *testing.T) {
	c := cfddns.NewFileCache(filepath.Join(t.TempDir(), "ip.txt"))

	prev, err := c.Previous()
	require.NoError(t, err)
	assert.Equal(t, "", prev, "missing file reads as absent")

	for _, ip := range []string{"203.0.113.5", "198.51.100.22"} {
		require.NoError(t, c.Save(ip))
		got, err := c.Previous()
		require.NoError(t, err)
		assert.Equal(t, ip, got)

		b, err := os.ReadFile(c.Path)
		require.NoError(t, err)
		assert.Equal(t, ip, string(b), "file holds exactly the address")
	}
}

func TestFileCacheTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ip.txt")
	require.NoError(t, os.WriteFile(path, []byte("  192.0.2.7\n"), 0644))

	got, err := cfddns.NewFileCache(path).Previous()
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.7", got)
}

func TestFileCacheReadError(t *testing.T) {
	// a directory cannot be read as a file
	_, err := cfddns.NewFileCache(t.TempDir()).Previous()
	require.Error(t, err)
	assert.True(t, cfddns.IsKind(err, cfddns.KindIO))
}

func TestFileCacheSaveError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "ip.txt")
	err := cfddns.NewFileCache(path).Save("192.0.2.7")
	require.Error(t, err)
	assert.True(t, cfddns.IsKind(err, cfddns.KindIO))
}

func TestFileCacheDefaultPath(t *testing.T) {
	assert.Equal(t, cfddns.DefaultStateFile, cfddns.NewFileCache("").Path)
}

func TestFileCacheLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ip.txt")
	a, b := cfddns.NewFileCache(path), cfddns.NewFileCache(path)

	unlock, ok, err := a.Lock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Lock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "second lock should be refused while the first is held")

	require.NoError(t, unlock())

	unlock, ok, err = b.Lock(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "lock should be available after release")
	require.NoError(t, unlock())
}
