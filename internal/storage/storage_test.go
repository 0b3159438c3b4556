package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetAndGetTag(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "kismet.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SetTag(ctx, "aa:bb:cc:dd:ee:ff/1", "office-ap", "seen in lobby"))

	tag, notes, ok := store.GetTag(ctx, "aa:bb:cc:dd:ee:ff/1")
	require.True(t, ok)
	assert.Equal(t, "office-ap", tag)
	assert.Equal(t, "seen in lobby", notes)
}

func TestStore_GetTag_UnknownReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "kismet.db"))
	require.NoError(t, err)
	defer store.Close()

	_, _, ok := store.GetTag(context.Background(), "nope")
	assert.False(t, ok)
}

func TestStore_SeedAndLookupVendor(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "kismet.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SeedVendors(ctx, map[string]string{
		"00:1A:11": "Google, Inc.",
	}))

	vendor, ok := store.LookupVendor(ctx, "00:1a:11:22:33:44")
	require.True(t, ok)
	assert.Equal(t, "Google, Inc.", vendor)
}

func TestStore_LookupVendor_UnknownPrefixReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "kismet.db"))
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.LookupVendor(context.Background(), "de:ad:be:ef:00:01")
	assert.False(t, ok)
}

func TestStore_LookupVendor_MalformedMACReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "kismet.db"))
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.LookupVendor(context.Background(), "nope")
	assert.False(t, ok)
}

func TestArchiveWriter_WriteFrameRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zst")

	aw, err := OpenArchive(path)
	require.NoError(t, err)
	require.NoError(t, aw.WriteFrame(time.Now(), []byte("frame-one")))
	require.NoError(t, aw.WriteFrame(time.Now(), []byte("frame-two")))
	require.NoError(t, aw.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
