package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/menuimport/internal/config"
)

func TestFSStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "imports/a.json", []byte(`{"restaurants":[]}`), "application/json"))

	got, err := store.Get(ctx, "imports/a.json")
	require.NoError(t, err)
	require.Equal(t, `{"restaurants":[]}`, string(got))

	require.NoError(t, store.Put(ctx, "imports/a.json", []byte(`{}`), "application/json"))
	got, err = store.Get(ctx, "imports/a.json")
	require.NoError(t, err)
	require.Equal(t, `{}`, string(got))

	require.NoError(t, store.Delete(ctx, "imports/a.json"))
	require.NoError(t, store.Delete(ctx, "imports/a.json"))

	_, err = store.Get(ctx, "imports/a.json")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFSStore_LeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	store, err := NewFSStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "k.json", []byte("x"), ""))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "k.json", entries[0].Name())
}

func TestFSStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../x", "/etc/passwd", "a/../../b", `a\b`} {
		err := store.Put(context.Background(), key, []byte("x"), "")
		require.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	store, err := New(context.Background(), config.BlobConfig{Driver: "fs", Dir: dir})
	require.NoError(t, err)
	require.IsType(t, &FSStore{}, store)
	require.DirExists(t, dir)

	_, err = New(context.Background(), config.BlobConfig{Driver: "gcs"})
	require.Error(t, err)

	_, err = New(context.Background(), config.BlobConfig{Driver: "s3"})
	require.Error(t, err, "s3 without a bucket")
}

func TestNewS3Store(t *testing.T) {
	store, err := NewS3Store(context.Background(), config.BlobConfig{
		Driver:       "s3",
		Bucket:       "imports",
		Endpoint:     "http://localhost:9000",
		Region:       "auto",
		AccessKey:    "key",
		SecretKey:    "secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	require.Equal(t, "imports", store.bucket)

	err = store.Put(context.Background(), "../x", nil, "")
	require.True(t, errors.Is(err, ErrInvalidKey))
}
