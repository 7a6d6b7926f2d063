package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T) *LocalArchive {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	archive, err := NewLocalArchive(filepath.Join(t.TempDir(), "exports"), logger)
	require.NoError(t, err)
	return archive
}

func TestStoreAndRetrieve(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	err := archive.Store(ctx, "products/products_2024-03-10.csv", []byte("ID,Strain\n"), &StoreOptions{
		ContentType: "text/csv; charset=utf-8",
		Metadata:    map[string]string{"entity": "products"},
	})
	require.NoError(t, err)

	data, err := archive.Retrieve(ctx, "products/products_2024-03-10.csv")
	require.NoError(t, err)
	assert.Equal(t, "ID,Strain\n", string(data))

	exists, err := archive.Exists(ctx, "products/products_2024-03-10.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = os.Stat(archive.Path("products/products_2024-03-10.csv.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreWithoutOverwrite(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	require.NoError(t, archive.Store(ctx, "a.csv", []byte("one"), nil))
	err := archive.Store(ctx, "a.csv", []byte("two"), &StoreOptions{Overwrite: false})
	assert.True(t, IsAlreadyExists(err))

	require.NoError(t, archive.Store(ctx, "a.csv", []byte("three"), &StoreOptions{Overwrite: true}))
	data, err := archive.Retrieve(ctx, "a.csv")
	require.NoError(t, err)
	assert.Equal(t, "three", string(data))
}

func TestInvalidKeys(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	for _, key := range []string{"", "/etc/passwd", "../escape.csv", "a/../../b.csv", "x.csv.meta.json"} {
		t.Run(key, func(t *testing.T) {
			err := archive.Store(ctx, key, []byte("x"), nil)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestMissingFiles(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	_, err := archive.Retrieve(ctx, "nope.csv")
	assert.True(t, IsNotFound(err))

	err = archive.Delete(ctx, "nope.csv")
	assert.True(t, IsNotFound(err))

	exists, err := archive.Exists(ctx, "nope.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListNewestFirstWithMetadata(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	require.NoError(t, archive.Store(ctx, "sales/old.csv", []byte("old"), &StoreOptions{ContentType: "text/csv"}))
	require.NoError(t, archive.Store(ctx, "sales/new.html", []byte("<html></html>"), nil))
	require.NoError(t, archive.Store(ctx, "audits/a.xlsx", []byte("xlsx"), nil))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(archive.Path("sales/old.csv"), old, old))

	files, err := archive.List(ctx, "sales/")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "sales/new.html", files[0].Key)
	assert.Equal(t, "sales/old.csv", files[1].Key)
	assert.Equal(t, "text/csv", files[1].ContentType)
	assert.Equal(t, int64(3), files[1].Size)

	all, err := archive.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteRemovesMetadata(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	require.NoError(t, archive.Store(ctx, "p.csv", []byte("x"), &StoreOptions{ContentType: "text/csv"}))
	require.NoError(t, archive.Delete(ctx, "p.csv"))

	_, err := os.Stat(archive.Path("p.csv") + metadataSuffix)
	assert.True(t, os.IsNotExist(err))
}
