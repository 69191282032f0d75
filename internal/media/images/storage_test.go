package images

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage(t *testing.T) {
	t.Run("creates storage with valid path", func(t *testing.T) {
		tmpDir := t.TempDir()

		storage, err := NewStorage(tmpDir, "")
		require.NoError(t, err)
		require.NotNil(t, storage)

		info, err := os.Stat(filepath.Join(tmpDir, "images"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("returns error for empty path", func(t *testing.T) {
		storage, err := NewStorage("", "")
		assert.Error(t, err)
		assert.Nil(t, storage)
		assert.Contains(t, err.Error(), "base path cannot be empty")
	})
}

func TestStorage_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("saves nested keys", func(t *testing.T) {
		storage := setupTestStorage(t)
		testData := []byte("test image data")

		require.NoError(t, storage.Put(ctx, "books/1/hero-abc.png", testData))

		data, err := os.ReadFile(storage.Path("books/1/hero-abc.png"))
		require.NoError(t, err)
		assert.Equal(t, testData, data)
	})

	t.Run("overwrites existing object", func(t *testing.T) {
		storage := setupTestStorage(t)

		require.NoError(t, storage.Put(ctx, "books/1/mini.png", []byte("initial data")))
		require.NoError(t, storage.Put(ctx, "books/1/mini.png", []byte("updated data")))

		data, err := storage.Get("books/1/mini.png")
		require.NoError(t, err)
		assert.Equal(t, []byte("updated data"), data)
	})

	t.Run("rejects empty data", func(t *testing.T) {
		storage := setupTestStorage(t)

		err := storage.Put(ctx, "books/1/mini.png", nil)
		assert.ErrorContains(t, err, "image data cannot be empty")
	})

	t.Run("rejects keys escaping the root", func(t *testing.T) {
		storage := setupTestStorage(t)

		for _, key := range []string{"", "../etc/passwd", "/abs/key", "books//x", "books/./x", `books\x`} {
			assert.Error(t, storage.Put(ctx, key, []byte("x")), key)
		}
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		storage := setupTestStorage(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		assert.ErrorIs(t, storage.Put(cancelled, "books/1/mini.png", []byte("x")), context.Canceled)
	})
}

func TestStorage_GetExistsDelete(t *testing.T) {
	ctx := context.Background()
	storage := setupTestStorage(t)
	key := "books/7/hero-1.png"

	_, err := storage.Get(key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.False(t, storage.Exists(key))
	assert.False(t, storage.Exists(""))

	require.NoError(t, storage.Put(ctx, key, []byte("payload")))
	assert.True(t, storage.Exists(key))

	require.NoError(t, storage.Delete(ctx, key))
	assert.False(t, storage.Exists(key))

	// Deleting a missing object is not an error.
	assert.NoError(t, storage.Delete(ctx, key))
}

func TestStorage_URL(t *testing.T) {
	storage, err := NewStorage(t.TempDir(), "https://books.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://books.example.com/media/books/1/hero.png", storage.URL("books/1/hero.png"))

	relative, err := NewStorage(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "/media/books/1/hero.png", relative.URL("books/1/hero.png"))
}

func TestStorage_Concurrent(t *testing.T) {
	ctx := context.Background()
	storage := setupTestStorage(t)
	key := "books/1/hero.png"

	const goroutines = 10
	done := make(chan bool, goroutines)
	for i := range goroutines {
		go func(n int) {
			assert.NoError(t, storage.Put(ctx, key, []byte{byte(n + 1)}))
			done <- true
		}(i)
	}
	for range goroutines {
		<-done
	}

	data, err := storage.Get(key)
	require.NoError(t, err)
	assert.Len(t, data, 1)
}

// setupTestStorage creates a Storage instance with a temporary directory.
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := NewStorage(t.TempDir(), "")
	require.NoError(t, err)
	return storage
}
