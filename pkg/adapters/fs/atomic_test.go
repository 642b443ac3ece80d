package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("Creates New File", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "test.txt")
		content := []byte("hello atomic")

		if err := writeFileAtomic(filename, content, 0644); err != nil {
			t.Fatalf("writeFileAtomic failed: %v", err)
		}

		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Fatal("File was not created")
		}

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(got) != string(content) {
			t.Errorf("Expected content 'hello atomic', got '%s'", string(got))
		}
	})

	t.Run("Overwrites Existing File", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "test.txt")

		if err := os.WriteFile(filename, []byte("initial"), 0644); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}

		newContent := []byte("overwritten")
		if err := writeFileAtomic(filename, newContent, 0644); err != nil {
			t.Fatalf("writeFileAtomic failed: %v", err)
		}

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(got) != string(newContent) {
			t.Errorf("Expected content 'overwritten', got '%s'", string(got))
		}
	})

	t.Run("Respects Permissions", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "perm.txt")

		if err := writeFileAtomic(filename, []byte("secret"), 0600); err != nil {
			t.Fatalf("writeFileAtomic failed: %v", err)
		}

		info, err := os.Stat(filename)
		if err != nil {
			t.Fatal(err)
		}
		t.Logf("File permissions: %v", info.Mode())
	})

	t.Run("Fails if Directory Missing", func(t *testing.T) {
		tmpDir := t.TempDir()
		filename := filepath.Join(tmpDir, "missing_folder", "test.txt")

		err := writeFileAtomic(filename, []byte("fail"), 0644)
		if err == nil {
			t.Error("Expected error when directory is missing, got nil")
		}
	})
}

func TestCopyTree(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	dst := filepath.Join(t.TempDir(), "dst")

	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("from src"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "b.md"), []byte("nested"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, TempFilePrefix+"123"), []byte("partial"), 0644))

	require.NoError(t, os.MkdirAll(dst, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "a.md"), []byte("from dst"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "keep.md"), []byte("keep"), 0644))

	require.NoError(t, copyTree(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "from src", string(got), "same-named files are overwritten")

	assert.FileExists(t, filepath.Join(dst, "keep.md"))
	assert.FileExists(t, filepath.Join(dst, "nested", "b.md"))
	assert.NoFileExists(t, filepath.Join(dst, TempFilePrefix+"123"))
	assert.FileExists(t, filepath.Join(src, "a.md"), "source is left in place")
}

func TestIsWithin(t *testing.T) {
	root := filepath.Join("store", "Work")
	assert.True(t, isWithin(root, root))
	assert.True(t, isWithin(filepath.Join(root, "Sub"), root))
	assert.False(t, isWithin(filepath.Join("store", "Workshop"), root))
	assert.False(t, isWithin("store", root))
}
