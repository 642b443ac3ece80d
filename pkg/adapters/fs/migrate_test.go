package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notefold/pkg/adapters/fs"
	"github.com/aretw0/notefold/pkg/core"
)

// setupLegacy lays out a store root next to legacy notes/ and folders/ dirs.
func setupLegacy(t *testing.T) (repo *fs.Repository, root, notesDir, foldersDir string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "store")
	notesDir = filepath.Join(base, "notes")
	foldersDir = filepath.Join(base, "folders")

	repo, _ = setupRepo(t, func(c *fs.Config) {
		c.Path = root
		c.LegacyNotesDir = notesDir
		c.LegacyFoldersDir = foldersDir
	})
	return repo, root, notesDir, foldersDir
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	t.Run("No Legacy Store Is A No-Op", func(t *testing.T) {
		repo, _, _, _ := setupLegacy(t)
		report, err := repo.Migrate(ctx)
		require.NoError(t, err)
		assert.True(t, report.Skipped)
	})

	t.Run("Builds Tree And Relocates Notes", func(t *testing.T) {
		repo, root, notesDir, foldersDir := setupLegacy(t)

		writeFile(t, filepath.Join(foldersDir, "f1.json"), `{"id":"f1","name":"Work","parentId":null,"icon":"briefcase","createdAt":1700000000000}`)
		writeFile(t, filepath.Join(foldersDir, "f2.json"), `{"id":"f2","name":"Plans: 2024","parentId":"f1"}`)
		writeFile(t, filepath.Join(foldersDir, "nameless.json"), `{"name":"Stem"}`)
		writeFile(t, filepath.Join(foldersDir, "broken.json"), `{not json`)

		writeFile(t, filepath.Join(notesDir, "a.md"), "---\nid: a\nfolderId: f2\ntitle: A\n---\nbody a")
		writeFile(t, filepath.Join(notesDir, "b.md"), "---\nid: b\n---\nbody b")
		writeFile(t, filepath.Join(notesDir, "c.md"), "---\nid: c\nfolderId: missing\n---\nbody c")
		writeFile(t, filepath.Join(notesDir, "ignored.txt"), "x")

		require.True(t, repo.HasLegacyNotes())
		require.True(t, repo.HasLegacyFolders())

		report, err := repo.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Folders)
		assert.Equal(t, 3, report.Notes)
		assert.Equal(t, 1, report.Fallbacks)
		assert.Len(t, report.BackedUp, 2)

		assert.FileExists(t, filepath.Join(root, "Work", "Plans_ 2024", "a.md"))
		assert.FileExists(t, filepath.Join(root, "Uncategorized", "b.md"))
		assert.FileExists(t, filepath.Join(root, "Uncategorized", "c.md"))
		assert.Equal(t, "nameless", readSidecarID(t, filepath.Join(root, "Stem")))

		assert.False(t, repo.HasLegacyNotes())
		assert.False(t, repo.HasLegacyFolders())
		assert.DirExists(t, notesDir+fs.BackupSuffix)
		assert.DirExists(t, foldersDir+fs.BackupSuffix)
		assert.FileExists(t, filepath.Join(notesDir+fs.BackupSuffix, "a.md"), "originals are kept")

		res, err := repo.Scan(ctx)
		require.NoError(t, err)
		assert.Len(t, res.Notes, 3)
		assert.Len(t, res.Folders, 3)
		for _, f := range res.Folders {
			if f.ID == "f1" {
				assert.Equal(t, "briefcase", f.Icon)
				assert.Equal(t, "1700000000000", f.CreatedAt)
			}
		}
		for _, n := range res.Notes {
			if n.ID == "a" {
				assert.Equal(t, "f2", n.FolderID)
			}
		}

		t.Run("Second Run Is A No-Op", func(t *testing.T) {
			report, err := repo.Migrate(ctx)
			require.NoError(t, err)
			assert.True(t, report.Skipped)

			res, err := repo.Scan(ctx)
			require.NoError(t, err)
			assert.Len(t, res.Notes, 3)
			assert.Empty(t, res.Duplicates)
		})
	})

	t.Run("Cyclic Parents Terminate", func(t *testing.T) {
		repo, root, _, foldersDir := setupLegacy(t)
		writeFile(t, filepath.Join(foldersDir, "A.json"), `{"id":"A","name":"Alpha","parentId":"B"}`)
		writeFile(t, filepath.Join(foldersDir, "B.json"), `{"id":"B","name":"Beta","parentId":"A"}`)

		done := make(chan struct{})
		var report fs.MigrationReport
		var err error
		go func() {
			defer close(done)
			report, err = repo.Migrate(ctx)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("migration did not terminate")
		}
		require.NoError(t, err)
		assert.Equal(t, 2, report.Folders)
		assert.DirExists(t, filepath.Join(root, "Beta", "Alpha"))
		assert.NoDirExists(t, filepath.Join(root, "Alpha"))

		folders, err := repo.ListFolders(ctx)
		require.NoError(t, err)
		parents := make(map[string]string, len(folders))
		for _, f := range folders {
			parents[f.ID] = f.ParentID
		}
		assert.Equal(t, map[string]string{"A": "B", "B": ""}, parents)
	})

	t.Run("Sibling Name Collision", func(t *testing.T) {
		repo, root, notesDir, foldersDir := setupLegacy(t)
		writeFile(t, filepath.Join(foldersDir, "f1.json"), `{"id":"f1","name":"A/B"}`)
		writeFile(t, filepath.Join(foldersDir, "f2.json"), `{"id":"f2","name":"A:B"}`)
		writeFile(t, filepath.Join(notesDir, "n1.md"), "---\nid: n1\nfolderId: f1\n---\n")
		writeFile(t, filepath.Join(notesDir, "n2.md"), "---\nid: n2\nfolderId: f2\n---\n")

		report, err := repo.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Folders)
		assert.Equal(t, 1, report.Collisions)
		assert.FileExists(t, filepath.Join(root, "A_B", "n1.md"))
		assert.FileExists(t, filepath.Join(root, "A_B (2)", "n2.md"))

		notes, err := repo.ListNotes(ctx)
		require.NoError(t, err)
		byID := make(map[string]string, len(notes))
		for _, n := range notes {
			byID[n.ID] = n.FolderID
		}
		assert.Equal(t, map[string]string{"n1": "f1", "n2": "f2"}, byID)
	})

	t.Run("Backup Pattern Folder Name", func(t *testing.T) {
		repo, root, _, foldersDir := setupLegacy(t)
		writeFile(t, filepath.Join(foldersDir, "t.json"), `{"id":"t","name":"Taxes_old_backup"}`)
		writeFile(t, filepath.Join(foldersDir, "c.json"), `{"id":"c","name":"node_modules","parentId":"t"}`)

		done := make(chan error, 1)
		go func() {
			_, err := repo.Migrate(ctx)
			done <- err
		}()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("migration did not terminate")
		}

		assert.DirExists(t, filepath.Join(root, "Taxes_old_backup (2)", "node_modules (2)"))
		folders, err := repo.ListFolders(ctx)
		require.NoError(t, err)
		assert.Len(t, folders, 2)
	})

	t.Run("Unreadable Note Does Not Stop The Rest", func(t *testing.T) {
		repo, root, notesDir, _ := setupLegacy(t)
		writeFile(t, filepath.Join(notesDir, "good.md"), "---\nid: good\n---\nbody")
		require.NoError(t, os.Symlink(filepath.Join(notesDir, "missing"), filepath.Join(notesDir, "bad.md")))

		report, err := repo.Migrate(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, core.ErrStoreUnavailable)
		assert.Equal(t, 1, report.Notes)
		assert.FileExists(t, filepath.Join(root, "Uncategorized", "good.md"))
		assert.DirExists(t, notesDir+fs.BackupSuffix)
	})

	t.Run("Backup Name Collision", func(t *testing.T) {
		repo, _, notesDir, _ := setupLegacy(t)
		writeFile(t, filepath.Join(notesDir, "n.md"), "---\nid: n\n---\n")
		require.NoError(t, os.MkdirAll(notesDir+fs.BackupSuffix, 0755))

		report, err := repo.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{notesDir + fs.BackupSuffix + "_2"}, report.BackedUp)
	})
}
