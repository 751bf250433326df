package store

import (
	"os"
	"path/filepath"
	"testing"

	"nodedeck/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProjectStore(t *testing.T) (*ProjectStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewProjectStore(dir, zerolog.Nop()), dir
}

func TestProjectStoreEmpty(t *testing.T) {
	s, _ := newProjectStore(t)

	projects := s.Load()
	assert.NotNil(t, projects)
	assert.Empty(t, projects)
}

func TestProjectStoreAddGetRemove(t *testing.T) {
	s, _ := newProjectStore(t)

	added, err := s.Add(models.Project{ID: "myapp-0000000001", Name: "my-app", Path: "/Users/dev/my-app"})
	require.NoError(t, err)
	assert.False(t, added.CreatedAt.IsZero())

	got, err := s.Get("myapp-0000000001")
	require.NoError(t, err)
	assert.Equal(t, "my-app", got.Name)

	removed, err := s.Remove("myapp-0000000001")
	require.NoError(t, err)
	assert.Equal(t, "/Users/dev/my-app", removed.Path)

	_, err = s.Get("myapp-0000000001")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	_, err = s.Remove("myapp-0000000001")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectStoreRejectsDuplicates(t *testing.T) {
	s, _ := newProjectStore(t)

	_, err := s.Add(models.Project{ID: "a", Name: "a", Path: "/srv/a"})
	require.NoError(t, err)

	_, err = s.Add(models.Project{ID: "a", Name: "other", Path: "/srv/other"})
	assert.ErrorIs(t, err, ErrProjectExists)

	_, err = s.Add(models.Project{ID: "b", Name: "b", Path: "/srv/a/"})
	assert.ErrorIs(t, err, ErrProjectExists)

	assert.Len(t, s.Load(), 1)
}

func TestProjectStoreUpdateKeepsID(t *testing.T) {
	s, _ := newProjectStore(t)
	added, err := s.Add(models.Project{ID: "a", Name: "a", Path: "/srv/a"})
	require.NoError(t, err)

	updated, err := s.Update("a", func(p *models.Project) {
		p.ID = "changed"
		p.Name = "renamed"
	})
	require.NoError(t, err)
	assert.Equal(t, "a", updated.ID)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, added.CreatedAt, updated.CreatedAt)

	_, err = s.Update("missing", func(*models.Project) {})
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjectStoreWritesBackup(t *testing.T) {
	s, dir := newProjectStore(t)
	_, err := s.Add(models.Project{ID: "a", Name: "a", Path: "/srv/a"})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "projects.json.backup"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Add(models.Project{ID: "b", Name: "b", Path: "/srv/b"})
	require.NoError(t, err)

	var backup []models.Project
	require.NoError(t, decodeFile(filepath.Join(dir, "projects.json.backup"), &backup))
	require.Len(t, backup, 1)
	assert.Equal(t, "a", backup[0].ID)
}

func TestProjectStoreFallsBackToBackup(t *testing.T) {
	s, dir := newProjectStore(t)
	_, err := s.Add(models.Project{ID: "a", Name: "a", Path: "/srv/a"})
	require.NoError(t, err)
	_, err = s.Add(models.Project{ID: "b", Name: "b", Path: "/srv/b"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects.json"), []byte("{not json"), 0o644))

	projects := s.Load()
	require.Len(t, projects, 1)
	assert.Equal(t, "a", projects[0].ID)

	// Saving over a corrupt file keeps the good backup.
	_, err = s.Add(models.Project{ID: "c", Name: "c", Path: "/srv/c"})
	require.NoError(t, err)
	var backup []models.Project
	require.NoError(t, decodeFile(filepath.Join(dir, "projects.json.backup"), &backup))
	assert.Len(t, backup, 1)
}

func TestProjectStoreBothCorrupt(t *testing.T) {
	s, dir := newProjectStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects.json"), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects.json.backup"), []byte("garbage"), 0o644))

	assert.Empty(t, s.Load())
}

func TestSettingsStore(t *testing.T) {
	dir := t.TempDir()
	s := NewSettingsStore(dir, zerolog.Nop())

	assert.Equal(t, DefaultSettings(), s.Load())

	saved, err := s.Save(models.Settings{DefaultPackageManager: "pnpm", Editor: "code"})
	require.NoError(t, err)
	assert.Equal(t, "pnpm", saved.DefaultPackageManager)
	assert.Equal(t, "en", saved.Language)
	assert.Equal(t, 200, saved.LogLines)

	assert.Equal(t, saved, s.Load())

	_, err = s.Save(models.Settings{DefaultPackageManager: "bun"})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = s.Save(models.Settings{LogLines: -1})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}
