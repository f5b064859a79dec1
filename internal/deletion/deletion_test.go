package deletion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/kozaktomas/photo-dedup/internal/sidecar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func loadStore(t *testing.T, dir, content string) *sidecar.Store {
	t.Helper()
	path := filepath.Join(dir, "image_data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	s, err := sidecar.Load(path)
	require.NoError(t, err)
	return s
}

func readPaths(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		var obj struct {
			Images []map[string]any `json:"images"`
		}
		require.NoError(t, json.Unmarshal(data, &obj))
		items = obj.Images
	}
	var out []string
	for _, it := range items {
		p, _ := it["path"].(string)
		out = append(out, p)
	}
	return out
}

func TestApply_Direct(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.jpg"))
	b := touch(t, filepath.Join(dir, "b.jpg"))
	keep := touch(t, filepath.Join(dir, "keep.jpg"))

	c := New(dir)
	assert.False(t, c.SidecarAware())

	summary, err := c.Apply(context.Background(), []string{a, b, a, filepath.Join(dir, "gone.jpg")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FilesDeleted)
	assert.Equal(t, 1, summary.FilesMissing)
	assert.Equal(t, 0, summary.Failed)
	assert.False(t, summary.SidecarWritten)

	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
	assert.FileExists(t, keep)
}

func TestApply_Idempotent(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.jpg"))

	c := New(dir)
	_, err := c.Apply(context.Background(), []string{a}, nil)
	require.NoError(t, err)

	summary, err := c.Apply(context.Background(), []string{a}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.FilesDeleted)
	assert.Equal(t, 1, summary.FilesMissing)
	assert.Equal(t, 0, summary.Failed)
}

func TestApply_SidecarList(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.jpg"))
	touch(t, filepath.Join(dir, "thumbs", "a.jpg"))
	touch(t, filepath.Join(dir, "b.jpg"))
	touch(t, filepath.Join(dir, "c.jpg"))

	store := loadStore(t, dir, `[
		{"path": "a.jpg", "thumbnail": "thumbs/a.jpg"},
		{"path": "b.jpg"},
		{"path": "c.jpg"}
	]`)

	var progressed []string
	c := New(dir, WithSidecar(store), WithProgress(func(p string) { progressed = append(progressed, p) }))
	require.True(t, c.SidecarAware())

	summary, err := c.Apply(context.Background(), []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "c.jpg")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.RemovedFromSidecar)
	assert.Equal(t, 3, summary.FilesDeleted, "thumbnail goes with its record")
	assert.True(t, summary.SidecarWritten)
	assert.Len(t, progressed, 3)

	assert.NoFileExists(t, filepath.Join(dir, "thumbs", "a.jpg"))
	assert.FileExists(t, filepath.Join(dir, "b.jpg"))
	assert.Equal(t, []string{"b.jpg"}, readPaths(t, store.Path()))
}

func TestApply_SidecarObjectPreservesMetadata(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.jpg"))
	touch(t, filepath.Join(dir, "b.jpg"))

	store := loadStore(t, dir, `{"album": "summer", "images": [{"path": "a.jpg"}, {"path": "b.jpg"}]}`)
	c := New(dir, WithSidecar(store))

	_, err := c.Apply(context.Background(), []string{filepath.Join(dir, "b.jpg")}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, "summer", obj["album"])
	assert.Equal(t, []string{"a.jpg"}, readPaths(t, store.Path()))
}

func TestApply_SidecarRecordWithMissingFile(t *testing.T) {
	dir := t.TempDir()
	store := loadStore(t, dir, `[{"path": "a.jpg"}, {"path": "b.jpg"}]`)
	c := New(dir, WithSidecar(store))

	summary, err := c.Apply(context.Background(), []string{filepath.Join(dir, "a.jpg")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RemovedFromSidecar)
	assert.Equal(t, 1, summary.FilesMissing)
	assert.Equal(t, []string{"b.jpg"}, readPaths(t, store.Path()))
}

func TestApply_SidecarUncoveredTarget(t *testing.T) {
	dir := t.TempDir()
	stray := touch(t, filepath.Join(dir, "stray.jpg"))
	touch(t, filepath.Join(dir, "a.jpg"))
	store := loadStore(t, dir, `[{"path": "a.jpg"}]`)
	before, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	summary, err := New(dir, WithSidecar(store)).Apply(context.Background(), []string{stray}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesDeleted)
	assert.Equal(t, 0, summary.RemovedFromSidecar)
	assert.False(t, summary.SidecarWritten, "nothing dropped, nothing written")
	assert.NoFileExists(t, stray)

	after, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApply_FailureKeepsRecord(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.jpg"))
	b := touch(t, filepath.Join(dir, "b.jpg"))
	store := loadStore(t, dir, `[{"path": "a.jpg"}, {"path": "b.jpg"}, {"path": "c.jpg"}]`)

	c := New(dir, WithSidecar(store))
	c.remove = func(path string) error {
		if path == a {
			return errors.New("permission denied")
		}
		return os.Remove(path)
	}

	summary, err := c.Apply(context.Background(), []string{a, b}, nil)
	require.NoError(t, err, "a single failure does not fail the batch")

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, a, summary.Failures[0].Path)
	assert.Equal(t, 1, summary.FilesDeleted)
	assert.Equal(t, 1, summary.RemovedFromSidecar)

	assert.FileExists(t, a)
	assert.NoFileExists(t, b)
	assert.Equal(t, []string{"a.jpg", "c.jpg"}, readPaths(t, store.Path()))
}

func TestApply_DirectoryIsFailure(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "album.jpg")
	require.NoError(t, os.Mkdir(sub, 0o755))

	summary, err := New(dir).Apply(context.Background(), []string{sub}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.DirExists(t, sub)
}

func TestApply_Cancelled(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.jpg"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(dir).Apply(ctx, []string{a}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.FilesDeleted)
	assert.FileExists(t, a)
}

func TestApply_Empty(t *testing.T) {
	dir := t.TempDir()
	store := loadStore(t, dir, `[{"path": "a.jpg"}]`)

	summary, err := New(dir, WithSidecar(store)).Apply(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, *summary)
}

func TestApply_ThumbnailTargetLeavesRecordImage(t *testing.T) {
	dir := t.TempDir()
	keeper := touch(t, filepath.Join(dir, "a.jpg"))
	thumb := touch(t, filepath.Join(dir, "thumbs", "a.jpg"))
	store := loadStore(t, dir, `[{"path": "a.jpg", "thumbnail": "thumbs/a.jpg"}]`)

	summary, err := New(dir, WithSidecar(store)).Apply(context.Background(), []string{thumb}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesDeleted)
	assert.Equal(t, 0, summary.RemovedFromSidecar)
	assert.False(t, summary.SidecarWritten)
	assert.NoFileExists(t, thumb)
	assert.FileExists(t, keeper)
	assert.Equal(t, []string{"a.jpg"}, readPaths(t, store.Path()))
}

func TestApply_KeeperAsThumbnailSurvives(t *testing.T) {
	dir := t.TempDir()
	keeper := touch(t, filepath.Join(dir, "a.jpg"))
	dup := touch(t, filepath.Join(dir, "copies", "a.jpg"))
	store := loadStore(t, dir, `[{"path": "copies/a.jpg", "thumbnail": "a.jpg"}, {"path": "b.jpg"}]`)

	summary, err := New(dir, WithSidecar(store)).Apply(context.Background(), []string{dup}, []string{keeper})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesDeleted)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.RemovedFromSidecar)
	assert.NoFileExists(t, dup)
	assert.FileExists(t, keeper)
	assert.Equal(t, []string{"b.jpg"}, readPaths(t, store.Path()))
}

func TestApply_ProtectedTargetIsFailure(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.jpg"))

	summary, err := New(dir).Apply(context.Background(), []string{a}, []string{a})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.FileExists(t, a)
}

func TestApply_FilenameOnlyRecordKeptOnFailure(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.jpg"))
	store := loadStore(t, dir, `[{"filename": "a.jpg", "score": 1}]`)

	c := New(dir, WithSidecar(store))
	c.remove = func(string) error { return errors.New("permission denied") }

	summary, err := c.Apply(context.Background(), []string{a}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.RemovedFromSidecar)
	assert.False(t, summary.SidecarWritten)
	assert.FileExists(t, a)
	assert.Len(t, store.Records(), 1)
}

func TestApply_FilenameOnlyRecordDropped(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.jpg"))
	store := loadStore(t, dir, `[{"filename": "a.jpg"}, {"path": "b.jpg"}]`)

	summary, err := New(dir, WithSidecar(store)).Apply(context.Background(), []string{a}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesDeleted)
	assert.Equal(t, 1, summary.RemovedFromSidecar)
	assert.NoFileExists(t, a)
	assert.Equal(t, []string{"b.jpg"}, readPaths(t, store.Path()))
}
