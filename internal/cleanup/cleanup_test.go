package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path string, size int) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.jpg"), 10)
	write(t, filepath.Join(dir, "._a.jpg"), 4)
	write(t, filepath.Join(dir, ".DS_Store"), 6)
	write(t, filepath.Join(dir, "sub", ".DS_Store"), 8)
	write(t, filepath.Join(dir, "sub", "clip.MOV"), 100)
	write(t, filepath.Join(dir, "sub", "clip.mp4"), 50)
	write(t, filepath.Join(dir, "sub", "b.png"), 10)
	return dir
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name   string
		videos bool
		want   bool
	}{
		{"._IMG_0001.jpg", false, true},
		{".DS_Store", false, true},
		{"IMG_0001.jpg", false, false},
		{"clip.MOV", false, false},
		{"clip.MOV", true, true},
		{"clip.mp4", true, true},
		{"clip.avi", true, false},
		{"DS_Store", false, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Matches(tc.name, Options{RemoveVideos: tc.videos}), "%s videos=%v", tc.name, tc.videos)
	}
}

func TestFind(t *testing.T) {
	dir := fixture(t)

	files, err := Find(dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, ".DS_Store"),
		filepath.Join(dir, "._a.jpg"),
		filepath.Join(dir, "sub", ".DS_Store"),
	}, files)

	files, err = Find(dir, Options{RemoveVideos: true})
	require.NoError(t, err)
	assert.Len(t, files, 5)

	_, err = Find(filepath.Join(dir, "a.jpg"), Options{})
	assert.ErrorIs(t, err, ErrNotDirectory)
	_, err = Find(filepath.Join(dir, "missing"), Options{})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestRun_DryRun(t *testing.T) {
	dir := fixture(t)

	report, err := Run(context.Background(), dir, Options{DryRun: true, RemoveVideos: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 0, report.Removed)
	assert.Equal(t, int64(4+6+8+100+50), report.BytesFreed)
	for _, f := range report.Files {
		assert.FileExists(t, f)
	}
}

func TestRun_Removes(t *testing.T) {
	dir := fixture(t)

	report, err := Run(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Removed)
	assert.Equal(t, int64(18), report.BytesFreed)
	assert.Empty(t, report.Failures)

	assert.NoFileExists(t, filepath.Join(dir, "._a.jpg"))
	assert.FileExists(t, filepath.Join(dir, "a.jpg"))
	assert.FileExists(t, filepath.Join(dir, "sub", "clip.MOV"))

	again, err := Run(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Removed)
	assert.Empty(t, again.Files)
}
