package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelforge/launcher-core/internal/manifest"
)

func TestPathConstruction(t *testing.T) {
	s := New("/root/mc")
	assert.Equal(t, filepath.Join("/root/mc", "versions", "1.20.4", "1.20.4.json"), s.VersionDetailPath("1.20.4"))
	assert.Equal(t, filepath.Join("/root/mc", "versions", "1.20.4", "1.20.4.jar"), s.VersionJarPath("1.20.4"))
	assert.Equal(t, filepath.Join("/root/mc", "assets", "indexes", "12.json"), s.AssetIndexPath("12"))
	assert.Equal(t, filepath.Join("/root/mc", "assets", "objects", "ab", "abcdef"), s.AssetObjectPath("abcdef"))
	assert.Equal(t, filepath.Join("/root/mc", "natives", "1.20.4"), s.NativesDir(manifest.VersionID("1.20.4")))
}

func TestAtomicWriteThenVerify(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	dest := filepath.Join(dir, "libraries", "a", "b.jar")

	err := s.AtomicWrite(dest, func(w io.Writer) error {
		_, err := w.Write([]byte("hello world"))
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	// no leftover temp files
	entries, _ := os.ReadDir(filepath.Dir(dest))
	assert.Len(t, entries, 1)
}

func TestAtomicWriteFailureLeavesDestUntouched(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	dest := filepath.Join(dir, "x.jar")

	require.NoError(t, os.WriteFile(dest, []byte("original"), 0o644))

	err := s.AtomicWrite(dest, func(w io.Writer) error {
		return assertErr{}
	})
	require.Error(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1) // only x.jar, temp file was cleaned up
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestAtomicWriteVerifiedRejectsBeforeCommit(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	dest := filepath.Join(dir, "v.jar")

	err := s.AtomicWriteVerified(dest, func(w io.Writer) error {
		_, err := w.Write([]byte("bad content"))
		return err
	}, func() error {
		return assertErr{}
	})
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "dest must never appear when verify fails")

	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 0, "temp file cleaned up")
}

func TestAtomicWriteVerifiedCommitsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	dest := filepath.Join(dir, "v.jar")

	err := s.AtomicWriteVerified(dest, func(w io.Writer) error {
		_, err := w.Write([]byte("good content"))
		return err
	}, func() error {
		return nil
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "good content", string(data))
}

func TestExistsWithSizeAndHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	sum, err := Sha1Hex(path)
	require.NoError(t, err)

	assert.True(t, ExistsWith(path, int64(len("content")), sum))
	assert.False(t, ExistsWith(path, int64(len("content")), "0000000000000000000000000000000000000000"))
	assert.False(t, ExistsWith(path, 999, sum))
	assert.False(t, ExistsWith(filepath.Join(dir, "missing"), 0, ""))
}

func TestDeleteMismatchedIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, DeleteMismatched(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, DeleteMismatched(path)) // already gone, still fine
}
