// Package store implements the local, content- and path-addressed
// store (C6): path construction plus atomic write/verify primitives.
//
// The teacher downloads straight to the destination file with no
// atomicity (downloader.DownloadFile creates the file in place);
// this package adds the sibling-temp-file-then-rename discipline
// spec §3.3/§4.6 requires, while keeping the teacher's directory
// layout conventions (versions/, libraries/, assets/).
package store

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/voxelforge/launcher-core/internal/manifest"
)

// Store owns a root directory and exposes pure path functions plus
// atomic file primitives. It performs no concurrency control of its
// own (§4.6) — the fetch engine's planner-level dedup is the sole
// guarantor of single-writer-per-path.
type Store struct {
	root string
}

// New returns a Store rooted at root, which must already exist or be
// creatable by the caller's first write.
func New(root string) *Store { return &Store{root: root} }

func (s *Store) Root() string { return s.root }

// VersionDetailPath is versions/<id>/<id>.json.
func (s *Store) VersionDetailPath(id manifest.VersionID) string {
	return filepath.Join(s.root, "versions", string(id), string(id)+".json")
}

// VersionJarPath is versions/<id>/<id>.jar.
func (s *Store) VersionJarPath(id manifest.VersionID) string {
	return filepath.Join(s.root, "versions", string(id), string(id)+".jar")
}

// LibraryPath joins a library-relative path (already produced by
// internal/coordinate) under libraries/.
func (s *Store) LibraryPath(relative string) string {
	return filepath.Join(s.root, "libraries", filepath.FromSlash(relative))
}

// AssetsDir is the assets/ root, exposed whole for launch_params'
// assets_dir (§3.1's legacy pre-1.7 resource layout expects the
// directory itself, not a single file).
func (s *Store) AssetsDir() string {
	return filepath.Join(s.root, "assets")
}

// AssetIndexPath is assets/indexes/<assetsID>.json.
func (s *Store) AssetIndexPath(assetsID string) string {
	return filepath.Join(s.root, "assets", "indexes", assetsID+".json")
}

// AssetObjectPath is assets/objects/<hash[:2]>/<hash>.
func (s *Store) AssetObjectPath(hash string) string {
	return filepath.Join(s.root, "assets", "objects", hash[:2], hash)
}

// NativesDir is the per-launch ephemeral natives staging directory,
// natives/<id>/.
func (s *Store) NativesDir(id manifest.VersionID) string {
	return filepath.Join(s.root, "natives", string(id))
}

// siblingTemp creates atomic_write's sibling temp file for dest; it must be on the same filesystem as dest's directory for
// rename to be atomic, so it lives alongside dest rather than under a
// single shared tmp/ root.
func siblingTemp(dest string) (string, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, filepath.Base(dest)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

// AtomicWrite calls producer with a writer into a sibling temp file in
// dest's directory, then fsyncs and renames the temp file onto dest.
// If producer returns an error, the temp file is removed and the
// error is returned; dest is left untouched.
func (s *Store) AtomicWrite(dest string, producer func(io.Writer) error) error {
	return s.AtomicWriteVerified(dest, producer, nil)
}

// AtomicWriteVerified is AtomicWrite with a verify hook that runs after
// producer returns but before the temp file is fsynced and renamed onto
// dest. A failing verify leaves dest untouched and the temp file
// removed, the same as a producer error — callers that must validate
// content (e.g. a checksum) before it becomes visible under its final
// name use this instead of writing to dest and deleting on mismatch,
// which would briefly expose unverified content at dest (invariant 1).
func (s *Store) AtomicWriteVerified(dest string, producer func(io.Writer) error, verify func() error) error {
	tmpPath, err := siblingTemp(dest)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := producer(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if verify != nil {
		if err := verify(); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return err
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return err
	}
	syncParent(dest)
	return nil
}

// syncParent fsyncs dest's parent directory so the rename is durable
// across a crash, best-effort (some platforms/filesystems do not
// support directory fsync; errors are ignored here since this is a
// durability nicety, not a correctness requirement of invariant 1,
// which only concerns the file's content once it exists).
func syncParent(dest string) {
	dir, err := os.Open(filepath.Dir(dest))
	if err != nil {
		return
	}
	defer dir.Close()
	_ = dir.Sync()
}

// Sha1Hex computes the lowercase hex SHA-1 of path's content.
func Sha1Hex(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ExistsWith reports whether path exists, has the expected size, and
// hashes to expectedSHA1 — the C6 fast-path check used by the fetch
// engine (§4.5.1 step 1) and by the "already installed" check (§3.3).
func ExistsWith(path string, expectedSize int64, expectedSHA1 string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if expectedSize >= 0 && info.Size() != expectedSize {
		return false
	}
	if expectedSHA1 == "" {
		return true
	}
	sum, err := Sha1Hex(path)
	if err != nil {
		return false
	}
	return sum == expectedSHA1
}

// DeleteMismatched removes path if it exists; used by the fetch
// engine's mismatch path (§4.5.1 step 2) and enforces invariant 1
// (verification failure must delete the file).
func DeleteMismatched(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
