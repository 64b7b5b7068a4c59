// Package natives implements the native-library extractor (C7).
//
// Generalizes the teacher's extractJar/extractNativesFromLibraries
// (which flatten every .dll/.so/.dylib/.jnilib it can find across all
// jars under libraries/, sniffing by filename pattern) into the
// spec's explicit model: only libraries whose rules allow the current
// env and whose natives_map names a classifier present in
// classifier_artifacts are opened, and extract_excludes prefixes are
// honored per entry rather than a hardcoded META-INF/ skip.
package natives

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/voxelforge/launcher-core/internal/coordinate"
	"github.com/voxelforge/launcher-core/internal/launchererr"
	"github.com/voxelforge/launcher-core/internal/manifest"
	"github.com/voxelforge/launcher-core/internal/rules"
	"github.com/voxelforge/launcher-core/internal/store"
	"github.com/voxelforge/launcher-core/internal/telemetry"
)

// Stage extracts every rule-allowed native library's archive for
// env into outDir, in library source order, per §4.7. Later
// libraries may overwrite files extracted by earlier ones
// (last-writer-wins, §9 Open Question); an overwrite logs a warning
// but never aborts the operation.
func Stage(detail manifest.Detail, st *store.Store, env rules.Env, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return launchererr.Wrap(launchererr.KindIO, outDir, err)
	}

	log := telemetry.L()
	osKey := rules.OSKey(env)

	for _, lib := range detail.Libraries {
		if rules.Evaluate(lib.Rules, env) != rules.Allow {
			continue
		}
		classifier, ok := lib.NativesMap[osKey]
		if !ok {
			continue
		}
		artifact, ok := lib.ClassifierArtifact[classifier]
		if !ok {
			continue
		}

		archivePath := resolveArchivePath(st, lib, artifact)
		if err := extractArchive(archivePath, outDir, lib.ExtractExcludes, log); err != nil {
			log.Warn("failed extracting native archive", zap.String("library", lib.Coordinate), zap.Error(err))
			return err
		}
	}
	return nil
}

func resolveArchivePath(st *store.Store, lib manifest.Library, artifact manifest.Artifact) string {
	rel := artifact.RelativePath
	if rel == "" {
		if c, err := coordinate.Parse(lib.Coordinate); err == nil {
			rel = c.ToPath("", "")
		}
	}
	return st.LibraryPath(rel)
}

// excluded reports whether name starts with any of the exclude
// prefixes (§4.7 step 2).
func excluded(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// extractArchive unzips archivePath into outDir, skipping entries
// whose name matches an exclude prefix. Failing to open the archive or
// to create an output directory is returned as an error. An entry that
// cannot be read or written to its output file is logged and skipped,
// and extraction goes on with the next entry.
func extractArchive(archivePath, outDir string, excludePrefixes []string, log *zap.Logger) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return launchererr.Wrap(launchererr.KindIO, archivePath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if excluded(f.Name, excludePrefixes) {
			continue
		}
		destPath := filepath.Join(outDir, filepath.FromSlash(f.Name))

		if !withinDir(destPath, outDir) {
			log.Warn("skipping native archive entry escaping staging directory", zap.String("entry", f.Name))
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return launchererr.Wrap(launchererr.KindIO, destPath, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return launchererr.Wrap(launchererr.KindIO, destPath, err)
		}

		if _, err := os.Stat(destPath); err == nil {
			log.Warn("native extraction overwriting file from an earlier library", zap.String("path", destPath))
		}

		if err := extractEntry(f, destPath); err != nil {
			log.Warn("skipping unreadable native archive entry", zap.String("entry", f.Name), zap.Error(err))
			continue
		}
	}
	return nil
}

// withinDir reports whether cleaned is outDir itself or a descendant of
// it, rejecting a zip entry name (e.g. "../../../etc/cron.d/x") that
// would otherwise resolve outside the staging directory (zip-slip).
func withinDir(cleaned, outDir string) bool {
	cleaned = filepath.Clean(cleaned)
	outDir = filepath.Clean(outDir)
	if cleaned == outDir {
		return true
	}
	return strings.HasPrefix(cleaned, outDir+string(filepath.Separator))
}

func extractEntry(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
