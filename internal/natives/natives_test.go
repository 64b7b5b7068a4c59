package natives

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelforge/launcher-core/internal/manifest"
	"github.com/voxelforge/launcher-core/internal/rules"
	"github.com/voxelforge/launcher-core/internal/store"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestStageExtractsAllowedNativeLibrary(t *testing.T) {
	dir := t.TempDir()
	st := store.New(dir)
	env := rules.Env{OSFamily: rules.Linux, Arch: rules.X64, Features: map[string]bool{}}

	archivePath := st.LibraryPath("org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar")
	writeZip(t, archivePath, map[string]string{
		"liblwjgl.so":       "binary-content",
		"META-INF/MANIFEST": "should be excluded",
	})

	detail := manifest.Detail{
		Libraries: []manifest.Library{
			{
				Coordinate: "org.lwjgl:lwjgl:3.3.1:natives-linux",
				NativesMap: map[string]string{"linux": "natives-linux"},
				ClassifierArtifact: map[string]manifest.Artifact{
					"natives-linux": {RelativePath: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar"},
				},
				ExtractExcludes: []string{"META-INF/"},
			},
		},
	}

	outDir := filepath.Join(dir, "natives", "1.20.4")
	err := Stage(detail, st, env, outDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "liblwjgl.so"))
	require.NoError(t, err)
	assert.Equal(t, "binary-content", string(data))

	_, err = os.Stat(filepath.Join(outDir, "META-INF", "MANIFEST"))
	assert.True(t, os.IsNotExist(err), "excluded prefix must not be extracted")
}

func TestStageSkipsDeniedLibrary(t *testing.T) {
	dir := t.TempDir()
	st := store.New(dir)
	env := rules.Env{OSFamily: rules.Windows, Features: map[string]bool{}}

	detail := manifest.Detail{
		Libraries: []manifest.Library{
			{
				Coordinate: "org.lwjgl:lwjgl:3.3.1:natives-linux",
				NativesMap: map[string]string{"linux": "natives-linux"},
				ClassifierArtifact: map[string]manifest.Artifact{
					"natives-linux": {RelativePath: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar"},
				},
				Rules: []rules.Rule{{Action: rules.Allow, OS: &rules.OSPredicate{Name: "linux"}}},
			},
		},
	}

	outDir := filepath.Join(dir, "natives", "1.20.4")
	err := Stage(detail, st, env, outDir)
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageSkipsLibraryWithNoNativeForOS(t *testing.T) {
	dir := t.TempDir()
	st := store.New(dir)
	env := rules.Env{OSFamily: rules.MacOS, Features: map[string]bool{}}

	detail := manifest.Detail{
		Libraries: []manifest.Library{
			{
				Coordinate: "org.lwjgl:lwjgl:3.3.1",
				MainArtifact: &manifest.Artifact{RelativePath: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar"},
			},
		},
	}

	outDir := filepath.Join(dir, "natives", "1.20.4")
	err := Stage(detail, st, env, outDir)
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageLastWriterWinsOnCollision(t *testing.T) {
	dir := t.TempDir()
	st := store.New(dir)
	env := rules.Env{OSFamily: rules.Linux, Features: map[string]bool{}}

	firstArchive := st.LibraryPath("first/natives.jar")
	secondArchive := st.LibraryPath("second/natives.jar")
	writeZip(t, firstArchive, map[string]string{"shared.so": "from-first"})
	writeZip(t, secondArchive, map[string]string{"shared.so": "from-second"})

	detail := manifest.Detail{
		Libraries: []manifest.Library{
			{
				Coordinate:         "pkg:first:1.0:natives-linux",
				NativesMap:         map[string]string{"linux": "natives-linux"},
				ClassifierArtifact: map[string]manifest.Artifact{"natives-linux": {RelativePath: "first/natives.jar"}},
			},
			{
				Coordinate:         "pkg:second:1.0:natives-linux",
				NativesMap:         map[string]string{"linux": "natives-linux"},
				ClassifierArtifact: map[string]manifest.Artifact{"natives-linux": {RelativePath: "second/natives.jar"}},
			},
		},
	}

	outDir := filepath.Join(dir, "natives", "1.20.4")
	err := Stage(detail, st, env, outDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "shared.so"))
	require.NoError(t, err)
	assert.Equal(t, "from-second", string(data), "later library in source order wins")
}

func TestStageSkipsZipSlipEntry(t *testing.T) {
	dir := t.TempDir()
	st := store.New(dir)
	env := rules.Env{OSFamily: rules.Linux, Arch: rules.X64, Features: map[string]bool{}}

	archivePath := st.LibraryPath("org/evil/evil/1.0/evil-1.0-natives-linux.jar")
	writeZip(t, archivePath, map[string]string{
		"../../../../etc/cron.d/evil": "malicious",
		"liblwjgl.so":                 "binary-content",
	})

	detail := manifest.Detail{
		Libraries: []manifest.Library{
			{
				Coordinate: "org.evil:evil:1.0:natives-linux",
				NativesMap: map[string]string{"linux": "natives-linux"},
				ClassifierArtifact: map[string]manifest.Artifact{
					"natives-linux": {RelativePath: "org/evil/evil/1.0/evil-1.0-natives-linux.jar"},
				},
			},
		},
	}

	outDir := filepath.Join(dir, "natives", "1.20.4")
	err := Stage(detail, st, env, outDir)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "etc", "cron.d", "evil"))
	assert.True(t, os.IsNotExist(statErr), "entry escaping outDir must not be written anywhere under the store root")

	data, err := os.ReadFile(filepath.Join(outDir, "liblwjgl.so"))
	require.NoError(t, err)
	assert.Equal(t, "binary-content", string(data), "well-behaved entries in the same archive still extract")
}

func TestExcludedMatchesPrefix(t *testing.T) {
	prefixes := []string{"META-INF/", "docs/"}
	assert.True(t, excluded("META-INF/MANIFEST.MF", prefixes))
	assert.True(t, excluded("docs/readme.txt", prefixes))
	assert.False(t, excluded("liblwjgl.so", prefixes))
}
