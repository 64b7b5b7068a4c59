package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelforge/launcher-core/internal/manifest"
	"github.com/voxelforge/launcher-core/internal/rules"
	"github.com/voxelforge/launcher-core/internal/store"
)

func sampleDetail() manifest.Detail {
	return manifest.Detail{
		ID:       "1.20.4",
		AssetsID: "12",
		Downloads: map[string]manifest.Artifact{
			"client": {URL: "https://x/client.jar", SHA1: "a", SizeBytes: 10},
		},
		AssetIndexRef: manifest.AssetIndexRef{URL: "https://x/12.json", SHA1: "b", SizeBytes: 20},
		Libraries: []manifest.Library{
			{
				Coordinate:   "org.lwjgl:lwjgl:3.3.1",
				MainArtifact: &manifest.Artifact{URL: "https://x/lwjgl.jar", SHA1: "c", SizeBytes: 30, RelativePath: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar"},
			},
			{
				Coordinate: "org.lwjgl:lwjgl:3.3.1:natives-linux",
				NativesMap: map[string]string{"linux": "natives-linux", "windows": "natives-windows"},
				ClassifierArtifact: map[string]manifest.Artifact{
					"natives-linux":   {URL: "https://x/lwjgl-linux.jar", SHA1: "d", SizeBytes: 5, RelativePath: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar"},
					"natives-windows": {URL: "https://x/lwjgl-win.jar", SHA1: "e", SizeBytes: 6, RelativePath: "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-windows.jar"},
				},
			},
			{
				Coordinate:   "windows-only:lib:1.0",
				MainArtifact: &manifest.Artifact{URL: "https://x/winonly.jar", SHA1: "f", SizeBytes: 1, RelativePath: "windows-only/lib/1.0/lib-1.0.jar"},
				Rules:        []rules.Rule{{Action: rules.Deny}, {Action: rules.Allow, OS: &rules.OSPredicate{Name: "windows"}}},
			},
		},
	}
}

func TestPlanOrderAndContent(t *testing.T) {
	st := store.New("/mc")
	env := rules.Env{OSFamily: rules.Linux, Features: map[string]bool{}}

	tasks, err := Plan(sampleDetail(), env, st)
	require.NoError(t, err)

	require.Len(t, tasks, 4) // client, asset index, lwjgl main, lwjgl native-linux (windows-only lib denied on linux)
	assert.Equal(t, CategoryClient, tasks[0].Category)
	assert.Equal(t, CategoryAssetIndex, tasks[1].Category)

	var sawMain, sawNative bool
	for _, tk := range tasks[2:] {
		switch tk.Category {
		case CategoryLibrary:
			sawMain = true
		case CategoryNative:
			sawNative = true
			assert.Contains(t, tk.DestRelativePath, "natives-linux")
		}
	}
	assert.True(t, sawMain)
	assert.True(t, sawNative)
}

func TestPlanDedupesByDestPath(t *testing.T) {
	st := store.New("/mc")
	env := rules.Env{OSFamily: rules.Linux, Features: map[string]bool{}}
	detail := sampleDetail()
	// duplicate the main lwjgl library entry with a different URL but same dest
	dup := detail.Libraries[0]
	dup.MainArtifact = &manifest.Artifact{URL: "https://x/other.jar", SHA1: "zzzz", SizeBytes: 999, RelativePath: dup.MainArtifact.RelativePath}
	detail.Libraries = append(detail.Libraries, dup)

	tasks, err := Plan(detail, env, st)
	require.NoError(t, err)

	count := 0
	for _, tk := range tasks {
		if tk.DestRelativePath == "libraries/org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar" {
			count++
		}
	}
	assert.Equal(t, 1, count, "dest path must appear at most once (invariant 3)")

	// first wins: URL should be the original, not "other.jar"
	for _, tk := range tasks {
		if tk.DestRelativePath == "libraries/org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar" {
			assert.Equal(t, "https://x/lwjgl.jar", tk.SourceURL)
		}
	}
}

func TestPlanSkipsDeniedLibrary(t *testing.T) {
	st := store.New("/mc")
	env := rules.Env{OSFamily: rules.Linux, Features: map[string]bool{}}
	tasks, err := Plan(sampleDetail(), env, st)
	require.NoError(t, err)
	for _, tk := range tasks {
		assert.NotContains(t, tk.DestRelativePath, "windows-only")
	}
}

func TestPlanNoAssetObjectTasks(t *testing.T) {
	st := store.New("/mc")
	env := rules.Env{OSFamily: rules.Linux, Features: map[string]bool{}}
	tasks, err := Plan(sampleDetail(), env, st)
	require.NoError(t, err)
	for _, tk := range tasks {
		assert.NotEqual(t, CategoryAssetObject, tk.Category)
	}
}
