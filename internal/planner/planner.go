// Package planner transforms a version detail into a flat list of
// fetch tasks (C4).
//
// Grounded on the teacher's DownloadLibraries/DownloadVersion ordering
// (client jar, then libraries with natives, assets handled
// separately) and the mctui reference's download.Item list-building
// style in downloadLibraries/downloadAssets.
package planner

import (
	"github.com/voxelforge/launcher-core/internal/coordinate"
	"github.com/voxelforge/launcher-core/internal/manifest"
	"github.com/voxelforge/launcher-core/internal/rules"
	"github.com/voxelforge/launcher-core/internal/store"
)

// Category identifies which kind of artifact a FetchTask concerns.
type Category string

const (
	CategoryClient      Category = "client"
	CategoryAssetIndex  Category = "asset_index"
	CategoryLibrary     Category = "library"
	CategoryNative      Category = "native"
	CategoryAssetObject Category = "asset_object"
)

// Task is a single planned download (§3.1).
type Task struct {
	SourceURL        string
	DestRelativePath string // relative to the store root
	ExpectedSHA1     string
	ExpectedSize     int64
	Category         Category
}

// Plan produces the ordered FetchTask list for detail under env,
// per §4.4: client artifact, then asset index file, then libraries in
// source order (rule-gated), deduplicated by destination path
// (first occurrence wins, invariant 3). Asset-object tasks are not
// emitted here — the fetch engine expands those after downloading and
// parsing the asset index (§4.4 final paragraph, §4.5.2 step 1).
func Plan(detail manifest.Detail, env rules.Env, st *store.Store) ([]Task, error) {
	seen := make(map[string]bool)
	var tasks []Task

	add := func(t Task) {
		if seen[t.DestRelativePath] {
			return
		}
		seen[t.DestRelativePath] = true
		tasks = append(tasks, t)
	}

	relTo := func(abs string) string {
		rel, err := relative(st.Root(), abs)
		if err != nil {
			return abs
		}
		return rel
	}

	if client, ok := detail.Downloads["client"]; ok {
		add(Task{
			SourceURL:        client.URL,
			DestRelativePath: relTo(st.VersionJarPath(detail.ID)),
			ExpectedSHA1:     client.SHA1,
			ExpectedSize:     client.SizeBytes,
			Category:         CategoryClient,
		})
	}

	add(Task{
		SourceURL:        detail.AssetIndexRef.URL,
		DestRelativePath: relTo(st.AssetIndexPath(detail.AssetsID)),
		ExpectedSHA1:     detail.AssetIndexRef.SHA1,
		ExpectedSize:     detail.AssetIndexRef.SizeBytes,
		Category:         CategoryAssetIndex,
	})

	osKey := rules.OSKey(env)
	for _, lib := range detail.Libraries {
		if rules.Evaluate(lib.Rules, env) == rules.Deny {
			continue
		}

		if classifier, ok := lib.NativesMap[osKey]; ok {
			if artifact, ok := lib.ClassifierArtifact[classifier]; ok {
				dest := libraryDest(lib, artifact)
				add(Task{
					SourceURL:        artifact.URL,
					DestRelativePath: relTo(st.LibraryPath(dest)),
					ExpectedSHA1:     artifact.SHA1,
					ExpectedSize:     artifact.SizeBytes,
					Category:         CategoryNative,
				})
			}
		}

		if lib.MainArtifact != nil {
			dest := libraryDest(lib, *lib.MainArtifact)
			add(Task{
				SourceURL:        lib.MainArtifact.URL,
				DestRelativePath: relTo(st.LibraryPath(dest)),
				ExpectedSHA1:     lib.MainArtifact.SHA1,
				ExpectedSize:     lib.MainArtifact.SizeBytes,
				Category:         CategoryLibrary,
			})
		}
	}

	return tasks, nil
}

// libraryDest resolves an artifact's store-relative path: the
// artifact's own RelativePath when present (the common case — modern
// manifests always supply "path"), else derived from the Maven
// coordinate via internal/coordinate (§4.2), which is the fallback
// some modded-loader-style libraries rely on.
func libraryDest(lib manifest.Library, artifact manifest.Artifact) string {
	if artifact.RelativePath != "" {
		return artifact.RelativePath
	}
	c, err := coordinate.Parse(lib.Coordinate)
	if err != nil {
		return lib.Coordinate // best effort; planner never fails the whole plan for one bad name
	}
	return c.ToPath("", "")
}
