// Package manifest fetches and decodes the version index and
// per-version detail JSON (C3).
//
// Struct shapes are grounded on the teacher's downloader.go
// (Manifest, Version, VersionMetadata) and the mctui reference's
// internal/core/version.go (VersionType enum, VersionManifest), merged
// and generalized to the full §6.1/§6.2 schema including structured
// arguments, the legacy minecraftArguments fallback, and version
// inheritance.
package manifest

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/voxelforge/launcher-core/internal/rules"
)

// VersionID uniquely identifies a version within a single local store.
type VersionID string

// Kind mirrors the manifest's "type" field.
type Kind string

const (
	KindRelease  Kind = "release"
	KindSnapshot Kind = "snapshot"
	KindOldBeta  Kind = "old_beta"
	KindOldAlpha Kind = "old_alpha"
)

// IndexEntry is one row of the manifest index.
type IndexEntry struct {
	ID          VersionID
	Kind        Kind
	DetailURL   string
	PublishTime time.Time
}

// Index is the top-level manifest (§6.1): an ordered list of entries
// plus optional latest-release/latest-snapshot pointers.
type Index struct {
	Entries       []IndexEntry
	LatestRelease VersionID // "" if absent
	LatestSnapshot VersionID
}

// rawIndex mirrors the wire JSON exactly for lenient decoding.
type rawIndex struct {
	Latest *struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		URL         string `json:"url"`
		Time        string `json:"time"`
		ReleaseTime string `json:"releaseTime"`
	} `json:"versions"`
}

// DecodeIndex parses the manifest index JSON (§6.1). Unknown fields
// are ignored by encoding/json's default behavior; "latest" may be
// entirely absent.
func DecodeIndex(data []byte) (Index, error) {
	var raw rawIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return Index{}, err
	}
	idx := Index{Entries: make([]IndexEntry, 0, len(raw.Versions))}
	for _, v := range raw.Versions {
		t, _ := time.Parse(time.RFC3339, v.ReleaseTime)
		idx.Entries = append(idx.Entries, IndexEntry{
			ID:          VersionID(v.ID),
			Kind:        Kind(v.Type),
			DetailURL:   v.URL,
			PublishTime: t,
		})
	}
	if raw.Latest != nil {
		idx.LatestRelease = VersionID(raw.Latest.Release)
		idx.LatestSnapshot = VersionID(raw.Latest.Snapshot)
	}
	return idx, nil
}

// Artifact is a single downloadable file (§3.1).
type Artifact struct {
	URL          string
	SHA1         string
	SizeBytes    int64
	RelativePath string // optional; derived from coordinate when empty
}

// Library describes one dependency jar, possibly native, possibly
// rule-gated (§3.1).
type Library struct {
	Coordinate         string
	MainArtifact       *Artifact
	ClassifierArtifact map[string]Artifact // classifier -> artifact
	NativesMap         map[string]string   // os key -> classifier
	Rules              []rules.Rule
	ExtractExcludes    []string
}

// ArgElement is the tagged union from §9: either a bare literal string
// or a rule-annotated conditional whose value is one or more strings.
type ArgElement struct {
	Literal     string
	IsLiteral   bool
	Rules       []rules.Rule
	Values      []string
}

// Arguments holds the structured jvm/game argument lists (§3.1).
type Arguments struct {
	JVM  []ArgElement
	Game []ArgElement
}

// AssetIndexRef points at the asset index file to fetch (§6.2).
type AssetIndexRef struct {
	ID        string
	SHA1      string
	SizeBytes int64
	URL       string
}

// Detail is a fully decoded, inheritance-resolved version detail
// (§3.1/§6.2).
type Detail struct {
	ID            VersionID
	Kind          Kind
	MainClass     string
	AssetIndexRef AssetIndexRef
	Downloads     map[string]Artifact // role -> artifact, always has "client"
	Libraries     []Library
	Arguments     Arguments
	AssetsID      string
	JavaMajor     int // 0 if absent
	usedLegacyJVMWarning bool
}

// AssetObject is one entry of an asset index: a content hash and size.
type AssetObject struct {
	Hash      string
	SizeBytes int64
}

// AssetIndex is the decoded assets/indexes/<id>.json file (§3.1/§6.3).
type AssetIndex struct {
	ID      string
	Objects map[string]AssetObject // logical path -> object
}

// DecodeAssetIndex parses an asset index payload (§6.3).
func DecodeAssetIndex(id string, data []byte) (AssetIndex, error) {
	var raw struct {
		Objects map[string]struct {
			Hash      string `json:"hash"`
			Size      int64  `json:"size"`
		} `json:"objects"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return AssetIndex{}, err
	}
	ai := AssetIndex{ID: id, Objects: make(map[string]AssetObject, len(raw.Objects))}
	for path, obj := range raw.Objects {
		ai.Objects[path] = AssetObject{Hash: strings.ToLower(obj.Hash), SizeBytes: obj.Size}
	}
	return ai, nil
}
