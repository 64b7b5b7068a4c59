package manifest

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/voxelforge/launcher-core/internal/rules"
	"github.com/voxelforge/launcher-core/internal/telemetry"
)

// rawArtifact mirrors the {url, sha1, size, path?} shape shared by
// downloads.client, downloads.classifiers.*, and assetIndex.
type rawArtifact struct {
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

func (r rawArtifact) toArtifact() Artifact {
	return Artifact{URL: r.URL, SHA1: strings.ToLower(r.SHA1), SizeBytes: r.Size, RelativePath: r.Path}
}

type rawOS struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Arch    string `json:"arch"`
}

type rawRule struct {
	Action   string          `json:"action"`
	OS       *rawOS          `json:"os"`
	Features map[string]bool `json:"features"`
}

func (r rawRule) toRule() rules.Rule {
	out := rules.Rule{Action: rules.Allow}
	if r.Action == "disallow" {
		out.Action = rules.Deny
	}
	if r.OS != nil {
		out.OS = &rules.OSPredicate{Name: r.OS.Name, VersionRegex: r.OS.Version, Arch: rules.Arch(r.OS.Arch)}
	}
	out.Features = r.Features
	return out
}

func toRuleList(raw []rawRule) []rules.Rule {
	out := make([]rules.Rule, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toRule())
	}
	return out
}

type rawLibrary struct {
	Name      string `json:"name"`
	Downloads *struct {
		Artifact    *rawArtifact           `json:"artifact"`
		Classifiers map[string]rawArtifact `json:"classifiers"`
	} `json:"downloads"`
	Rules   []rawRule         `json:"rules"`
	Natives map[string]string `json:"natives"`
	Extract *struct {
		Exclude []string `json:"exclude"`
	} `json:"extract"`
}

func (r rawLibrary) toLibrary() Library {
	lib := Library{Coordinate: r.Name, Rules: toRuleList(r.Rules), NativesMap: r.Natives}
	if r.Downloads != nil {
		if r.Downloads.Artifact != nil {
			a := r.Downloads.Artifact.toArtifact()
			lib.MainArtifact = &a
		}
		if len(r.Downloads.Classifiers) > 0 {
			lib.ClassifierArtifact = make(map[string]Artifact, len(r.Downloads.Classifiers))
			for k, v := range r.Downloads.Classifiers {
				lib.ClassifierArtifact[k] = v.toArtifact()
			}
		}
	}
	if r.Extract != nil {
		lib.ExtractExcludes = r.Extract.Exclude
	}
	return lib
}

// decodeArgElement handles the polymorphic shape from §6.2/§9: a bare
// string, or an object {rules, value: string|[string]}. Anything else
// (null, number, object missing both fields) decodes to an empty
// Conditional and logs a single warning, per the Open Question
// decision recorded in DESIGN.md.
func decodeArgElement(raw json.RawMessage) ArgElement {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && string(raw) != "null" {
		return ArgElement{Literal: s, IsLiteral: true}
	}

	var obj struct {
		Rules []rawRule       `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Value != nil && string(obj.Value) != "null" {
		var single string
		if err := json.Unmarshal(obj.Value, &single); err == nil {
			return ArgElement{Rules: toRuleList(obj.Rules), Values: []string{single}}
		}
		var many []string
		if err := json.Unmarshal(obj.Value, &many); err == nil {
			return ArgElement{Rules: toRuleList(obj.Rules), Values: many}
		}
	}

	telemetry.L().Warn("unrecognized arguments element shape, treating as empty", zap.String("raw", string(raw)))
	return ArgElement{}
}

func decodeArgList(raw []json.RawMessage) []ArgElement {
	out := make([]ArgElement, 0, len(raw))
	for _, r := range raw {
		out = append(out, decodeArgElement(r))
	}
	return out
}

// rawDetail mirrors the full version detail wire shape (§6.2).
type rawDetail struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	MainClass          string `json:"mainClass"`
	InheritsFrom       string `json:"inheritsFrom"`
	MinecraftArguments string `json:"minecraftArguments"`
	Assets             string `json:"assets"`
	AssetIndex         struct {
		ID   string `json:"id"`
		SHA1 string `json:"sha1"`
		Size int64  `json:"size"`
		URL  string `json:"url"`
	} `json:"assetIndex"`
	Downloads map[string]rawArtifact `json:"downloads"`
	Libraries []rawLibrary           `json:"libraries"`
	Arguments *struct {
		Game []json.RawMessage `json:"game"`
		JVM  []json.RawMessage `json:"jvm"`
	} `json:"arguments"`
	JavaVersion *struct {
		MajorVersion int `json:"majorVersion"`
	} `json:"javaVersion"`
}

// DecodeDetail parses a single version detail payload (not following
// inheritance; see ResolveInheritance for that). Legacy versions
// (arguments absent, minecraftArguments present) get arguments.game
// synthesized from the space-tokenized string and an empty
// arguments.jvm, per §4.3.
func DecodeDetail(data []byte) (Detail, error) {
	var raw rawDetail
	if err := json.Unmarshal(data, &raw); err != nil {
		return Detail{}, err
	}

	d := Detail{
		ID:        VersionID(raw.ID),
		Kind:      Kind(raw.Type),
		MainClass: raw.MainClass,
		AssetIndexRef: AssetIndexRef{
			ID: raw.AssetIndex.ID, SHA1: strings.ToLower(raw.AssetIndex.SHA1),
			SizeBytes: raw.AssetIndex.Size, URL: raw.AssetIndex.URL,
		},
		AssetsID:  raw.Assets,
		Downloads: make(map[string]Artifact, len(raw.Downloads)),
	}
	if d.AssetsID == "" {
		d.AssetsID = raw.AssetIndex.ID
	}
	for role, a := range raw.Downloads {
		d.Downloads[role] = a.toArtifact()
	}
	for _, l := range raw.Libraries {
		d.Libraries = append(d.Libraries, l.toLibrary())
	}
	if raw.JavaVersion != nil {
		d.JavaMajor = raw.JavaVersion.MajorVersion
	}

	switch {
	case raw.Arguments != nil:
		d.Arguments = Arguments{
			JVM:  decodeArgList(raw.Arguments.JVM),
			Game: decodeArgList(raw.Arguments.Game),
		}
	case raw.MinecraftArguments != "":
		d.usedLegacyJVMWarning = true
		tokens := strings.Fields(raw.MinecraftArguments)
		game := make([]ArgElement, 0, len(tokens))
		for _, tok := range tokens {
			game = append(game, ArgElement{Literal: tok, IsLiteral: true})
		}
		d.Arguments = Arguments{Game: game, JVM: nil}
	}

	return d, nil
}

// UsedLegacyArguments reports whether this Detail's arguments were
// synthesized from the legacy minecraftArguments string, for the
// single-warning-on-use Open Question decision (handled by the
// caller, internal/args, which owns the sync.Once).
func (d Detail) UsedLegacyArguments() bool { return d.usedLegacyJVMWarning }

// peekInheritsFrom peeks at just the inheritsFrom field, used by the
// resolver to walk parent chains without fully decoding twice.
func peekInheritsFrom(data []byte) string {
	var partial struct {
		InheritsFrom string `json:"inheritsFrom"`
	}
	_ = json.Unmarshal(data, &partial)
	return partial.InheritsFrom
}

// mergeInherited merges parent fields into child wherever child left
// them at the zero value, and prepends the parent's libraries ahead
// of the child's — the teacher's loadVersionJSON merge order,
// generalized to the full Detail struct.
func mergeInherited(child, parent Detail) Detail {
	if child.MainClass == "" {
		child.MainClass = parent.MainClass
	}
	if child.AssetsID == "" {
		child.AssetsID = parent.AssetsID
	}
	if child.AssetIndexRef.ID == "" {
		child.AssetIndexRef = parent.AssetIndexRef
	}
	if len(child.Arguments.JVM) == 0 && len(child.Arguments.Game) == 0 {
		child.Arguments = parent.Arguments
	}
	if child.JavaMajor == 0 {
		child.JavaMajor = parent.JavaMajor
	}
	merged := make([]Library, 0, len(parent.Libraries)+len(child.Libraries))
	merged = append(merged, parent.Libraries...)
	merged = append(merged, child.Libraries...)
	child.Libraries = merged
	if child.Downloads == nil {
		child.Downloads = map[string]Artifact{}
	}
	for role, a := range parent.Downloads {
		if _, present := child.Downloads[role]; !present {
			child.Downloads[role] = a
		}
	}
	return child
}

// InheritsFrom is populated only during inheritance resolution; it is
// not part of the public Detail fields consumed by the rest of the
// engine (every other component sees an already-merged Detail), but
// ResolveInheritance needs it to walk the chain.
type inheriting struct {
	Detail
	inheritsFrom VersionID
}

func decodeDetailWithParentHint(data []byte) (inheriting, error) {
	d, err := DecodeDetail(data)
	if err != nil {
		return inheriting{}, err
	}
	return inheriting{Detail: d, inheritsFrom: VersionID(peekInheritsFrom(data))}, nil
}

// ResolveInheritance follows a chain of inheritsFrom references (as
// used by Fabric/Forge/OptiFine-style version profiles — the teacher's
// loadVersionJSON) merging parent fields into the child wherever the
// child left a field empty. lookup is called with each parent id in
// turn and must return that version's raw detail JSON bytes, normally
// backed by the local store's cached versions/<id>/<id>.json.
func ResolveInheritance(rootData []byte, lookup func(VersionID) ([]byte, error)) (Detail, error) {
	root, err := decodeDetailWithParentHint(rootData)
	if err != nil {
		return Detail{}, err
	}
	child := root.Detail
	seen := map[VersionID]bool{child.ID: true}
	parentID := root.inheritsFrom
	for parentID != "" {
		if seen[parentID] {
			break // cyclic inheritance guard; merge what we have
		}
		seen[parentID] = true
		data, err := lookup(parentID)
		if err != nil {
			return Detail{}, err
		}
		parent, err := decodeDetailWithParentHint(data)
		if err != nil {
			return Detail{}, err
		}
		child = mergeInherited(child, parent.Detail)
		parentID = parent.inheritsFrom
	}
	return child, nil
}
