// Package coordinate resolves Maven-style coordinates to relative
// store paths (C2).
//
// Grounded on the teacher's buildClasspath, which hand-rolls four
// "possible paths" patterns for a library name because it has no
// single canonical resolver; this package is that resolver, kept as
// a pure function per spec §4.2/§3.2 invariant 6.
package coordinate

import (
	"strings"

	"github.com/voxelforge/launcher-core/internal/launchererr"
)

// Coordinate is a parsed group:artifact:version.
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
}

// Parse splits a raw "group:artifact:version" string. Any other arity,
// or any empty segment, is a BadCoordinate error — real-world Mojang
// manifest data occasionally embeds a 4th colon-separated classifier
// segment, but the contract this resolver implements accepts exactly
// three components, so that shape is rejected rather than special-cased.
func Parse(raw string) (Coordinate, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return Coordinate{}, launchererr.New(launchererr.KindBadCoordinate, raw)
	}
	for _, p := range parts {
		if p == "" {
			return Coordinate{}, launchererr.New(launchererr.KindBadCoordinate, raw)
		}
	}
	return Coordinate{Group: parts[0], Artifact: parts[1], Version: parts[2]}, nil
}

// ToPath computes the relative path (rooted at "libraries/") of this
// coordinate's jar, with an optional classifier override and
// extension (defaulting to ".jar"). Group dots become path
// separators; artifact and version are verbatim path segments.
func (c Coordinate) ToPath(classifier, ext string) string {
	if ext == "" {
		ext = ".jar"
	}
	if classifier == "" {
		classifier = c.Classifier
	}
	groupPath := strings.ReplaceAll(c.Group, ".", "/")
	filename := c.Artifact + "-" + c.Version
	if classifier != "" {
		filename += "-" + classifier
	}
	filename += ext
	return strings.Join([]string{groupPath, c.Artifact, c.Version, filename}, "/")
}

// ToPath parses raw and returns its relative path in one step,
// matching the C2 contract `to_path(coord, classifier?, ext=".jar")`.
func ToPath(raw string, classifier, ext string) (string, error) {
	c, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return c.ToPath(classifier, ext), nil
}
