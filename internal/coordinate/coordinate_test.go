package coordinate

import (
	"testing"

	"github.com/voxelforge/launcher-core/internal/launchererr"
)

func TestToPathNoClassifier(t *testing.T) {
	p, err := ToPath("g.h:a:v", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if p != "g/h/a/v/a-v.jar" {
		t.Fatalf("got %q", p)
	}
}

func TestToPathWithClassifier(t *testing.T) {
	p, err := ToPath("g.h:a:v", "c", "")
	if err != nil {
		t.Fatal(err)
	}
	if p != "g/h/a/v/a-v-c.jar" {
		t.Fatalf("got %q", p)
	}
}

func TestToPathRejectsClassifierEmbeddedInCoordinate(t *testing.T) {
	_, err := ToPath("org.lwjgl:lwjgl:3.3.1:natives-linux", "", "")
	if err == nil {
		t.Fatal("expected error: coordinate must have exactly three components")
	}
	if kind, ok := launchererr.KindOf(err); !ok || kind != launchererr.KindBadCoordinate {
		t.Fatalf("got %v", err)
	}
}

func TestParseBadArity(t *testing.T) {
	_, err := Parse("only:two")
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := launchererr.KindOf(err); !ok || kind != launchererr.KindBadCoordinate {
		t.Fatalf("got %v", err)
	}
}

func TestParseEmptySegment(t *testing.T) {
	_, err := Parse("g::v")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseNeverSplitsOnDotInsideArtifact(t *testing.T) {
	c, err := Parse("com.example:my.artifact:1.0")
	if err != nil {
		t.Fatal(err)
	}
	if c.Artifact != "my.artifact" {
		t.Fatalf("artifact should retain dots verbatim: %q", c.Artifact)
	}
}

func TestToPathPure(t *testing.T) {
	a, _ := ToPath("g.h:a:v", "", "")
	b, _ := ToPath("g.h:a:v", "", "")
	if a != b {
		t.Fatalf("not pure: %q vs %q", a, b)
	}
}
