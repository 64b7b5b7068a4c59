// Package args implements the JVM/game argument assembler (C8).
//
// Generalizes the teacher's parseMinecraftArguments/PrepareCMD (a
// fixed find-and-replace map applied to the legacy minecraftArguments
// string only) into the full §4.8 substitution table over both the
// modern structured Arguments and the legacy fallback, gated through
// internal/rules for conditional elements.
package args

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/voxelforge/launcher-core/internal/manifest"
	"github.com/voxelforge/launcher-core/internal/rules"
	"github.com/voxelforge/launcher-core/internal/telemetry"
)

// LauncherBrand and LauncherVersion feed the ${launcher_name} and
// ${launcher_version} placeholders.
const (
	LauncherBrand   = "voxelforge-launcher"
	LauncherVersion = "1.0.0"
)

// Assembler owns the per-facade-instance state Assemble needs: just the
// once-guard on the legacy-arguments warning, scoped here rather than
// as a package global so multiple Engine instances in one process share
// nothing (spec.md:231).
type Assembler struct {
	legacyWarnOnce sync.Once
}

// NewAssembler returns a ready-to-use Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Params is launch_params from §4.8.
type Params struct {
	PlayerName       string
	PlayerUUID       string
	AccessToken      string
	GameDir          string
	AssetsDir        string
	NativesDir       string
	ClasspathEntries []string
	VersionType      string
	MaxHeapMB        int
	ExtraJVMArgs     []string
	Width            int
	Height           int
	UserKind         string // "msa" or "legacy"
	ClientID         string
}

// Assembled is the (jvm_argv, main_class, game_argv) result.
type Assembled struct {
	JVMArgv   []string
	MainClass string
	GameArgv  []string
}

// CommandLine returns jvm_argv ++ [main_class] ++ game_argv, the final
// process command line (§4.8 Result).
func (a Assembled) CommandLine() []string {
	out := make([]string, 0, len(a.JVMArgv)+1+len(a.GameArgv))
	out = append(out, a.JVMArgv...)
	out = append(out, a.MainClass)
	out = append(out, a.GameArgv...)
	return out
}

// Assemble implements the C8 contract.
func (a *Assembler) Assemble(detail manifest.Detail, env rules.Env, p Params) Assembled {
	subs := substitutions(detail, env, p)

	jvm := a.buildJVMArgv(detail, env, p, subs)
	game := buildGameArgv(detail, env, p, subs)

	return Assembled{JVMArgv: jvm, MainClass: detail.MainClass, GameArgv: game}
}

func substitutions(detail manifest.Detail, env rules.Env, p Params) map[string]string {
	return map[string]string{
		"${natives_directory}":    p.NativesDir,
		"${launcher_name}":        LauncherBrand,
		"${launcher_version}":     LauncherVersion,
		"${classpath}":            strings.Join(p.ClasspathEntries, string(filepath.ListSeparator)),
		"${auth_player_name}":     p.PlayerName,
		"${version_name}":         string(detail.ID),
		"${game_directory}":       p.GameDir,
		"${assets_root}":          p.AssetsDir,
		"${assets_index_name}":    detail.AssetsID,
		"${auth_uuid}":            p.PlayerUUID,
		"${auth_access_token}":    p.AccessToken,
		"${clientid}":             p.ClientID,
		"${auth_xuid}":            "",
		"${user_type}":            p.UserKind,
		"${version_type}":         p.VersionType,
		"${resolution_width}":     strconv.Itoa(p.Width),
		"${resolution_height}":    strconv.Itoa(p.Height),
	}
}

// substitute replaces every placeholder in s exactly once, left to
// right, in a single pass — a naive repeated-Replace loop could
// re-substitute a value that itself contains "${...}" text (§8
// invariant: "every placeholder... replaced exactly once").
func substitute(s string, subs map[string]string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '$' || i+1 >= len(s) || s[i+1] != '{' {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			b.WriteString(s[i:])
			break
		}
		token := s[i : i+end+1]
		// unknown placeholders fall back to the zero value "", per §8
		b.WriteString(subs[token])
		i += end + 1
	}
	return b.String()
}

func (a *Assembler) buildJVMArgv(detail manifest.Detail, env rules.Env, p Params, subs map[string]string) []string {
	argv := []string{"-Xmx" + strconv.Itoa(p.MaxHeapMB) + "M"}

	if len(detail.Arguments.JVM) > 0 {
		argv = append(argv, expandElements(detail.Arguments.JVM, env, subs)...)
	} else {
		if detail.UsedLegacyArguments() {
			a.legacyWarnOnce.Do(func() {
				telemetry.L().Warn("version has no structured jvm arguments, synthesizing the minimum",
					zap.String("version", string(detail.ID)))
			})
		}
		argv = append(argv, substitute("-Djava.library.path=${natives_directory}", subs),
			"-cp", substitute("${classpath}", subs))
	}

	if !hasTokenPrefix(argv, "-Djava.library.path=") {
		argv = append(argv, substitute("-Djava.library.path=${natives_directory}", subs))
	}
	if !hasFlag(argv, "-cp") {
		argv = append(argv, "-cp", substitute("${classpath}", subs))
	}

	for _, extra := range p.ExtraJVMArgs {
		if !hasTokenPrefix(argv, extraKey(extra)) {
			argv = append(argv, extra)
		}
	}

	return argv
}

func buildGameArgv(detail manifest.Detail, env rules.Env, p Params, subs map[string]string) []string {
	if len(detail.Arguments.Game) > 0 {
		return expandElements(detail.Arguments.Game, env, subs)
	}
	return nil
}

// expandElements walks a modern ArgElement list, emitting literal
// strings after substitution and conditional values when their rules
// evaluate to allow (§4.8 step 2).
func expandElements(elems []manifest.ArgElement, env rules.Env, subs map[string]string) []string {
	var out []string
	for _, e := range elems {
		if e.IsLiteral {
			out = append(out, substitute(e.Literal, subs))
			continue
		}
		if rules.Evaluate(e.Rules, env) != rules.Allow {
			continue
		}
		for _, v := range e.Values {
			out = append(out, substitute(v, subs))
		}
	}
	return out
}

// hasTokenPrefix reports whether any argv entry starts with prefix.
func hasTokenPrefix(argv []string, prefix string) bool {
	for _, a := range argv {
		if strings.HasPrefix(a, prefix) {
			return true
		}
	}
	return false
}

// hasFlag reports whether argv contains flag as a standalone token.
func hasFlag(argv []string, flag string) bool {
	for _, a := range argv {
		if a == flag {
			return true
		}
	}
	return false
}

// extraKey returns the stable flag name a caller-supplied extra JVM
// argument shares with an already-emitted one, so "-Xmx4096M" is
// recognized as overriding "-Xmx2048M" even though neither contains
// "=" or a space. Stops at the first "=", space, or digit.
func extraKey(arg string) string {
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		if c == '=' || c == ' ' {
			return arg[:i+1]
		}
		if c >= '0' && c <= '9' {
			return arg[:i]
		}
	}
	return arg
}

// SplitLegacyArguments tokenizes a legacy minecraftArguments string on
// whitespace, substituting each token independently. Assemble does not
// call it: DecodeDetail already turns the legacy string into literal
// Game ArgElements, which buildGameArgv's expandElements path handles.
// Exported for tests and direct legacy-string handling outside of
// Detail.
func SplitLegacyArguments(raw string, subs map[string]string) []string {
	fields := strings.Fields(raw)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = substitute(f, subs)
	}
	return out
}
