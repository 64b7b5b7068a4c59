// Package javart implements the runtime locator (C9).
//
// Grounded on the mctui reference's Launcher.checkJava search order
// (instance override -> managed directory -> system detection),
// narrowed to spec §4.9's three-step search and generalized from a
// managed-download-directory model to a bare runtime_home hint, since
// this engine does not manage its own JRE installs.
package javart

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/voxelforge/launcher-core/internal/launchererr"
)

// executableNames returns the platform's preferred java binary name(s)
// in preference order.
func executableNames(goos string) []string {
	if goos == "windows" {
		return []string{"javaw.exe", "java.exe"}
	}
	return []string{"java"}
}

// isExecutable reports whether path names an existing, non-directory
// file. On POSIX the execute bit is also checked; Windows has no
// equivalent permission bit, so existence suffices there.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}

// findInDir looks for any of names directly inside dir's bin/
// subdirectory (a JAVA_HOME-style root) and returns the first
// existing executable's absolute path.
func findInDir(root string, names []string) (string, bool) {
	for _, name := range names {
		candidate := filepath.Join(root, "bin", name)
		if isExecutable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// findOnPATH searches every directory in the PATH environment
// variable for names, returning the first match.
func findOnPATH(names []string) (string, bool) {
	pathEnv := os.Getenv("PATH")
	if pathEnv == "" {
		return "", false
	}
	for _, dir := range filepath.SplitList(pathEnv) {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if isExecutable(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// Locate implements the C9 contract: runtime_home hint -> JAVA_HOME ->
// PATH, returning the first accepted absolute executable path.
func Locate(runtimeHomeHint string) (string, error) {
	names := executableNames(runtime.GOOS)

	if runtimeHomeHint != "" {
		if path, ok := findInDir(runtimeHomeHint, names); ok {
			return path, nil
		}
	}

	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		if path, ok := findInDir(javaHome, names); ok {
			return path, nil
		}
	}

	if path, ok := findOnPATH(names); ok {
		return path, nil
	}

	return "", launchererr.New(launchererr.KindNoRuntime, runtimeHomeHint)
}
