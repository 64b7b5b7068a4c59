package planner

import "path/filepath"

// relative wraps filepath.Rel for readability at its call sites in
// planner.go.
func relative(root, abs string) (string, error) {
	return filepath.Rel(root, abs)
}
