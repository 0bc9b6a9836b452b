// Package pathutil locates client data files inside a data directory.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Find returns the path of name inside dir, matching the file name
// case-insensitively when no exact match exists. Client installs mix
// "Anim.mul", "anim.mul" and "ANIM.MUL". If nothing matches, the exact
// joined path is returned with ok false.
func Find(dir, name string) (path string, ok bool) {
	exact := filepath.Join(dir, name)
	if fi, err := os.Stat(exact); err == nil && !fi.IsDir() {
		return exact, true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return exact, false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return exact, false
}
