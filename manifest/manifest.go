// Package manifest discovers Cargo package manifests in a workspace and
// extracts the package records the category validator consumes: a name and
// the raw declared category specifiers.
//
// Only publishable packages are yielded. Virtual workspace manifests (no
// [package] table) and packages with publish = false never reach a
// registry, so the category gate does not apply to them.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/crateops/categorycheck"
)

// DefaultPattern matches every Cargo manifest under the workspace root.
var DefaultPattern = "**/Cargo.toml"

// cargoManifest models the slice of Cargo.toml this tool cares about.
// Unknown keys are ignored.
type cargoManifest struct {
	Package *cargoPackage `toml:"package"`
}

type cargoPackage struct {
	Name       string   `toml:"name"`
	Categories []string `toml:"categories"`

	// Publish is false, an allowlist of registries, or absent (publish
	// everywhere). TOML allows either a bool or an array here.
	Publish any `toml:"publish"`
}

// publishable reports whether the package can reach any registry.
func (p *cargoPackage) publishable() bool {
	switch v := p.Publish.(type) {
	case bool:
		return v
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

// DiscoverPaths returns the manifest paths under root matching the glob
// patterns (DefaultPattern when none are given), relative to root and
// sorted. Paths under target/ and hidden directories are skipped.
func DiscoverPaths(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}

	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad manifest pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || skipPath(m) {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Discover loads every manifest DiscoverPaths finds into a package record,
// ordered by manifest path, so runs are deterministic.
func Discover(root string, patterns []string) ([]categorycheck.Package, error) {
	paths, err := DiscoverPaths(root, patterns)
	if err != nil {
		return nil, err
	}

	var pkgs []categorycheck.Package
	for _, p := range paths {
		pkg, ok, err := Load(filepath.Join(root, p))
		if err != nil {
			return nil, err
		}
		if ok {
			pkgs = append(pkgs, *pkg)
		}
	}
	return pkgs, nil
}

// Load reads one Cargo manifest. The second return is false for manifests
// that do not describe a publishable package: virtual workspace manifests
// and packages with publish = false.
func Load(path string) (*categorycheck.Package, bool, error) {
	var m cargoManifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, false, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if m.Package == nil || !m.Package.publishable() {
		return nil, false, nil
	}
	if m.Package.Name == "" {
		return nil, false, fmt.Errorf("manifest %s: [package] has no name", path)
	}

	return &categorycheck.Package{
		Name:       m.Package.Name,
		Categories: m.Package.Categories,
	}, true, nil
}

// skipPath filters build output and hidden directories out of discovery.
func skipPath(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == "target" || (strings.HasPrefix(seg, ".") && seg != "." && seg != "..") {
			return true
		}
	}
	return false
}
