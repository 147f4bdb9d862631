package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidRemapping indicates a remapping is not of the form prefix=target.
var ErrInvalidRemapping = errors.New("invalid remapping")

const packageManifest = "package.json"

// Remapping rewrites imports starting with Prefix to start with Target.
type Remapping struct {
	Prefix string
	Target string
}

// String returns the prefix=target form.
func (m Remapping) String() string {
	return m.Prefix + "=" + m.Target
}

// ParseRemapping parses "prefix=target".
func ParseRemapping(s string) (Remapping, error) {
	prefix, target, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok || prefix == "" || target == "" {
		return Remapping{}, fmt.Errorf("%w: %q", ErrInvalidRemapping, s)
	}

	return Remapping{Prefix: prefix, Target: target}, nil
}

// ParseRemappings parses every entry, failing on the first invalid one.
func ParseRemappings(values []string) ([]Remapping, error) {
	remappings := make([]Remapping, 0, len(values))

	for _, value := range values {
		remapping, err := ParseRemapping(value)
		if err != nil {
			return nil, err
		}

		remappings = append(remappings, remapping)
	}

	return remappings, nil
}

type manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// packageVersion walks up from file towards libRoot and returns the version
// of the first package manifest that declares one.
func packageVersion(file, libRoot string) string {
	dir := filepath.Dir(file)

	for {
		if _, inside := within(libRoot, dir); !inside || dir == libRoot {
			return ""
		}

		data, err := os.ReadFile(filepath.Join(dir, packageManifest))
		if err == nil {
			var pkg manifest
			if json.Unmarshal(data, &pkg) == nil && pkg.Version != "" {
				return strings.TrimPrefix(pkg.Version, "v")
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}

		dir = parent
	}
}
