package matchers

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/problemmatch/problemmatch/pkg/matcher"
)

func isDefinition(p string) bool {
	l := strings.ToLower(p)
	return strings.HasSuffix(l, ".yml") || strings.HasSuffix(l, ".yaml") || strings.HasSuffix(l, ".json")
}

// LoadDirRecursive walks root and parses every matcher-definition file
// (.yml/.yaml/.json) it finds. A file that fails to parse fails the load;
// matcher sets are deployed as a unit.
func LoadDirRecursive(root string) ([]*matcher.Matcher, error) {
	var out []*matcher.Matcher
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDefinition(p) {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		ms, err := matcher.LoadDefinitions(b)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		out = append(out, ms...)
		return nil
	})
	return out, err
}
