package probe

import (
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// Candidates is an ordered list of executable identifiers: absolute paths,
// home-relative paths (~/...) or bare command names resolved through PATH.
type Candidates []string

// All yields the candidates left to right, expanding ~ and $HOME as each
// one is reached. Blank entries are skipped.
func (c Candidates) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, raw := range c {
			candidate := expandHome(strings.TrimSpace(raw))
			if candidate == "" {
				continue
			}
			if !yield(candidate) {
				return
			}
		}
	}
}

func expandHome(path string) string {
	switch {
	case path == "~", strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	case strings.Contains(path, "$HOME"):
		return os.ExpandEnv(path)
	default:
		return path
	}
}
