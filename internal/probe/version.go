package probe

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	triadPattern  = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)
	pythonPattern = regexp.MustCompile(`Python\s+(\d+)\.(\d+)\.(\d+)`)
)

// Version is a dotted major.minor.patch triad.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether v satisfies the major.minor floor. Patch levels
// are ignored.
func (v Version) AtLeast(floor Version) bool {
	if v.Major != floor.Major {
		return v.Major > floor.Major
	}
	return v.Minor >= floor.Minor
}

// FindVersion returns the first dotted triad anywhere in text.
func FindVersion(text string) (Version, bool) {
	return matchVersion(triadPattern, text)
}

// FindPythonVersion returns the triad following "Python" in text.
func FindPythonVersion(text string) (Version, bool) {
	return matchVersion(pythonPattern, text)
}

func matchVersion(pattern *regexp.Regexp, text string) (Version, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return Version{}, false
	}
	var parts [3]int
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Version{}, false
		}
		parts[i] = n
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2]}, true
}
