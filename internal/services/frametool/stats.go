package frametool

import (
	"regexp"
	"strconv"
	"strings"
)

// Counts are the statistics recovered from a run's stdout. Nil fields are
// unknown.
type Counts struct {
	Total     *int
	Succeeded *int
	Failed    *int
}

var (
	fileCountPattern  = regexp.MustCompile(`(?i)(\d+)\s*files?\b`)
	videoCountPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:videos?|files?)\b`)
	succeededPattern  = regexp.MustCompile(`(?i)(\d+)\s*(?:succeeded|successful|success)\b`)
	failedPattern     = regexp.MustCompile(`(?i)(\d+)\s*failed\b`)
	failureWords      = regexp.MustCompile(`(?i)error|failed`)
)

// compressCounts reads statistics from compress output.
func compressCounts(stdout string) Counts {
	return parseCounts(stdout, fileCountPattern)
}

// extractCounts reads statistics from dirfirst output.
func extractCounts(stdout string) Counts {
	return parseCounts(stdout, videoCountPattern)
}

// parseCounts prefers explicit succeeded/failed tallies. Without them the
// total is the first count match, or zero when nothing matches. Clean output
// reports success equal to the total and leaves failures unset; output that
// mentions a failure leaves success unset and reports zero failures.
func parseCounts(stdout string, totalPattern *regexp.Regexp) Counts {
	var c Counts
	c.Total = firstInt(totalPattern, stdout)

	succeeded := firstInt(succeededPattern, stdout)
	failed := firstInt(failedPattern, stdout)
	if succeeded != nil || failed != nil {
		c.Succeeded = succeeded
		c.Failed = failed
		if c.Failed == nil {
			c.Failed = intPtr(0)
		}
		if c.Succeeded == nil && c.Total != nil {
			c.Succeeded = intPtr(max(*c.Total-*c.Failed, 0))
		}
		if c.Total == nil && c.Succeeded != nil {
			c.Total = intPtr(*c.Succeeded + *c.Failed)
		}
		return c
	}

	if c.Total == nil {
		c.Total = intPtr(0)
	}
	if failureWords.MatchString(stdout) {
		c.Failed = intPtr(0)
	} else {
		c.Succeeded = intPtr(*c.Total)
	}
	return c
}

func firstInt(pattern *regexp.Regexp, text string) *int {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(m[1]))
	if err != nil {
		return nil
	}
	return &n
}

func intPtr(v int) *int { return &v }
