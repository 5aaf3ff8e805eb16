package bench

import (
	"regexp"
	"strconv"
)

// The timing wrapper and the workload both report through fixed-format text
// lines. Extraction is best-effort: a missing field defaults to zero rather
// than failing the trial, favoring partial data over trial loss.

var (
	wallTimeRe = regexp.MustCompile(`wall_time=([\d.]+)`)
	userTimeRe = regexp.MustCompile(`user_time=([\d.]+)`)
	sysTimeRe  = regexp.MustCompile(`sys_time=([\d.]+)`)
	maxRSSRe   = regexp.MustCompile(`max_rss=(\d+)`)

	avgTimeRe = regexp.MustCompile(`Average time per call:\s+([\d.]+)`)
)

// timing holds the fields extracted from the timing wrapper's stderr.
type timing struct {
	WallS    float64
	UserS    float64
	SystemS  float64
	MaxRSSKB int64
}

// parseTimingOutput extracts wall/user/system time and peak RSS from the
// timing wrapper output.
func parseTimingOutput(output string) timing {
	var t timing

	t.WallS = matchFloat(wallTimeRe, output)
	t.UserS = matchFloat(userTimeRe, output)
	t.SystemS = matchFloat(sysTimeRe, output)

	if m := maxRSSRe.FindStringSubmatch(output); m != nil {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			t.MaxRSSKB = v
		}
	}

	return t
}

// parseWorkloadOutput extracts the workload's self-reported average time
// per call in nanoseconds. Returns 0 when the line is absent.
func parseWorkloadOutput(output string) float64 {
	return matchFloat(avgTimeRe, output)
}

func matchFloat(re *regexp.Regexp, s string) float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}

	return v
}
