package topology

import (
	"strconv"
	"strings"
)

// unitSuffixes is ordered longest-suffix-first so that "ms" is tried before
// "s" and "us" is tried before both — resolving the Open Question about
// overlapping substrings (§9) with an explicit longest-suffix-match rule.
var unitSuffixes = []struct {
	suffix string
	micros float64
}{
	{"us", 1},
	{"ms", 1_000},
	{"s", 1_000_000},
	{"m", 60 * 1_000_000},
}

// ParseInterval parses a case-insensitive "<float><unit>" string
// (unit in us, ms, s, m) into integer microseconds. A bare number with no
// recognized unit suffix is interpreted as seconds. It does not parse the
// "<interval>:<offset>" scheduling form, which is passed through verbatim
// to daemons.
func ParseInterval(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, &InvalidIntervalError{Input: input, Reason: "empty"}
	}
	lower := strings.ToLower(trimmed)

	for _, u := range unitSuffixes {
		if strings.HasSuffix(lower, u.suffix) {
			numPart := strings.TrimSpace(lower[:len(lower)-len(u.suffix)])
			if numPart == "" {
				continue
			}
			val, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				continue
			}
			return int64(val * u.micros), nil
		}
	}

	// No recognized unit suffix: bare number, interpreted as seconds.
	val, err := strconv.ParseFloat(lower, 64)
	if err != nil {
		return 0, &InvalidIntervalError{Input: input, Reason: "unparsable number"}
	}
	return int64(val * 1_000_000), nil
}
