package topology

import (
	"fmt"
	"strconv"
	"strings"
)

// segment is either a literal run of text or a bracket group's set of
// candidate substitutions.
type segment struct {
	literal string
	options []string // nil for a literal segment
}

// Expand expands a single range-notation name spec into its ordered list of
// names. Supported notation: literal tokens, bracketed comma-lists
// ("[a,b,c]"), and numeric ranges with zero-padding preserved ("[01-08]").
// A bracket group's comma-separated elements may themselves be numeric
// ranges ("[01-03,07,10-11]"). Multiple bracket groups in one spec expand
// as their Cartesian product in left-to-right lexicographic order (the
// leftmost group varies slowest).
func Expand(spec string) ([]string, error) {
	segments, err := splitSegments(spec)
	if err != nil {
		return nil, err
	}

	results := []string{""}
	for _, seg := range segments {
		if seg.options == nil {
			for i := range results {
				results[i] += seg.literal
			}
			continue
		}
		expanded := make([]string, 0, len(results)*len(seg.options))
		for _, r := range results {
			for _, o := range seg.options {
				expanded = append(expanded, r+o)
			}
		}
		results = expanded
	}

	if len(results) == 0 || (len(results) == 1 && results[0] == "" && spec != "") {
		return nil, &InvalidSpecError{Spec: spec, Reason: "expansion is empty"}
	}
	if spec == "" {
		return nil, &InvalidSpecError{Spec: spec, Reason: "empty spec"}
	}
	return results, nil
}

// ExpandAll expands an ordered sequence of range-notation specs and returns
// the concatenation of their expansions in input order.
func ExpandAll(specs []string) ([]string, error) {
	var out []string
	for _, s := range specs {
		names, err := Expand(s)
		if err != nil {
			return nil, err
		}
		out = append(out, names...)
	}
	return out, nil
}

func splitSegments(spec string) ([]segment, error) {
	var segments []segment
	var lit strings.Builder

	flushLiteral := func() {
		if lit.Len() > 0 {
			segments = append(segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(spec) {
		c := spec[i]
		switch c {
		case '[':
			end := strings.IndexByte(spec[i:], ']')
			if end < 0 {
				return nil, &InvalidSpecError{Spec: spec, Reason: "unmatched '['"}
			}
			end += i
			flushLiteral()
			opts, err := expandBracket(spec[i+1 : end])
			if err != nil {
				return nil, &InvalidSpecError{Spec: spec, Reason: err.Error()}
			}
			segments = append(segments, segment{options: opts})
			i = end + 1
		case ']':
			return nil, &InvalidSpecError{Spec: spec, Reason: "unmatched ']'"}
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flushLiteral()
	return segments, nil
}

// expandBracket expands the content of one "[...]" group: a comma
// separated list whose elements are literal tokens or zero-padded numeric
// ranges ("01-08").
func expandBracket(content string) ([]string, error) {
	if content == "" {
		return nil, fmt.Errorf("empty bracket group")
	}
	var opts []string
	for _, part := range strings.Split(content, ",") {
		if part == "" {
			return nil, fmt.Errorf("empty element in bracket group")
		}
		if isNumericRange(part) {
			expanded, err := expandNumericRange(part)
			if err != nil {
				return nil, err
			}
			opts = append(opts, expanded...)
			continue
		}
		opts = append(opts, part)
	}
	return opts, nil
}

func isNumericRange(part string) bool {
	dash := strings.IndexByte(part, '-')
	if dash <= 0 || dash == len(part)-1 {
		return false
	}
	return isAllDigits(part[:dash]) && isAllDigits(part[dash+1:])
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func expandNumericRange(part string) ([]string, error) {
	dash := strings.IndexByte(part, '-')
	startStr, endStr := part[:dash], part[dash+1:]
	width := len(startStr)

	start, err := strconv.Atoi(startStr)
	if err != nil {
		return nil, fmt.Errorf("bad range start %q: %v", startStr, err)
	}
	end, err := strconv.Atoi(endStr)
	if err != nil {
		return nil, fmt.Errorf("bad range end %q: %v", endStr, err)
	}
	if end < start {
		return nil, fmt.Errorf("range %q has end before start", part)
	}

	out := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		out = append(out, fmt.Sprintf("%0*d", width, n))
	}
	return out, nil
}
