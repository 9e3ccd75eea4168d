package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/problemmatch/problemmatch/pkg/matcher"
)

var errGroupZero = errors.New("Group 0 is not a valid capture group (it contains the entire matched string)")

// project evaluates one pattern against one candidate line and maps capture
// groups to named fields. A line that does not match returns (nil, nil); a
// declared field whose group cannot be satisfied is a configuration error.
// Group 0 is rejected before matching so it fails on any input.
func project(re *regexp.Regexp, p *matcher.Pattern, m *matcher.Matcher, line string) (matcher.Result, error) {
	fields := p.Fields()
	for _, f := range fields {
		if f.Group != nil && *f.Group == 0 {
			return nil, errGroupZero
		}
	}

	idx := re.FindStringSubmatchIndex(line)
	if idx == nil {
		return nil, nil
	}

	out := make(matcher.Result, len(fields)+1)
	for _, f := range fields {
		g := f.Group
		// A submatch index pair of -1 means the group did not participate in
		// the match, which is indistinguishable from "does not exist" as far
		// as the matcher author is concerned.
		if g == nil || *g < 0 || 2*(*g)+1 >= len(idx) || idx[2*(*g)] < 0 {
			return nil, fmt.Errorf("Invalid capture group provided. Group %s (%s) does not exist in regexp", groupLabel(g), f.Name)
		}
		out[f.Name] = strings.TrimSpace(line[idx[2*(*g)]:idx[2*(*g)+1]])
	}
	if _, ok := out[matcher.FieldSeverity]; !ok && m.Severity != "" {
		out[matcher.FieldSeverity] = m.Severity
	}
	return out, nil
}

func groupLabel(g *int) string {
	if g == nil {
		return "<nil>"
	}
	return strconv.Itoa(*g)
}
