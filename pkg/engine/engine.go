package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/problemmatch/problemmatch/pkg/matcher"
)

// Contract errors. Message text is observable behavior, so it is fixed here
// rather than composed ad hoc at call sites.
var (
	ErrNoMatcher    = errors.New("No matcher provided")
	ErrNoOwner      = errors.New("No matcher.owner provided")
	ErrNoPattern    = errors.New("No matcher.pattern provided")
	ErrEmptyPattern = errors.New("matcher.pattern must be an array with at least one value")
	ErrNoInput      = errors.New("No input provided")
	ErrUnsupported  = errors.New("Unsupported pattern configuration. We currently support single pattern and multi-line loop pattern configurations")
)

// compileFunc resolves a pattern source to a compiled regexp. Match uses
// regexp.Compile directly; the compiled Engine supplies its cache.
type compileFunc func(src string) (*regexp.Regexp, error)

// Match runs one matcher over raw tool output and returns one Result per
// matched logical record, in input order. Configuration problems (malformed
// matcher, bad capture group, unsupported pattern shape) are errors; lines
// that simply do not match are not.
func Match(m *matcher.Matcher, input string) ([]matcher.Result, error) {
	return match(m, input, regexp.Compile)
}

func match(m *matcher.Matcher, input string, compile compileFunc) ([]matcher.Result, error) {
	if m == nil {
		return nil, ErrNoMatcher
	}
	if m.Owner == "" {
		return nil, ErrNoOwner
	}
	if m.Pattern == nil {
		return nil, ErrNoPattern
	}
	if len(m.Pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	if input == "" {
		return nil, ErrNoInput
	}

	if len(m.Pattern) == 1 {
		return matchSingle(m, splitLines(input), compile)
	}
	if m.Pattern[len(m.Pattern)-1].Loop {
		return matchLoop(m, splitLines(input), compile)
	}
	return nil, ErrUnsupported
}

// matchSingle applies the lone pattern to every line independently.
func matchSingle(m *matcher.Matcher, lines []string, compile compileFunc) ([]matcher.Result, error) {
	p := &m.Pattern[0]
	re, err := compile(p.Regexp)
	if err != nil {
		return nil, fmt.Errorf("compile pattern regexp %q: %w", p.Regexp, err)
	}
	var out []matcher.Result
	for _, line := range lines {
		r, err := project(re, p, m, line)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// matchLoop runs the two-phase state loop over an index-addressable line
// buffer: one context pass seeds shared fields from a single line, then the
// loop pattern consumes lines until a non-blank one fails to match. That line
// is handed back to seed the next context pass.
func matchLoop(m *matcher.Matcher, lines []string, compile compileFunc) ([]matcher.Result, error) {
	res := make([]*regexp.Regexp, len(m.Pattern))
	for i := range m.Pattern {
		re, err := compile(m.Pattern[i].Regexp)
		if err != nil {
			return nil, fmt.Errorf("compile pattern regexp %q: %w", m.Pattern[i].Regexp, err)
		}
		res[i] = re
	}

	var out []matcher.Result
	i := 0
	for i < len(lines) {
		context := matcher.Result{}
		line := lines[i]
		i++
		for pi := range m.Pattern {
			p := &m.Pattern[pi]
			if !p.Loop {
				// Every context pattern sees the same line; one that does
				// not match contributes no fields. This does not advance per
				// context pattern, matching the observed contract.
				r, err := project(res[pi], p, m, line)
				if err != nil {
					return nil, err
				}
				for k, v := range r {
					context[k] = v
				}
				continue
			}
			for i < len(lines) {
				line = lines[i]
				i++
				if line == "" {
					continue
				}
				r, err := project(res[pi], p, m, line)
				if err != nil {
					return nil, err
				}
				if r == nil {
					// Not a loop match: hand the line back so it can seed
					// the next context pass.
					i--
					break
				}
				rec := make(matcher.Result, len(context)+len(r))
				for k, v := range context {
					rec[k] = v
				}
				for k, v := range r {
					rec[k] = v
				}
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// splitLines splits on '\n', tolerating CRLF tool output.
func splitLines(input string) []string {
	lines := strings.Split(input, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
