package engine

import (
	"regexp/syntax"

	ac "github.com/petar-dambovaliev/aho-corasick"

	"github.com/problemmatch/problemmatch/pkg/matcher"
)

// minLiteralLen filters out fragments too short to be selective.
const minLiteralLen = 3

// literalPrefilter skips whole matchers cheaply: if none of the literal
// fragments required by a matcher's record-producing pattern appear anywhere
// in the input, that matcher cannot emit a record and is not evaluated.
// Matchers with no extractable literal are always candidates, so the
// prefilter can only skip work, never change results.
type literalPrefilter struct {
	automaton *ac.AhoCorasick
	patterns  []string
	// literal index (automaton pattern id) -> matcher indexes requiring it
	litToMatchers map[int][]int
	// matcher indexes with no usable literal
	alwaysCandidates []int
}

func buildPrefilter(ms []*matcher.Matcher) *literalPrefilter {
	p := &literalPrefilter{litToMatchers: map[int][]int{}}
	seen := map[string]int{} // lowercased literal -> pattern id
	for mi, m := range ms {
		if m == nil || len(m.Pattern) == 0 {
			// Malformed; keep it a candidate so Match reports the error.
			p.alwaysCandidates = append(p.alwaysCandidates, mi)
			continue
		}
		// Records only come from the last pattern (the loop pattern in
		// multi-pattern matchers, the lone pattern otherwise), so its
		// literals are the ones any record-producing input must contain.
		lits := requiredLiterals(m.Pattern[len(m.Pattern)-1].Regexp)
		if len(lits) == 0 {
			p.alwaysCandidates = append(p.alwaysCandidates, mi)
			continue
		}
		for _, lit := range lits {
			id, ok := seen[lit]
			if !ok {
				id = len(p.patterns)
				p.patterns = append(p.patterns, lit)
				seen[lit] = id
			}
			p.litToMatchers[id] = append(p.litToMatchers[id], mi)
		}
	}
	if len(p.patterns) > 0 {
		builder := ac.NewAhoCorasickBuilder(ac.Opts{
			AsciiCaseInsensitive: true,
			MatchKind:            ac.LeftMostLongestMatch,
		})
		built := builder.Build(p.patterns)
		p.automaton = &built
	}
	return p
}

// candidates returns the set of matcher indexes worth evaluating for input.
func (p *literalPrefilter) candidates(input string) map[int]struct{} {
	cands := make(map[int]struct{}, len(p.alwaysCandidates))
	for _, mi := range p.alwaysCandidates {
		cands[mi] = struct{}{}
	}
	if p.automaton == nil {
		return cands
	}
	for _, m := range p.automaton.FindAll(input) {
		for _, mi := range p.litToMatchers[m.Pattern()] {
			cands[mi] = struct{}{}
		}
	}
	return cands
}

// PatternCount reports how many distinct literals feed the automaton.
func (p *literalPrefilter) PatternCount() int { return len(p.patterns) }

// requiredLiterals extracts literal substrings that any match of the regexp
// must contain. Extraction is conservative: only ASCII literals concatenated
// at the top level (or inside required capture groups) count; alternation,
// repetition and unparseable sources contribute nothing.
func requiredLiterals(src string) []string {
	re, err := syntax.Parse(src, syntax.Perl)
	if err != nil {
		return nil
	}
	var out []string
	var walk func(*syntax.Regexp)
	walk = func(r *syntax.Regexp) {
		switch r.Op {
		case syntax.OpConcat, syntax.OpCapture:
			for _, sub := range r.Sub {
				walk(sub)
			}
		case syntax.OpLiteral:
			lit := string(r.Rune)
			if len(lit) >= minLiteralLen && isASCII(lit) {
				out = append(out, lit)
			}
		}
	}
	walk(re.Simplify())
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
