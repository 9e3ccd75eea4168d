package engine

import (
	"fmt"
	"regexp"

	"github.com/problemmatch/problemmatch/pkg/matcher"
)

// Annotation is one extracted record attributed to the matcher that found it.
type Annotation struct {
	Owner  string         `json:"owner"`
	Fields matcher.Result `json:"fields"`
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Matchers          int `json:"matchers"`
	PrefilterPatterns int `json:"prefilter_patterns"`
	PrefilterHits     int `json:"prefilter_hits"`
	PrefilterMisses   int `json:"prefilter_misses"`
}

// Engine holds a compiled matcher set: every regexp compiled once (cache
// keyed by pattern source) and a literal prefilter over the set. Scan is not
// goroutine-safe; callers serialize access the way the server does.
type Engine struct {
	matchers []*matcher.Matcher
	regexps  map[string]*regexp.Regexp
	pre      *literalPrefilter

	prefilterHits   int
	prefilterMisses int
}

// Compile builds an Engine from a matcher set, failing on the first regexp
// that does not compile. Matcher-shape validation stays in Match so its
// contract errors surface per scan, unchanged.
func Compile(ms []*matcher.Matcher) (*Engine, error) {
	e := &Engine{
		matchers: ms,
		regexps:  map[string]*regexp.Regexp{},
	}
	for _, m := range ms {
		if m == nil || len(m.Pattern) == 0 {
			continue
		}
		for i := range m.Pattern {
			src := m.Pattern[i].Regexp
			if _, ok := e.regexps[src]; ok {
				continue
			}
			re, err := regexp.Compile(src)
			if err != nil {
				return nil, fmt.Errorf("matcher %s: compile regexp %q: %w", m.Owner, src, err)
			}
			e.regexps[src] = re
		}
	}
	e.pre = buildPrefilter(ms)
	return e, nil
}

func (e *Engine) lookup(src string) (*regexp.Regexp, error) {
	if re, ok := e.regexps[src]; ok {
		return re, nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	e.regexps[src] = re
	return re, nil
}

// Scan runs every candidate matcher over input. Output is grouped by matcher
// in registration order, records in input order within each matcher. A
// configuration error in any matcher aborts the scan.
func (e *Engine) Scan(input string) ([]Annotation, error) {
	if input == "" {
		return nil, ErrNoInput
	}
	cands := e.pre.candidates(input)
	var out []Annotation
	for mi, m := range e.matchers {
		if _, ok := cands[mi]; !ok {
			e.prefilterMisses++
			continue
		}
		e.prefilterHits++
		results, err := match(m, input, e.lookup)
		if err != nil {
			return nil, fmt.Errorf("matcher %s: %w", m.Owner, err)
		}
		for _, r := range results {
			out = append(out, Annotation{Owner: m.Owner, Fields: r})
		}
	}
	return out, nil
}

func (e *Engine) MatcherCount() int { return len(e.matchers) }

func (e *Engine) Stats() Stats {
	return Stats{
		Matchers:          len(e.matchers),
		PrefilterPatterns: e.pre.PatternCount(),
		PrefilterHits:     e.prefilterHits,
		PrefilterMisses:   e.prefilterMisses,
	}
}
