package server

import (
	"context"
	"fmt"
	"log"

	"github.com/problemmatch/problemmatch/internal/matchers"
	"github.com/problemmatch/problemmatch/pkg/engine"
	"github.com/problemmatch/problemmatch/pkg/matcher"
)

// LoadMatchersFromDir walks a directory recursively, parses every matcher
// definition, compiles a fresh engine, and swaps it in. Returns the number of
// matchers loaded.
func (s *AppServer) LoadMatchersFromDir(ctx context.Context, dir string) (int, error) {
	ms, err := matchers.LoadDirRecursive(dir)
	if err != nil {
		return 0, fmt.Errorf("load matchers: %w", err)
	}
	newEngine, err := engine.Compile(ms)
	if err != nil {
		return 0, err
	}
	if err := s.UpsertMatchers(ctx, ms); err != nil {
		return 0, fmt.Errorf("upsert matchers: %w", err)
	}
	s.swapEngine(newEngine)
	st := newEngine.Stats()
	log.Printf("matchers loaded: matchers=%d prefilter_patterns=%d", st.Matchers, st.PrefilterPatterns)
	return len(ms), nil
}

// UpsertMatchers writes or updates matcher metadata in the matchers table so
// annotations stay attributable after a set is replaced.
func (s *AppServer) UpsertMatchers(ctx context.Context, ms []*matcher.Matcher) error {
	for _, m := range ms {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO matchers(owner, default_severity, pattern_count)
			VALUES ($1,$2,$3)
			ON CONFLICT (owner) DO UPDATE SET default_severity=EXCLUDED.default_severity, pattern_count=EXCLUDED.pattern_count`,
			m.Owner, m.Severity, len(m.Pattern),
		); err != nil {
			return err
		}
	}
	return nil
}
