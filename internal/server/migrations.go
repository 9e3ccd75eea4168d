package server

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// InitSchema applies migrations from MIGRATIONS_PATH if set, otherwise from
// the first usable default location.
func (s *AppServer) InitSchema() error {
	candidates := []string{}
	if mp := os.Getenv("MIGRATIONS_PATH"); mp != "" {
		candidates = append(candidates, mp)
	}
	candidates = append(candidates, "./migrations", "/srv/migrations")
	var lastErr error
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			lastErr = err
			continue
		}
		if err := s.RunMigrations(p); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("init schema: no usable migrations path; last error: %v", lastErr)
}

// RunMigrations executes all SQL files in dir in lexicographic order. Each
// file may contain multiple statements separated by ';'.
func (s *AppServer) RunMigrations(dir string) error {
	files := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(files)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", p, err)
		}
		for _, chunk := range strings.Split(string(b), ";") {
			stmt := strings.TrimSpace(chunk)
			if stmt == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec migration %s: %w", p, err)
			}
		}
	}
	return nil
}
