package sources

import (
	"sort"
	"sync"
	"time"
)

// Record describes one scan source (a CI job, a pipeline step, a developer
// machine) and what it has sent so far.
type Record struct {
	Source      string    `json:"source"`
	LastSeen    time.Time `json:"last_seen"`
	Scans       int       `json:"scans"`
	Annotations int       `json:"annotations"`
}

// Manager keeps source records in memory with concurrent access protection.
type Manager struct {
	mu         sync.RWMutex
	items      map[string]Record
	defaultTTL time.Duration
}

func New(ttl time.Duration) *Manager {
	return &Manager{items: make(map[string]Record), defaultTTL: ttl}
}

// Observe records one scan from a source. Unnamed sources are not tracked.
func (m *Manager) Observe(source string, annotations int) {
	if source == "" {
		return
	}
	m.mu.Lock()
	r := m.items[source]
	r.Source = source
	r.LastSeen = time.Now().UTC()
	r.Scans++
	r.Annotations += annotations
	m.items[source] = r
	m.mu.Unlock()
}

func (m *Manager) Get(source string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.items[source]
	return r, ok
}

// List returns up to limit sources ordered by LastSeen desc.
func (m *Manager) List(limit int) []Record {
	m.mu.RLock()
	out := make([]Record, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, v)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	if limit > 0 && len(out) > limit {
		return out[:limit]
	}
	return out
}

// Cleanup removes sources not seen within ttl (ttl <= 0 uses the default;
// if both are 0, no-op).
func (m *Manager) Cleanup(ttl time.Duration) int {
	effective := ttl
	if effective <= 0 {
		effective = m.defaultTTL
	}
	if effective <= 0 {
		return 0
	}
	cutoff := time.Now().UTC().Add(-effective)
	removed := 0
	m.mu.Lock()
	for k, v := range m.items {
		if v.LastSeen.Before(cutoff) {
			delete(m.items, k)
			removed++
		}
	}
	m.mu.Unlock()
	return removed
}
