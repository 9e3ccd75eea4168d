package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/problemmatch/problemmatch/internal/sources"
	"github.com/problemmatch/problemmatch/pkg/engine"
	"github.com/problemmatch/problemmatch/pkg/matcher"
)

type AppServer struct {
	db      *sql.DB
	engine  *engine.Engine
	sources *sources.Manager
	mu      sync.RWMutex // protects engine swap
	scanMu  sync.Mutex   // serialize scans (regex cache and counters are not goroutine-safe)
}

func NewAppServer(db *sql.DB, eng *engine.Engine) *AppServer {
	return &AppServer{db: db, engine: eng, sources: sources.New(24 * time.Hour)}
}

// RegisterRoutes wires HTTP handlers.
func (s *AppServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/scan", s.handleScan)
	mux.HandleFunc("/api/v1/annotations", s.handleListAnnotations)
	mux.HandleFunc("/api/v1/sources", s.handleListSources)
	mux.HandleFunc("/api/v1/matchers", s.handleMatchers)
}

func (s *AppServer) currentEngine() *engine.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *AppServer) swapEngine(e *engine.Engine) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

// ---- Handlers ----

func (s *AppServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *AppServer) handleStats(w http.ResponseWriter, r *http.Request) {
	s.scanMu.Lock()
	st := s.currentEngine().Stats()
	s.scanMu.Unlock()
	writeJSON(w, http.StatusOK, st)
}

// handleScan accepts raw tool output and returns (and persists) every
// annotation the matcher set extracts from it.
func (s *AppServer) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Source string `json:"source"`
		Output string `json:"output"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	eng := s.currentEngine()
	s.scanMu.Lock()
	anns, err := eng.Scan(req.Output)
	s.scanMu.Unlock()
	if errors.Is(err, engine.ErrNoInput) {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		// Matcher configuration bug, not a data condition.
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	scanID, err := s.insertScan(r.Context(), req.Source, len(anns))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	for _, a := range anns {
		if err := s.insertAnnotation(r.Context(), scanID, a); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
	}
	s.sources.Observe(req.Source, len(anns))
	if len(anns) > 0 {
		log.Printf("scan source=%s annotations=%d", req.Source, len(anns))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scan_id":     scanID,
		"count":       len(anns),
		"annotations": anns,
	})
}

func (s *AppServer) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 200
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	rows, err := s.db.QueryContext(r.Context(), `SELECT id, created_at, scan_id, owner, file, line, col, severity, code, message, fields FROM annotations ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	defer rows.Close()
	type ann struct {
		ID        int64           `json:"id"`
		CreatedAt time.Time       `json:"created_at"`
		ScanID    int64           `json:"scan_id"`
		Owner     string          `json:"owner"`
		File      string          `json:"file"`
		Line      string          `json:"line"`
		Column    string          `json:"column"`
		Severity  string          `json:"severity"`
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		Fields    json.RawMessage `json:"fields"`
	}
	out := []ann{}
	for rows.Next() {
		var a ann
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.ScanID, &a.Owner, &a.File, &a.Line, &a.Column, &a.Severity, &a.Code, &a.Message, &a.Fields); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *AppServer) handleListSources(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, s.sources.List(limit))
}

// handleMatchers supports GET (current counts) and POST (replace the matcher
// set). The POST body is a matcher-definition document, the same format the
// filesystem loader reads.
func (s *AppServer) handleMatchers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st := s.currentEngine().Stats()
		writeJSON(w, http.StatusOK, map[string]any{
			"matchers":           st.Matchers,
			"prefilter_patterns": st.PrefilterPatterns,
		})
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		ms, err := matcher.LoadDefinitions(body)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		newEngine, err := engine.Compile(ms)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		if err := s.UpsertMatchers(r.Context(), ms); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		s.swapEngine(newEngine)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "matchers": newEngine.MatcherCount()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ---- Persistence ----

func (s *AppServer) insertScan(ctx context.Context, source string, count int) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO scans(received_at, source, annotation_count) VALUES ($1,$2,$3) RETURNING id`,
		time.Now().UTC(), source, count).Scan(&id)
	return id, err
}

func (s *AppServer) insertAnnotation(ctx context.Context, scanID int64, a engine.Annotation) error {
	b, _ := json.Marshal(a.Fields)
	f := a.Fields
	_, err := s.db.ExecContext(ctx, `INSERT INTO annotations(created_at, scan_id, owner, file, line, col, severity, code, message, fields)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		time.Now().UTC(), scanID, a.Owner,
		f[matcher.FieldFile], f[matcher.FieldLine], f[matcher.FieldColumn],
		f[matcher.FieldSeverity], f[matcher.FieldCode], f[matcher.FieldMessage],
		string(b),
	)
	return err
}

// ---- Helpers ----

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON error: %v", err)
	}
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
