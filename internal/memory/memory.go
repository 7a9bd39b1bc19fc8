package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Interaction is one logged exchange. Immutable once appended.
type Interaction struct {
	Timestamp string         `json:"timestamp"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
}

// Fact is a long-term record keyed by extraction category
// (file_/function_/class_/error_ prefixes).
type Fact map[string]string

// Snapshot is the durable form of a store: the fact index plus the full
// interaction log. The recent buffer is derived on load.
type Snapshot struct {
	Facts map[string]Fact `json:"facts"`
	Log   []Interaction   `json:"interactions"`
}

// Backend persists snapshots. Implemented by storage.SQLiteStore.
type Backend interface {
	SaveSnapshot(snap Snapshot) error
	LoadSnapshot() (Snapshot, bool, error)
}

// SearchResult tags a match with its origin (recent buffer or fact index).
type SearchResult struct {
	Origin      string      `json:"origin"` // "recent" | "fact"
	Interaction Interaction `json:"interaction,omitempty"`
	Key         string      `json:"key,omitempty"`
	Fact        Fact        `json:"fact,omitempty"`
}

// Summary is the session-level digest returned by SummarizeSession.
type Summary struct {
	TotalInteractions int    `json:"total_interactions"`
	FilesMentioned    int    `json:"files_mentioned"`
	FunctionsDefined  int    `json:"functions_defined"`
	ClassesDefined    int    `json:"classes_defined"`
	ErrorsEncountered int    `json:"errors_encountered"`
	SessionStart      string `json:"session_start,omitempty"`
	LastInteraction   string `json:"last_interaction,omitempty"`
}

const DefaultCapacity = 100

// Store keeps the append-only interaction log, a bounded recent-interaction
// buffer, and the derived fact index. Not safe for concurrent use; the engine
// runs at most one request at a time.
type Store struct {
	capacity  int
	recent    []Interaction
	facts     map[string]Fact
	log       []Interaction
	backend   Backend
	tokenizer *Tokenizer
	now       func() time.Time
}

type Option func(*Store)

// WithBackend attaches a persistence backend used by Save and Load.
func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithTokenizer overrides the token counter used by RecentTokens.
func WithTokenizer(t *Tokenizer) Option {
	return func(s *Store) { s.tokenizer = t }
}

func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(capacity int, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{
		capacity: capacity,
		facts:    map[string]Fact{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokenizer == nil {
		s.tokenizer = DefaultTokenizer()
	}
	return s
}

func (s *Store) Capacity() int {
	return s.capacity
}

// AddInteraction appends to the log and the recent buffer, then runs fact
// extraction over the content.
func (s *Store) AddInteraction(role, content string, metadata map[string]any) Interaction {
	if metadata == nil {
		metadata = map[string]any{}
	}
	in := Interaction{
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Role:      role,
		Content:   content,
		Metadata:  metadata,
	}
	s.log = append(s.log, in)
	s.pushRecent(in)
	s.extractFacts(in)
	return in
}

func (s *Store) pushRecent(in Interaction) {
	s.recent = append(s.recent, in)
	if len(s.recent) > s.capacity {
		s.recent = s.recent[len(s.recent)-s.capacity:]
	}
}

// RecentContext returns the last n buffered interactions, oldest first.
func (s *Store) RecentContext(n int) []Interaction {
	if n <= 0 || len(s.recent) == 0 {
		return nil
	}
	if n > len(s.recent) {
		n = len(s.recent)
	}
	out := make([]Interaction, n)
	copy(out, s.recent[len(s.recent)-n:])
	return out
}

// RecentTokens estimates the token footprint of the last n buffered
// interactions.
func (s *Store) RecentTokens(n int) int {
	total := 0
	for _, in := range s.RecentContext(n) {
		total += s.tokenizer.CountText(in.Role)
		total += s.tokenizer.CountText(in.Content)
	}
	return total
}

// Search scopes: "recent" matches buffered interaction content, "facts"
// matches fact keys and stringified values, "all" matches both.
func (s *Store) Search(query, scope string) []SearchResult {
	q := strings.ToLower(query)
	var results []SearchResult

	if scope == "recent" || scope == "all" {
		for _, in := range s.recent {
			if strings.Contains(strings.ToLower(in.Content), q) {
				results = append(results, SearchResult{Origin: "recent", Interaction: in})
			}
		}
	}

	if scope == "facts" || scope == "all" {
		keys := make([]string, 0, len(s.facts))
		for key := range s.facts {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fact := s.facts[key]
			if strings.Contains(strings.ToLower(key), q) || strings.Contains(strings.ToLower(stringifyFact(fact)), q) {
				results = append(results, SearchResult{Origin: "fact", Key: key, Fact: fact})
			}
		}
	}

	return results
}

func stringifyFact(f Fact) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(f[k])
		b.WriteString(" ")
	}
	return b.String()
}

// Fact returns the fact stored under key, if any.
func (s *Store) Fact(key string) (Fact, bool) {
	f, ok := s.facts[key]
	return f, ok
}

// InteractionCount reports the full log length.
func (s *Store) InteractionCount() int {
	return len(s.log)
}

func (s *Store) SummarizeSession() Summary {
	sum := Summary{TotalInteractions: len(s.log)}
	for key := range s.facts {
		switch {
		case strings.HasPrefix(key, "file_"):
			sum.FilesMentioned++
		case strings.HasPrefix(key, "function_"):
			sum.FunctionsDefined++
		case strings.HasPrefix(key, "class_"):
			sum.ClassesDefined++
		case strings.HasPrefix(key, "error_"):
			sum.ErrorsEncountered++
		}
	}
	if len(s.log) > 0 {
		sum.SessionStart = s.log[0].Timestamp
		sum.LastInteraction = s.log[len(s.log)-1].Timestamp
	}
	return sum
}

// FileHistory returns every logged interaction whose content mentions path.
func (s *Store) FileHistory(path string) []Interaction {
	var out []Interaction
	for _, in := range s.log {
		if strings.Contains(in.Content, path) {
			out = append(out, in)
		}
	}
	return out
}

// ErrorHistory returns the error facts in key order.
func (s *Store) ErrorHistory() []Fact {
	keys := make([]string, 0)
	for key := range s.facts {
		if strings.HasPrefix(key, "error_") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([]Fact, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.facts[key])
	}
	return out
}

// Save writes the fact index and interaction log to the backend as one
// snapshot.
func (s *Store) Save() error {
	if s.backend == nil {
		return nil
	}
	snap := Snapshot{Facts: s.facts, Log: s.log}
	if err := s.backend.SaveSnapshot(snap); err != nil {
		return fmt.Errorf("save memory snapshot: %w", err)
	}
	return nil
}

// Load restores the fact index and interaction log from the backend and
// rebuilds the recent buffer from the last capacity entries of the log.
func (s *Store) Load() error {
	if s.backend == nil {
		return nil
	}
	snap, ok, err := s.backend.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("load memory snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	s.facts = snap.Facts
	if s.facts == nil {
		s.facts = map[string]Fact{}
	}
	s.log = snap.Log
	s.recent = nil
	start := 0
	if len(s.log) > s.capacity {
		start = len(s.log) - s.capacity
	}
	for _, in := range s.log[start:] {
		s.recent = append(s.recent, in)
	}
	return nil
}

// Clear wipes the buffer, the fact index, and the full log.
func (s *Store) Clear() {
	s.recent = nil
	s.facts = map[string]Fact{}
	s.log = nil
}

// ExportJSON writes a human-readable digest of the store to path.
func (s *Store) ExportJSON(path string) error {
	keys := make([]string, 0, len(s.facts))
	for key := range s.facts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	export := map[string]any{
		"summary":            s.SummarizeSession(),
		"recent_context":     s.recent,
		"fact_keys":          keys,
		"interactions_count": len(s.log),
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal memory export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write memory export: %w", err)
	}
	return nil
}
