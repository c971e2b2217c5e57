package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/modathread/rag-backend/models"
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

// index is one immutable snapshot of the catalog. Reload builds a fresh
// index and swaps it in whole, so readers never observe a partial rebuild.
type index struct {
	records  []models.ProductRecord
	byID     map[string]int
	byBrand  map[string][]int
	byCat    map[string][]int
	byTag    map[string][]int
	bySize   map[string][]int
	tokens   []map[string]struct{} // pre-tokenized searchable text, one per record
}

// Store is the in-memory structured index over product records.
type Store struct {
	path   string
	logger *zap.Logger

	mu  sync.RWMutex
	idx *index
}

// NewStore loads the catalog from the given JSONL path.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the source file, rebuilds every secondary index and swaps
// the whole snapshot atomically.
func (s *Store) Reload() error {
	records, err := readJSONL(s.path)
	if err != nil {
		return fmt.Errorf("load product catalog: %w", err)
	}

	idx := buildIndex(records)

	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()

	s.logger.Info("product catalog loaded",
		zap.String("path", s.path),
		zap.Int("records", len(records)))
	return nil
}

// Watch reloads the catalog whenever the source file changes. It blocks
// until the context is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and atomic writers replace the file,
	// which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch catalog directory: %w", err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Error("catalog reload failed, keeping previous snapshot", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("catalog watcher error", zap.Error(err))
		}
	}
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idx.records)
}

// All returns every record in catalog insertion order.
func (s *Store) All() []models.ProductRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ProductRecord, len(s.idx.records))
	copy(out, s.idx.records)
	return out
}

// Get returns the record with the given id (case-insensitive), or false.
func (s *Store) Get(id string) (models.ProductRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.idx.byID[strings.ToLower(id)]
	if !ok {
		return models.ProductRecord{}, false
	}
	return s.idx.records[pos], true
}

// Search returns up to topK records matching every supplied filter exactly
// (case-insensitive), ranked by token overlap with queryText and, at equal
// overlap, by catalog insertion order. No match is not an error: the result
// is simply empty. topK <= 0 means unbounded.
func (s *Store) Search(filters models.ProductFilters, queryText string, topK int) []models.ProductRecord {
	idx := s.snapshot()

	ranked := idx.rank(filters, queryText, topK)
	if len(ranked) == 0 {
		return nil
	}
	out := make([]models.ProductRecord, len(ranked))
	for i, m := range ranked {
		out[i] = idx.records[m.pos]
	}
	return out
}

// ScoredSearch is Search with the overlap counts exposed, for rank fusion.
// Records and scores come from the same snapshot, so a concurrent reload
// never mixes two generations of the index.
func (s *Store) ScoredSearch(filters models.ProductFilters, queryText string, topK int) ([]models.ProductRecord, []float64) {
	idx := s.snapshot()

	ranked := idx.rank(filters, queryText, topK)
	records := make([]models.ProductRecord, len(ranked))
	scores := make([]float64, len(ranked))
	for i, m := range ranked {
		records[i] = idx.records[m.pos]
		scores[i] = float64(m.overlap)
	}
	return records, scores
}

func (s *Store) snapshot() *index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx
}

type match struct {
	pos     int
	overlap int
}

// rank narrows by filters and orders by token overlap within one snapshot.
func (idx *index) rank(filters models.ProductFilters, queryText string, topK int) []match {
	candidates := idx.narrow(filters)
	if len(candidates) == 0 {
		return nil
	}

	queryTokens := tokenize(queryText)
	ranked := make([]match, 0, len(candidates))
	for _, pos := range candidates {
		overlap := 0
		for tok := range queryTokens {
			if _, ok := idx.tokens[pos][tok]; ok {
				overlap++
			}
		}
		if len(queryTokens) > 0 && overlap == 0 && filters.Empty() {
			// Pure free-text search drops non-matching records; filtered
			// lookups keep every filter match even without text overlap.
			continue
		}
		ranked = append(ranked, match{pos: pos, overlap: overlap})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].overlap != ranked[j].overlap {
			return ranked[i].overlap > ranked[j].overlap
		}
		return ranked[i].pos < ranked[j].pos
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func (idx *index) narrow(filters models.ProductFilters) []int {
	all := func() []int {
		out := make([]int, len(idx.records))
		for i := range idx.records {
			out[i] = i
		}
		return out
	}

	candidates := all()
	if filters.Brand != "" {
		candidates = intersect(candidates, idx.byBrand[strings.ToLower(filters.Brand)])
	}
	if filters.Category != "" {
		candidates = intersect(candidates, idx.byCat[strings.ToLower(filters.Category)])
	}
	if filters.Tag != "" {
		candidates = intersect(candidates, idx.byTag[strings.ToLower(filters.Tag)])
	}
	if filters.Size != "" {
		candidates = intersect(candidates, idx.bySize[strings.ToLower(filters.Size)])
	}
	return candidates
}

// intersect keeps the elements of a that are also in b; both are sorted
// ascending, and the result preserves insertion order.
func intersect(a, b []int) []int {
	set := make(map[int]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	out := a[:0:0]
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func buildIndex(records []models.ProductRecord) *index {
	idx := &index{
		records: records,
		byID:    make(map[string]int, len(records)),
		byBrand: make(map[string][]int),
		byCat:   make(map[string][]int),
		byTag:   make(map[string][]int),
		bySize:  make(map[string][]int),
		tokens:  make([]map[string]struct{}, len(records)),
	}
	for i, rec := range records {
		idx.byID[strings.ToLower(rec.ID)] = i
		idx.byBrand[strings.ToLower(rec.Brand)] = append(idx.byBrand[strings.ToLower(rec.Brand)], i)
		idx.byCat[strings.ToLower(rec.Category)] = append(idx.byCat[strings.ToLower(rec.Category)], i)
		for _, tag := range rec.Tags {
			idx.byTag[strings.ToLower(tag)] = append(idx.byTag[strings.ToLower(tag)], i)
		}
		for _, size := range rec.Sizes {
			idx.bySize[strings.ToLower(size)] = append(idx.bySize[strings.ToLower(size)], i)
		}
		idx.tokens[i] = tokenize(searchableText(rec))
	}
	return idx
}

func searchableText(rec models.ProductRecord) string {
	parts := []string{rec.Name, rec.Brand, rec.Category, rec.Materials, rec.Description, rec.Care, rec.Color}
	parts = append(parts, rec.Tags...)
	return strings.Join(parts, " ")
}

func tokenize(text string) map[string]struct{} {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func readJSONL(path string) ([]models.ProductRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []models.ProductRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec models.ProductRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("parse product at line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
