package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// MultiQueryRetriever fans sub-queries out against the semantic index in
// parallel and merges the hits into one candidate set. A document found by
// several sub-queries keeps its single best similarity score.
type MultiQueryRetriever struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
}

func NewMultiQueryRetriever(embedder ports.Embedder, vectorDB ports.VectorStore) *MultiQueryRetriever {
	return &MultiQueryRetriever{embedder: embedder, vectorDB: vectorDB}
}

// Retrieve runs every sub-query and returns the merged candidates ordered by
// descending similarity. Individual sub-query failures only shrink the pool;
// an error is returned only when every sub-query failed.
func (uc *MultiQueryRetriever) Retrieve(ctx context.Context, subqueries []string, perQueryK, concurrency int) ([]domain.RetrievedChunk, error) {
	if len(subqueries) == 0 {
		return nil, nil
	}
	if perQueryK <= 0 {
		perQueryK = 15
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	merged := newMergeSet()
	var (
		failMu   sync.Mutex
		failures int
		firstErr error
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, q := range subqueries {
		query := q
		g.Go(func() error {
			hits, err := uc.searchOne(groupCtx, query, perQueryK)
			if err != nil {
				slog.Warn("subquery_search_failed", "query", query, "error", err)
				failMu.Lock()
				failures++
				if firstErr == nil {
					firstErr = err
				}
				failMu.Unlock()
				return nil
			}
			merged.Merge(hits)
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(subqueries) {
		return nil, domain.WrapError(domain.ErrTemporary, "retrieve candidates", firstErr)
	}
	return merged.Sorted(), nil
}

func (uc *MultiQueryRetriever) searchOne(ctx context.Context, query string, limit int) ([]domain.RetrievedChunk, error) {
	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return uc.vectorDB.Search(ctx, vector, limit)
}

// mergeSet accumulates hits keyed by document identifier. Only a strictly
// higher score replaces an entry, so merging the same result set twice is a
// no-op.
type mergeSet struct {
	mu     sync.Mutex
	chunks map[string]domain.RetrievedChunk
}

func newMergeSet() *mergeSet {
	return &mergeSet{chunks: make(map[string]domain.RetrievedChunk)}
}

func (m *mergeSet) Merge(hits []domain.RetrievedChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, hit := range hits {
		if hit.ID == "" {
			continue
		}
		current, ok := m.chunks[hit.ID]
		if !ok || hit.Score > current.Score {
			m.chunks[hit.ID] = hit
		}
	}
}

// Sorted returns the merged chunks by descending score, identifier ascending
// on ties, so downstream ordering is deterministic.
func (m *mergeSet) Sorted() []domain.RetrievedChunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.RetrievedChunk, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		out = append(out, chunk)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
