package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

type fakeEmbedder struct {
	err   error
	calls atomic.Int32
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type fakeVectorStore struct {
	hits    [][]domain.RetrievedChunk
	err     error
	nextSet atomic.Int32
}

func (f *fakeVectorStore) IndexChunks(_ context.Context, _ *domain.KnowledgeDocument, _ []string, _ [][]float32) error {
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, _ int) ([]domain.RetrievedChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := int(f.nextSet.Add(1)) - 1
	if idx >= len(f.hits) {
		return nil, nil
	}
	return f.hits[idx], nil
}

func chunk(id string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{ID: id, Title: "doc-" + id, Text: "text " + id, Score: score}
}

func TestMergeKeepsBestScorePerDocument(t *testing.T) {
	m := newMergeSet()
	m.Merge([]domain.RetrievedChunk{chunk("a", 0.50), chunk("b", 0.40)})
	m.Merge([]domain.RetrievedChunk{chunk("a", 0.80), chunk("c", 0.30)})
	m.Merge([]domain.RetrievedChunk{chunk("a", 0.10)})

	got := m.Sorted()
	if len(got) != 3 {
		t.Fatalf("expected 3 unique documents, got %d", len(got))
	}
	if got[0].ID != "a" || got[0].Score != 0.80 {
		t.Fatalf("document a should keep its best score 0.80, got %+v", got[0])
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	hits := []domain.RetrievedChunk{chunk("a", 0.50), chunk("b", 0.40)}

	m := newMergeSet()
	m.Merge(hits)
	once := m.Sorted()
	m.Merge(hits)
	twice := m.Sorted()

	if len(once) != len(twice) {
		t.Fatalf("merging the same hits twice changed the set size: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("merge not idempotent at %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestMergeIgnoresEmptyIDs(t *testing.T) {
	m := newMergeSet()
	m.Merge([]domain.RetrievedChunk{{ID: "", Score: 0.9}, chunk("a", 0.5)})

	if got := m.Sorted(); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("hits without identifiers must be dropped, got %+v", got)
	}
}

func TestRetrieveMergesAcrossSubqueries(t *testing.T) {
	store := &fakeVectorStore{hits: [][]domain.RetrievedChunk{
		{chunk("a", 0.50), chunk("b", 0.40)},
		{chunk("a", 0.90), chunk("c", 0.60)},
	}}
	uc := NewMultiQueryRetriever(&fakeEmbedder{}, store)

	got, err := uc.Retrieve(context.Background(), []string{"q1", "q2"}, 15, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 merged documents, got %d", len(got))
	}
	if got[0].ID != "a" || got[0].Score != 0.90 {
		t.Fatalf("merged order should lead with a@0.90, got %+v", got[0])
	}
	if got[1].ID != "c" {
		t.Fatalf("expected c second, got %+v", got[1])
	}
}

func TestRetrieveFailsOnlyWhenEverySubqueryFails(t *testing.T) {
	uc := NewMultiQueryRetriever(&fakeEmbedder{err: errors.New("embedder down")}, &fakeVectorStore{})

	_, err := uc.Retrieve(context.Background(), []string{"q1", "q2"}, 15, 2)
	if err == nil {
		t.Fatal("expected an error when all subqueries fail")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary kind, got %v", err)
	}
}

func TestRetrieveToleratesPartialFailure(t *testing.T) {
	store := &fakeVectorStore{hits: [][]domain.RetrievedChunk{
		{chunk("a", 0.50)},
	}}
	flaky := &flakyEmbedder{failOn: 2}
	uc := NewMultiQueryRetriever(flaky, store)

	got, err := uc.Retrieve(context.Background(), []string{"q1", "q2"}, 15, 1)
	if err != nil {
		t.Fatalf("partial failure should not error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected the surviving subquery's hit, got %+v", got)
	}
}

func TestRetrieveEmptySubqueries(t *testing.T) {
	uc := NewMultiQueryRetriever(&fakeEmbedder{}, &fakeVectorStore{})

	got, err := uc.Retrieve(context.Background(), nil, 15, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no candidates, got %v", got)
	}
}

// flakyEmbedder fails the Nth EmbedQuery call and succeeds otherwise.
type flakyEmbedder struct {
	calls  atomic.Int32
	failOn int32
}

func (f *flakyEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1}
	}
	return out, nil
}

func (f *flakyEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.calls.Add(1) == f.failOn {
		return nil, errors.New("transient embed failure")
	}
	return []float32{0.1}, nil
}
