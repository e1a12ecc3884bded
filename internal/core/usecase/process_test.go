package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type processRepoFake struct {
	doc           *domain.KnowledgeDocument
	getErr        error
	statusErr     error
	failStatusErr error
	statusCalls   []statusCall
}

func (f *processRepoFake) Create(context.Context, *domain.KnowledgeDocument) error { return nil }

func (f *processRepoFake) GetByID(context.Context, string) (*domain.KnowledgeDocument, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *processRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if f.statusErr != nil {
		return f.statusErr
	}
	return nil
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.KnowledgeDocument) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string { return f.chunks }

type embedderFake struct {
	vectors [][]float32
	err     error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) { return nil, nil }

type vectorFake struct {
	indexed int
	err     error
}

func (f *vectorFake) IndexChunks(_ context.Context, _ *domain.KnowledgeDocument, chunks []string, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = len(chunks)
	return nil
}

func (f *vectorFake) Search(context.Context, []float32, int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := &processRepoFake{doc: &domain.KnowledgeDocument{ID: "doc-1", Title: "Ledge Traps"}}
	vectors := &vectorFake{}
	uc := NewProcessKnowledgeUseCase(
		repo,
		&extractorFake{text: "text"},
		&chunkerFake{chunks: []string{"a", "b"}},
		&embedderFake{vectors: [][]float32{{1}, {2}}},
		vectors,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if vectors.indexed != 2 {
		t.Fatalf("expected 2 chunks indexed, got %d", vectors.indexed)
	}
}

func TestProcessByIDMarksFailedOnExtractError(t *testing.T) {
	repo := &processRepoFake{doc: &domain.KnowledgeDocument{ID: "doc-1"}}
	uc := NewProcessKnowledgeUseCase(
		repo,
		&extractorFake{err: errors.New("extract fail")},
		&chunkerFake{chunks: []string{"a"}},
		&embedderFake{vectors: [][]float32{{1}}},
		&vectorFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected processing + failed status updates, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %+v", repo.statusCalls[1])
	}
	if repo.statusCalls[1].errMsg == "" {
		t.Fatalf("failed status should carry the error message")
	}
}

func TestProcessByIDMarksFailedOnVectorMismatch(t *testing.T) {
	repo := &processRepoFake{doc: &domain.KnowledgeDocument{ID: "doc-1"}}
	uc := NewProcessKnowledgeUseCase(
		repo,
		&extractorFake{text: "text"},
		&chunkerFake{chunks: []string{"a", "b"}},
		&embedderFake{vectors: [][]float32{{1}}},
		&vectorFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected final failed status, got %+v", repo.statusCalls)
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput kind, got %v", err)
	}
}

func TestProcessByIDMarksFailedOnEmptyText(t *testing.T) {
	repo := &processRepoFake{doc: &domain.KnowledgeDocument{ID: "doc-1"}}
	uc := NewProcessKnowledgeUseCase(
		repo,
		&extractorFake{text: ""},
		&chunkerFake{chunks: []string{"a"}},
		&embedderFake{vectors: [][]float32{{1}}},
		&vectorFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil || !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty text, got %v", err)
	}
}
