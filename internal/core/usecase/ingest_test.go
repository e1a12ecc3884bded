package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.KnowledgeDocument
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, doc *domain.KnowledgeDocument) error {
	if f.err != nil {
		return f.err
	}
	copyDoc := *doc
	f.created = &copyDoc
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.KnowledgeDocument, error) {
	return nil, errors.New("not implemented")
}
func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return errors.New("not implemented")
}

type ingestStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *ingestStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *ingestStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type ingestQueueFake struct {
	documentID string
	sheetKey   string
	err        error
}

func (f *ingestQueueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.documentID = documentID
	return nil
}

func (f *ingestQueueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func (f *ingestQueueFake) PublishSheetReceived(_ context.Context, storageKey string) error {
	if f.err != nil {
		return f.err
	}
	f.sheetKey = storageKey
	return nil
}

func (f *ingestQueueFake) SubscribeSheetReceived(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestIngestUploadSuccess(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestKnowledgeUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "ledge trapping 101.txt", "text/plain", bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected document id")
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("expected status uploaded, got %s", doc.Status)
	}
	if doc.Title != "ledge trapping 101" {
		t.Fatalf("expected derived title, got %q", doc.Title)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if queue.documentID != doc.ID {
		t.Fatalf("expected queued doc id %s, got %s", doc.ID, queue.documentID)
	}
	if !strings.Contains(storage.savedKey, "_ledge_trapping_101.txt") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "hello" {
		t.Fatalf("expected saved body hello, got %s", storage.savedBody)
	}
}

func TestIngestUploadQueueError(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{err: errors.New("queue down")}
	uc := NewIngestKnowledgeUseCase(repo, storage, queue)

	_, err := uc.Upload(context.Background(), "notes.txt", "text/plain", bytes.NewBufferString("hello"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish ingestion event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestIngestUploadStorageError(t *testing.T) {
	uc := NewIngestKnowledgeUseCase(&ingestRepoFake{}, &ingestStorageFake{err: errors.New("disk full")}, &ingestQueueFake{})

	_, err := uc.Upload(context.Background(), "notes.txt", "text/plain", bytes.NewBufferString("hello"))
	if err == nil || !strings.Contains(err.Error(), "save to object storage") {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestTitleFromFilename(t *testing.T) {
	cases := map[string]string{
		"ledge_trapping-101.pdf": "ledge trapping 101",
		"Neutral Game.txt":       "Neutral Game",
		".txt":                   "untitled",
	}
	for in, want := range cases {
		if got := titleFromFilename(in); got != want {
			t.Fatalf("titleFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
