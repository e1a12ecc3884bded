package ports

import (
	"context"
	"io"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

// CoachAsker is the inbound contract for answering player questions.
type CoachAsker interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.CoachingAnswer, error)
}

// ModelDirectory exposes the resolved reflex/thinking pair. Current resolves
// lazily and caches; Invalidate forces re-resolution on next use.
type ModelDirectory interface {
	Current(ctx context.Context) (domain.ModelPair, error)
	Invalidate()
}

// KnowledgeIngestor is the inbound contract for knowledge upload orchestration.
type KnowledgeIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.KnowledgeDocument, error)
}

// KnowledgeProcessor is the inbound contract for asynchronous document processing.
type KnowledgeProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// SheetIngestor accepts frame-data workbooks and schedules their import.
type SheetIngestor interface {
	UploadSheet(ctx context.Context, filename string, body io.Reader) (string, error)
}

// SheetImporter replaces lookup-table rows from a stored workbook.
type SheetImporter interface {
	ImportByKey(ctx context.Context, storageKey string) (*domain.ImportReport, error)
}
