package ports

import (
	"context"
	"io"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

// ModelCatalog lists the provider's generation model descriptors.
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]domain.ModelDescriptor, error)
}

// ModelProber issues a minimal live request against one model.
type ModelProber interface {
	Probe(ctx context.Context, modelID string) error
}

// IntentClassifier extracts an intent tag and entity hints from a question.
type IntentClassifier interface {
	Classify(ctx context.Context, modelID, question string) (domain.QuestionAnalysis, error)
}

// QueryExpander produces up to max alternative phrasings of a question,
// not including the question itself.
type QueryExpander interface {
	Expand(ctx context.Context, modelID, question string, max int) ([]string, error)
}

// RelevanceJudge scores one candidate's answer-relevance on [1,10].
type RelevanceJudge interface {
	Judge(ctx context.Context, modelID, question string, chunk domain.RetrievedChunk) (int, error)
}

// AnswerGenerator performs the synthesizer's generation calls.
type AnswerGenerator interface {
	GenerateGrounded(ctx context.Context, modelID, question, facts, history string) (string, error)
	GenerateAnalysis(ctx context.Context, modelID, question, contextBlock, history string) (string, error)
	GenerateAdvice(ctx context.Context, modelID, question, contextBlock, analysis, history string) (string, error)
}

// HistorySummarizer compresses prior turns into the portion relevant to the
// current question.
type HistorySummarizer interface {
	SummarizeHistory(ctx context.Context, modelID, history, question string) (string, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunks and performs nearest-neighbor search.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.KnowledgeDocument, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
}

// FrameDataStore reads and replaces exact move statistics.
type FrameDataStore interface {
	FindMoves(ctx context.Context, character, move string) ([]domain.MoveRecord, error)
	ReplaceCharacterMoves(ctx context.Context, character string, moves []domain.MoveRecord) (int, error)
}

// KnowledgeRepository persists knowledge document state.
type KnowledgeRepository interface {
	Create(ctx context.Context, doc *domain.KnowledgeDocument) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion and import events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishSheetReceived(ctx context.Context, storageKey string) error
	SubscribeSheetReceived(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.KnowledgeDocument) (string, error)
}

// Chunker splits text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// SheetParser parses a frame-data workbook into per-character move rows.
type SheetParser interface {
	Parse(r io.Reader) ([]domain.CharacterMoves, error)
}
