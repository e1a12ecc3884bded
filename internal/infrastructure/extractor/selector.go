package extractor

import (
	"context"
	"strings"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// Selector routes extraction by document type. Anything that is not a PDF
// goes through the plaintext extractor, whose utf8 check rejects binary
// formats we have no extractor for.
type Selector struct {
	plaintext ports.TextExtractor
	pdf       ports.TextExtractor
}

func NewSelector(plaintext, pdf ports.TextExtractor) *Selector {
	return &Selector{plaintext: plaintext, pdf: pdf}
}

func (s *Selector) Extract(ctx context.Context, doc *domain.KnowledgeDocument) (string, error) {
	if isPDF(doc) {
		return s.pdf.Extract(ctx, doc)
	}
	return s.plaintext.Extract(ctx, doc)
}

func isPDF(doc *domain.KnowledgeDocument) bool {
	if strings.EqualFold(strings.TrimSpace(doc.MimeType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(doc.Filename), ".pdf")
}
