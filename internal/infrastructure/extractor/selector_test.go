package extractor

import (
	"context"
	"testing"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

type stubExtractor struct {
	text   string
	called bool
}

func (s *stubExtractor) Extract(_ context.Context, _ *domain.KnowledgeDocument) (string, error) {
	s.called = true
	return s.text, nil
}

func TestSelectorRoutesByMimeType(t *testing.T) {
	plain := &stubExtractor{text: "plain"}
	pdf := &stubExtractor{text: "pdf"}
	sel := NewSelector(plain, pdf)

	text, err := sel.Extract(context.Background(), &domain.KnowledgeDocument{MimeType: "application/pdf", Filename: "guide.bin"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "pdf" || !pdf.called || plain.called {
		t.Fatalf("expected pdf extractor, got %q (pdf=%v plain=%v)", text, pdf.called, plain.called)
	}
}

func TestSelectorRoutesByExtensionWhenMimeMissing(t *testing.T) {
	plain := &stubExtractor{text: "plain"}
	pdf := &stubExtractor{text: "pdf"}
	sel := NewSelector(plain, pdf)

	text, _ := sel.Extract(context.Background(), &domain.KnowledgeDocument{Filename: "Guide.PDF"})
	if text != "pdf" || !pdf.called {
		t.Fatalf("expected pdf extractor for .pdf filename, got %q", text)
	}
}

func TestSelectorDefaultsToPlaintext(t *testing.T) {
	plain := &stubExtractor{text: "plain"}
	pdf := &stubExtractor{text: "pdf"}
	sel := NewSelector(plain, pdf)

	text, _ := sel.Extract(context.Background(), &domain.KnowledgeDocument{MimeType: "text/markdown", Filename: "notes.md"})
	if text != "plain" || !plain.called || pdf.called {
		t.Fatalf("expected plaintext extractor, got %q", text)
	}
}
