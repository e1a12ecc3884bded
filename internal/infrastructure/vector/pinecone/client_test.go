package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

func TestSearchMapsMatchesToChunks(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Api-Key"); got != "pk-test" {
			t.Errorf("Api-Key header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"matches": [
				{"id": "doc-1:0", "score": 0.91, "metadata": {"title": "ledge play", "text": "hold shield", "source": "ledge.txt"}},
				{"id": "doc-2:3", "score": 0.55, "metadata": {"title": "neutral"}}
			]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "pk-test", "coach")
	chunks, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	want := domain.RetrievedChunk{ID: "doc-1:0", Title: "ledge play", Text: "hold shield", Source: "ledge.txt", Score: 0.91}
	if chunks[0] != want {
		t.Fatalf("chunks[0] = %+v, want %+v", chunks[0], want)
	}
	if chunks[1].Text != "" {
		t.Fatalf("missing metadata should map to empty text, got %q", chunks[1].Text)
	}

	if captured["topK"] != float64(5) {
		t.Fatalf("request topK = %v", captured["topK"])
	}
	if captured["includeMetadata"] != true {
		t.Fatalf("request includeMetadata = %v", captured["includeMetadata"])
	}
	if captured["namespace"] != "coach" {
		t.Fatalf("request namespace = %v", captured["namespace"])
	}
}

func TestIndexChunksUsesDeterministicIDs(t *testing.T) {
	var captured struct {
		Vectors []vectorRecord `json:"vectors"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vectors/upsert" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"upsertedCount": 2}`))
	}))
	defer server.Close()

	client := New(server.URL, "pk-test", "")
	doc := &domain.KnowledgeDocument{ID: "doc-1", Filename: "ledge.txt", Title: "ledge play"}
	err := client.IndexChunks(context.Background(), doc, []string{"a", "b"}, [][]float32{{0.1}, {0.2}})
	if err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	if len(captured.Vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(captured.Vectors))
	}
	if captured.Vectors[0].ID != "doc-1:0" || captured.Vectors[1].ID != "doc-1:1" {
		t.Fatalf("unexpected vector ids: %s, %s", captured.Vectors[0].ID, captured.Vectors[1].ID)
	}
	if captured.Vectors[0].Metadata["title"] != "ledge play" || captured.Vectors[0].Metadata["source"] != "ledge.txt" {
		t.Fatalf("unexpected metadata: %+v", captured.Vectors[0].Metadata)
	}
}

func TestIndexChunksCapsMetadataText(t *testing.T) {
	var captured struct {
		Vectors []vectorRecord `json:"vectors"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"upsertedCount": 1}`))
	}))
	defer server.Close()

	client := New(server.URL, "pk-test", "")
	doc := &domain.KnowledgeDocument{ID: "doc-1", Title: "t"}
	long := strings.Repeat("y", metadataTextLimit+500)
	if err := client.IndexChunks(context.Background(), doc, []string{long}, [][]float32{{0.1}}); err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	text, _ := captured.Vectors[0].Metadata["text"].(string)
	if len(text) != metadataTextLimit {
		t.Fatalf("metadata text length = %d, want %d", len(text), metadataTextLimit)
	}
}

func TestIndexChunksRejectsMismatchedVectors(t *testing.T) {
	client := New("http://unused", "pk-test", "")
	doc := &domain.KnowledgeDocument{ID: "doc-1"}
	err := client.IndexChunks(context.Background(), doc, []string{"a", "b"}, [][]float32{{0.1}})
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestSearchIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"index not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "pk-test", "")
	_, err := client.Search(context.Background(), []float32{0.1}, 5)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "index not found") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
