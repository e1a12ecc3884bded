package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

// metadataTextLimit caps the chunk text stored alongside each vector; the
// index carries retrieval context, not the document archive.
const metadataTextLimit = 2000

// upsertBatchSize keeps single upsert requests under the service's payload
// limit.
const upsertBatchSize = 100

// Client talks to one Pinecone index over its data-plane HTTP API. The index
// itself is provisioned out of band; the client only reads and writes vectors.
type Client struct {
	host       string
	apiKey     string
	namespace  string
	httpClient *http.Client
}

func New(host, apiKey, namespace string) *Client {
	return &Client{
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		namespace:  namespace,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type vectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata"`
}

func (c *Client) IndexChunks(ctx context.Context, doc *domain.KnowledgeDocument, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	records := make([]vectorRecord, 0, len(chunks))
	for i := range chunks {
		text := chunks[i]
		if len(text) > metadataTextLimit {
			cut := metadataTextLimit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		records = append(records, vectorRecord{
			// Deterministic ids: re-ingesting a document overwrites its
			// previous vectors instead of duplicating them.
			ID:     fmt.Sprintf("%s:%d", doc.ID, i),
			Values: vectors[i],
			Metadata: map[string]any{
				"title":  doc.Title,
				"text":   text,
				"source": doc.Filename,
			},
		})
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := c.upsertBatch(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) upsertBatch(ctx context.Context, records []vectorRecord) error {
	reqBody := map[string]any{"vectors": records}
	if c.namespace != "" {
		reqBody["namespace"] = c.namespace
	}

	resp, err := c.postJSON(ctx, "/vectors/upsert", reqBody, "upsert")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return httpStatusError("upsert", resp)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error) {
	reqBody := map[string]any{
		"vector":          queryVector,
		"topK":            limit,
		"includeMetadata": true,
	}
	if c.namespace != "" {
		reqBody["namespace"] = c.namespace
	}

	resp, err := c.postJSON(ctx, "/query", reqBody, "query")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, httpStatusError("query", resp)
	}

	var queryResp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(queryResp.Matches))
	for _, m := range queryResp.Matches {
		out = append(out, domain.RetrievedChunk{
			ID:     m.ID,
			Title:  getStringMetadata(m.Metadata, "title"),
			Text:   getStringMetadata(m.Metadata, "text"),
			Source: getStringMetadata(m.Metadata, "source"),
			Score:  m.Score,
		})
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, operation string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinecone %s request: %w", operation, err)
	}
	return resp, nil
}

func httpStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("pinecone %s status: %s: %s", operation, resp.Status, msg)
	}
	return fmt.Errorf("pinecone %s status: %s", operation, resp.Status)
}

func getStringMetadata(metadata map[string]any, key string) string {
	v, ok := metadata[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
