package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/resilience"
)

// Client wraps the Gemini API client with the shared retry/breaker executor
// and a client-side QPS guard. The generation model is chosen per call by the
// resolver, so the client itself carries no model state beyond the fixed
// embedding model.
type Client struct {
	api        *genai.Client
	embedModel string
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

func New(ctx context.Context, apiKey, embedModel string, executor *resilience.Executor, limiter *rate.Limiter) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		api:        api,
		embedModel: embedModel,
		executor:   executor,
		limiter:    limiter,
	}, nil
}

// wait paces outgoing requests, retries included. A nil limiter disables the
// guard.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) generateText(ctx context.Context, operation, modelID, prompt string, temperature float32) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: ptr(temperature)}
	return c.generate(ctx, operation, modelID, prompt, cfg)
}

func (c *Client) generateJSON(ctx context.Context, operation, modelID, prompt string, temperature float32) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      ptr(temperature),
		ResponseMIMEType: "application/json",
	}
	return c.generate(ctx, operation, modelID, prompt, cfg)
}

func (c *Client) generate(ctx context.Context, operation, modelID, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	var out string
	err := c.executor.Execute(ctx, operation, func(ctx context.Context) error {
		if err := c.wait(ctx); err != nil {
			return fmt.Errorf("gemini %s: %w", operation, err)
		}
		resp, err := c.api.Models.GenerateContent(ctx, modelID, genai.Text(prompt), cfg)
		if err != nil {
			return fmt.Errorf("gemini %s: %w", operation, err)
		}
		text := responseText(resp)
		if text == "" {
			return fmt.Errorf("gemini %s: empty completion", operation)
		}
		out = text
		return nil
	}, classifyGeminiError)
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	return out, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func ptr[T any](v T) *T { return &v }
