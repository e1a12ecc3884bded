package gemini

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

// Catalog lists generation-capable model descriptors and live-probes
// individual models. It backs the resolver's discovery pass.
type Catalog struct {
	client *Client
}

func NewCatalog(client *Client) *Catalog {
	return &Catalog{client: client}
}

func (c *Catalog) ListModels(ctx context.Context) ([]domain.ModelDescriptor, error) {
	var descriptors []domain.ModelDescriptor
	err := c.client.executor.Execute(ctx, "gemini.list_models", func(ctx context.Context) error {
		if err := c.client.wait(ctx); err != nil {
			return fmt.Errorf("list models: %w", err)
		}
		descriptors = descriptors[:0]
		for model, err := range c.client.api.Models.All(ctx) {
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			d, ok := DescriptorFromModel(model)
			if !ok {
				continue
			}
			descriptors = append(descriptors, d)
		}
		return nil
	}, classifyGeminiError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("gemini.list_models", err)
	}
	return descriptors, nil
}

// Probe issues a minimal single-token generation against one model. Probes
// bypass the retry executor: the caller is walking a ranking and a dead
// candidate should fail fast, not be nursed back.
func (c *Catalog) Probe(ctx context.Context, modelID string) error {
	if err := c.client.wait(ctx); err != nil {
		return fmt.Errorf("probe %s: %w", modelID, err)
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     ptr(float32(0)),
		MaxOutputTokens: 1,
	}
	if _, err := c.client.api.Models.GenerateContent(ctx, modelID, genai.Text("ping"), cfg); err != nil {
		return fmt.Errorf("probe %s: %w", modelID, err)
	}
	return nil
}

// exclusions drops catalog entries that can never serve text generation for
// coaching: vision/embedding/media models and non-Gemini families.
var exclusions = []string{
	"vision",
	"embedding",
	"imagen",
	"veo",
	"tts",
	"audio",
	"live",
	"aqa",
}

var versionPattern = regexp.MustCompile(`(\d+\.\d+)`)

// DescriptorFromModel derives a scored-candidate descriptor from a raw
// catalog entry. The second return is false when the model is excluded.
func DescriptorFromModel(m *genai.Model) (domain.ModelDescriptor, bool) {
	if m == nil {
		return domain.ModelDescriptor{}, false
	}
	id := strings.TrimPrefix(m.Name, "models/")
	lower := strings.ToLower(id)

	if !strings.Contains(lower, "gemini") {
		return domain.ModelDescriptor{}, false
	}
	for _, word := range exclusions {
		if strings.Contains(lower, word) {
			return domain.ModelDescriptor{}, false
		}
	}
	if strings.Contains(strings.ToLower(m.Description), "deprecated") {
		return domain.ModelDescriptor{}, false
	}
	if !supportsGeneration(m.SupportedActions) {
		return domain.ModelDescriptor{}, false
	}

	return domain.ModelDescriptor{
		ID:           id,
		Version:      parseVersion(lower),
		Tier:         tierFromName(lower),
		Experimental: strings.Contains(lower, "exp"),
	}, true
}

// supportsGeneration accepts entries with no declared actions: some catalog
// rows omit the list, and the live probe is the real gate anyway.
func supportsGeneration(actions []string) bool {
	if len(actions) == 0 {
		return true
	}
	for _, a := range actions {
		if a == "generateContent" {
			return true
		}
	}
	return false
}

func parseVersion(name string) float64 {
	match := versionPattern.FindString(name)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

// tierFromName maps the provider's grade words onto scoring tiers. Unknown
// grades get no tier weight at all, matching how an unrecognized family
// should not outrank a known one on grade alone.
func tierFromName(name string) domain.ModelTier {
	switch {
	case strings.Contains(name, "ultra"):
		return domain.TierFlagship
	case strings.Contains(name, "pro"):
		return domain.TierMid
	case strings.Contains(name, "flash"):
		return domain.TierEconomy
	default:
		return ""
	}
}
