package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadIncludesSafeDefaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("GEMINI_EMBED_MODEL", "")
	t.Setenv("GEMINI_RETRY_ATTEMPTS", "")
	t.Setenv("GEMINI_BACKOFF_SECONDS", "")
	t.Setenv("API_RATE_RPS", "")
	t.Setenv("CHUNK_SIZE", "")

	cfg := Load()
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %q", cfg.APIPort)
	}
	if cfg.GeminiEmbedModel != "text-embedding-004" {
		t.Fatalf("expected default embed model text-embedding-004, got %q", cfg.GeminiEmbedModel)
	}
	if cfg.GeminiRetryAttempts != 2 {
		t.Fatalf("expected default retry attempts 2, got %d", cfg.GeminiRetryAttempts)
	}
	if cfg.GeminiBackoffSeconds != 60 {
		t.Fatalf("expected default backoff 60s, got %d", cfg.GeminiBackoffSeconds)
	}
	if cfg.APIRateRPS != 5 {
		t.Fatalf("expected default api rate 5 rps, got %v", cfg.APIRateRPS)
	}
	if cfg.ChunkSize != 900 {
		t.Fatalf("expected default chunk size 900, got %d", cfg.ChunkSize)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("GEMINI_RETRY_ATTEMPTS", "5")
	t.Setenv("API_RATE_RPS", "2.5")
	t.Setenv("PINECONE_NAMESPACE", "coach-prod")

	cfg := Load()
	if cfg.APIPort != "9999" {
		t.Fatalf("expected api port override, got %q", cfg.APIPort)
	}
	if cfg.GeminiRetryAttempts != 5 {
		t.Fatalf("expected retry attempts 5, got %d", cfg.GeminiRetryAttempts)
	}
	if cfg.APIRateRPS != 2.5 {
		t.Fatalf("expected api rate 2.5, got %v", cfg.APIRateRPS)
	}
	if cfg.PineconeNamespace != "coach-prod" {
		t.Fatalf("expected namespace coach-prod, got %q", cfg.PineconeNamespace)
	}
}

func TestLoadFallsBackOnUnparsableValues(t *testing.T) {
	t.Setenv("GEMINI_RETRY_ATTEMPTS", "plenty")
	t.Setenv("API_RATE_RPS", "fast")

	cfg := Load()
	if cfg.GeminiRetryAttempts != 2 {
		t.Fatalf("expected fallback retry attempts 2, got %d", cfg.GeminiRetryAttempts)
	}
	if cfg.APIRateRPS != 5 {
		t.Fatalf("expected fallback api rate 5, got %v", cfg.APIRateRPS)
	}
}

func clearTuningEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SIMILARITY_THRESHOLD", "PER_QUERY_K", "RERANK_TOP_N", "MAX_EXPANSIONS",
		"SEARCH_CONCURRENCY", "HISTORY_CHAR_BUDGET", "RESOLVER_MAX_PROBES",
		"RESOLVER_PROBE_TIMEOUT_SECONDS", "FALLBACK_REFLEX_MODEL", "FALLBACK_THINKING_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadTuningWithoutFileKeepsFrozenFallback(t *testing.T) {
	clearTuningEnv(t)

	tuning, err := LoadTuning("")
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	if tuning.Fallback.Reflex != "gemini-1.5-flash" || tuning.Fallback.Thinking != "gemini-1.5-pro" {
		t.Fatalf("unexpected frozen fallback: %+v", tuning.Fallback)
	}
	if tuning.PerQueryK != 0 || tuning.SimilarityThreshold != 0 {
		t.Fatalf("expected zero retrieval knobs without a file, got %+v", tuning)
	}
}

func TestLoadTuningReadsFileAndEnvWins(t *testing.T) {
	clearTuningEnv(t)
	t.Setenv("PER_QUERY_K", "9")

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := []byte(`
similarity_threshold: 0.42
per_query_k: 7
max_expansions: 3
resolver:
  max_probes: 6
  probe_timeout_seconds: 8
fallback:
  reflex: gemini-2.0-flash
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}

	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	if tuning.SimilarityThreshold != 0.42 {
		t.Fatalf("expected threshold from file, got %v", tuning.SimilarityThreshold)
	}
	if tuning.PerQueryK != 9 {
		t.Fatalf("expected env to win over file, got per_query_k %d", tuning.PerQueryK)
	}
	if tuning.MaxExpansions != 3 {
		t.Fatalf("expected max expansions from file, got %d", tuning.MaxExpansions)
	}
	if tuning.Resolver.MaxProbes != 6 {
		t.Fatalf("expected resolver probes from file, got %d", tuning.Resolver.MaxProbes)
	}
	if tuning.Fallback.Reflex != "gemini-2.0-flash" {
		t.Fatalf("expected reflex fallback override, got %q", tuning.Fallback.Reflex)
	}
	if tuning.Fallback.Thinking != "gemini-1.5-pro" {
		t.Fatalf("expected thinking fallback to keep default, got %q", tuning.Fallback.Thinking)
	}
}

func TestLoadTuningRejectsMalformedFile(t *testing.T) {
	clearTuningEnv(t)

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("per_query_k: [not an int"), 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}

	if _, err := LoadTuning(path); err == nil {
		t.Fatal("expected error for malformed tuning file")
	}
}

func TestTuningMapsToDomainTypes(t *testing.T) {
	tuning := Tuning{
		SimilarityThreshold:    0.35,
		PerQueryK:              5,
		RerankTopN:             8,
		ClassifyTimeoutSeconds: 10,
		Resolver:               ResolverTuning{MaxProbes: 4, ProbeTimeoutSeconds: 12},
		Fallback:               FallbackTuning{Reflex: "r", Thinking: "t"},
	}

	limits := tuning.AskLimits()
	if limits.ClassifyTimeout != 10*time.Second {
		t.Fatalf("expected 10s classify timeout, got %v", limits.ClassifyTimeout)
	}
	if limits.SynthesisTimeout != 0 {
		t.Fatalf("expected unset synthesis timeout to stay zero, got %v", limits.SynthesisTimeout)
	}
	if limits.PerQueryK != 5 || limits.RerankTopN != 8 || limits.SimilarityThreshold != 0.35 {
		t.Fatalf("unexpected retrieval limits: %+v", limits)
	}

	resolver := tuning.ResolverLimits()
	if resolver.MaxProbes != 4 || resolver.ProbeTimeout != 12*time.Second {
		t.Fatalf("unexpected resolver limits: %+v", resolver)
	}

	fallback := tuning.FrozenFallback()
	if fallback.Reflex != "r" || fallback.Thinking != "t" {
		t.Fatalf("unexpected fallback: %+v", fallback)
	}
}
