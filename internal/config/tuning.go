package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

// Tuning holds the retrieval and model-resolution knobs that change between
// deployments more often than code does. Zero values are backfilled by the
// use cases, so an absent file, an empty file, and unset fields all behave
// the same.
type Tuning struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	PerQueryK           int     `yaml:"per_query_k"`
	RerankTopN          int     `yaml:"rerank_top_n"`
	MaxExpansions       int     `yaml:"max_expansions"`
	SearchConcurrency   int     `yaml:"search_concurrency"`
	HistoryCharBudget   int     `yaml:"history_char_budget"`

	ClassifyTimeoutSeconds  int `yaml:"classify_timeout_seconds"`
	ExpandTimeoutSeconds    int `yaml:"expand_timeout_seconds"`
	RetrieveTimeoutSeconds  int `yaml:"retrieve_timeout_seconds"`
	RerankTimeoutSeconds    int `yaml:"rerank_timeout_seconds"`
	SynthesisTimeoutSeconds int `yaml:"synthesis_timeout_seconds"`
	SummaryTimeoutSeconds   int `yaml:"summary_timeout_seconds"`

	Resolver ResolverTuning `yaml:"resolver"`
	Scoring  ScoringTuning  `yaml:"scoring"`
	Fallback FallbackTuning `yaml:"fallback"`
}

type ResolverTuning struct {
	MaxProbes           int `yaml:"max_probes"`
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds"`
}

type ScoringTuning struct {
	VersionWeight     float64    `yaml:"version_weight"`
	ExperimentalBonus float64    `yaml:"experimental_bonus"`
	ThinkingTiers     TierTuning `yaml:"thinking_tiers"`
	ReflexTiers       TierTuning `yaml:"reflex_tiers"`
}

type TierTuning struct {
	Flagship float64 `yaml:"flagship"`
	Mid      float64 `yaml:"mid"`
	Economy  float64 `yaml:"economy"`
}

type FallbackTuning struct {
	Reflex   string `yaml:"reflex"`
	Thinking string `yaml:"thinking"`
}

// DefaultTuning pins only the frozen fallback models. Those are the one knob
// nothing downstream can invent: when every probe fails the resolver answers
// with exactly these identifiers.
func DefaultTuning() Tuning {
	return Tuning{
		Fallback: FallbackTuning{
			Reflex:   "gemini-1.5-flash",
			Thinking: "gemini-1.5-pro",
		},
	}
}

// LoadTuning layers three sources: built-in defaults, then the optional YAML
// file at path, then environment variables. Environment values win.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Tuning{}, fmt.Errorf("read tuning file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return Tuning{}, fmt.Errorf("parse tuning file: %w", err)
		}
	}
	t.applyEnv()
	return t, nil
}

func (t *Tuning) applyEnv() {
	envFloat("SIMILARITY_THRESHOLD", &t.SimilarityThreshold)
	envInt("PER_QUERY_K", &t.PerQueryK)
	envInt("RERANK_TOP_N", &t.RerankTopN)
	envInt("MAX_EXPANSIONS", &t.MaxExpansions)
	envInt("SEARCH_CONCURRENCY", &t.SearchConcurrency)
	envInt("HISTORY_CHAR_BUDGET", &t.HistoryCharBudget)
	envInt("RESOLVER_MAX_PROBES", &t.Resolver.MaxProbes)
	envInt("RESOLVER_PROBE_TIMEOUT_SECONDS", &t.Resolver.ProbeTimeoutSeconds)
	envString("FALLBACK_REFLEX_MODEL", &t.Fallback.Reflex)
	envString("FALLBACK_THINKING_MODEL", &t.Fallback.Thinking)
}

func (t Tuning) AskLimits() domain.AskLimits {
	return domain.AskLimits{
		ClassifyTimeout:  seconds(t.ClassifyTimeoutSeconds),
		ExpandTimeout:    seconds(t.ExpandTimeoutSeconds),
		RetrieveTimeout:  seconds(t.RetrieveTimeoutSeconds),
		RerankTimeout:    seconds(t.RerankTimeoutSeconds),
		SynthesisTimeout: seconds(t.SynthesisTimeoutSeconds),
		SummaryTimeout:   seconds(t.SummaryTimeoutSeconds),

		MaxExpansions:       t.MaxExpansions,
		PerQueryK:           t.PerQueryK,
		RerankTopN:          t.RerankTopN,
		SearchConcurrency:   t.SearchConcurrency,
		SimilarityThreshold: t.SimilarityThreshold,
		HistoryCharBudget:   t.HistoryCharBudget,
	}
}

func (t Tuning) ResolverLimits() domain.ResolverLimits {
	return domain.ResolverLimits{
		ProbeTimeout: seconds(t.Resolver.ProbeTimeoutSeconds),
		MaxProbes:    t.Resolver.MaxProbes,
	}
}

func (t Tuning) ModelScoring() domain.ModelScoring {
	return domain.ModelScoring{
		VersionWeight:     t.Scoring.VersionWeight,
		ExperimentalBonus: t.Scoring.ExperimentalBonus,
		ThinkingTiers: domain.TierWeights{
			Flagship: t.Scoring.ThinkingTiers.Flagship,
			Mid:      t.Scoring.ThinkingTiers.Mid,
			Economy:  t.Scoring.ThinkingTiers.Economy,
		},
		ReflexTiers: domain.TierWeights{
			Flagship: t.Scoring.ReflexTiers.Flagship,
			Mid:      t.Scoring.ReflexTiers.Mid,
			Economy:  t.Scoring.ReflexTiers.Economy,
		},
	}
}

func (t Tuning) FrozenFallback() domain.FrozenFallback {
	return domain.FrozenFallback{
		Reflex:   t.Fallback.Reflex,
		Thinking: t.Fallback.Thinking,
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return
	}
	*dst = f
}

func envString(key string, dst *string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	*dst = v
}
