package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// ModelResolverUseCase discovers and scores the provider's generation models
// and live-verifies the winners, producing one low-latency reflex handle and
// one high-quality thinking handle. The result is cached process-wide until
// Invalidate is called.
type ModelResolverUseCase struct {
	catalog  ports.ModelCatalog
	prober   ports.ModelProber
	scoring  domain.ModelScoring
	limits   domain.ResolverLimits
	fallback domain.FrozenFallback

	mu       sync.Mutex
	resolved *domain.ModelPair
}

func NewModelResolverUseCase(
	catalog ports.ModelCatalog,
	prober ports.ModelProber,
	scoring domain.ModelScoring,
	limits domain.ResolverLimits,
	fallback domain.FrozenFallback,
) *ModelResolverUseCase {
	if scoring == (domain.ModelScoring{}) {
		scoring = domain.DefaultModelScoring()
	}
	if limits.ProbeTimeout <= 0 {
		limits.ProbeTimeout = 10 * time.Second
	}
	if limits.MaxProbes <= 0 {
		limits.MaxProbes = 4
	}
	return &ModelResolverUseCase{
		catalog:  catalog,
		prober:   prober,
		scoring:  scoring,
		limits:   limits,
		fallback: fallback,
	}
}

// Current returns the cached pair, resolving it first if needed. Concurrent
// first callers block on the single resolution pass rather than racing it.
func (uc *ModelResolverUseCase) Current(ctx context.Context) (domain.ModelPair, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.resolved != nil {
		return *uc.resolved, nil
	}

	pair, err := uc.resolveLocked(ctx)
	if err != nil {
		return domain.ModelPair{}, err
	}
	uc.resolved = &pair
	return pair, nil
}

// Invalidate discards the cached pair; the next Current re-resolves.
func (uc *ModelResolverUseCase) Invalidate() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.resolved = nil
}

func (uc *ModelResolverUseCase) resolveLocked(ctx context.Context) (domain.ModelPair, error) {
	descriptors, err := uc.catalog.ListModels(ctx)
	if err != nil {
		// An unreachable catalog is not fatal while frozen fallbacks exist.
		slog.Warn("model_catalog_unavailable", "error", err)
		descriptors = nil
	}

	thinkingID, thinkingLive := uc.probeFirst(ctx,
		RankCandidates(descriptors, uc.scoring.ThinkingTiers, uc.scoring))
	if thinkingID == "" {
		thinkingID = uc.fallback.Thinking
	}

	reflexID, reflexLive := uc.probeFirst(ctx,
		RankCandidates(descriptors, uc.scoring.ReflexTiers, uc.scoring))
	if reflexID == "" {
		reflexID = uc.fallback.Reflex
	}

	if thinkingID == "" || reflexID == "" {
		return domain.ModelPair{}, domain.WrapError(domain.ErrNoModel, "resolve models",
			errors.New("every probe failed and no frozen fallback is configured"))
	}

	if !thinkingLive {
		slog.Warn("model_frozen_fallback", "role", "thinking", "model", thinkingID)
	}
	if !reflexLive {
		slog.Warn("model_frozen_fallback", "role", "reflex", "model", reflexID)
	}
	slog.Info("models_resolved", "reflex", reflexID, "thinking", thinkingID)

	return domain.ModelPair{Reflex: reflexID, Thinking: thinkingID}, nil
}

// probeFirst walks the ranking in descending score order and returns the
// first identifier that answers a live probe. Any probe error (timeout,
// quota, deprecation) moves on to the next candidate; the walk is bounded by
// MaxProbes. An empty result means the frozen fallback must be used.
func (uc *ModelResolverUseCase) probeFirst(ctx context.Context, ranked []domain.ScoredCandidate) (string, bool) {
	probes := uc.limits.MaxProbes
	if probes > len(ranked) {
		probes = len(ranked)
	}

	for i := 0; i < probes; i++ {
		if ctx.Err() != nil {
			return "", false
		}
		candidate := ranked[i]

		probeCtx, cancel := context.WithTimeout(ctx, uc.limits.ProbeTimeout)
		err := uc.prober.Probe(probeCtx, candidate.Descriptor.ID)
		cancel()
		if err == nil {
			return candidate.Descriptor.ID, true
		}
		slog.Warn("model_probe_failed",
			"model", candidate.Descriptor.ID,
			"score", candidate.Score,
			"error", err,
		)
	}
	return "", false
}

// ScoreCandidate computes tier weight + version * version weight, plus the
// experimental bonus. The version weight dominates tier gaps so a newer
// major version outranks an older flagship.
func ScoreCandidate(d domain.ModelDescriptor, tiers domain.TierWeights, scoring domain.ModelScoring) float64 {
	score := tiers.For(d.Tier) + d.Version*scoring.VersionWeight
	if d.Experimental {
		score += scoring.ExperimentalBonus
	}
	return score
}

// RankCandidates orders descriptors by descending capability score, with the
// identifier as a deterministic tie-break.
func RankCandidates(descriptors []domain.ModelDescriptor, tiers domain.TierWeights, scoring domain.ModelScoring) []domain.ScoredCandidate {
	ranked := make([]domain.ScoredCandidate, 0, len(descriptors))
	for _, d := range descriptors {
		ranked = append(ranked, domain.ScoredCandidate{
			Descriptor: d,
			Score:      ScoreCandidate(d, tiers, scoring),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Descriptor.ID < ranked[j].Descriptor.ID
	})
	return ranked
}
