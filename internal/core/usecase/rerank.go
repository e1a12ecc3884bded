package usecase

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// neutralJudgment is assigned when a single relevance call fails, keeping the
// chunk in play on its vector score alone.
const neutralJudgment = 5

// RelevanceRerankUseCase re-orders merged candidates with a per-chunk
// relevance judgment from the reflex model. The pass refines ordering only;
// it never shrinks the pool below what similarity search produced.
type RelevanceRerankUseCase struct {
	judge ports.RelevanceJudge
}

// NewRelevanceRerankUseCase accepts a nil judge, which disables the judgment
// pass and falls back to pure similarity ordering.
func NewRelevanceRerankUseCase(judge ports.RelevanceJudge) *RelevanceRerankUseCase {
	return &RelevanceRerankUseCase{judge: judge}
}

func (uc *RelevanceRerankUseCase) Rerank(ctx context.Context, reflexModel, question string, candidates []domain.RetrievedChunk, topN, concurrency int) []domain.RankedChunk {
	if len(candidates) == 0 {
		return nil
	}
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	ranked := make([]domain.RankedChunk, len(candidates))
	if uc.judge == nil {
		for i, c := range candidates {
			ranked[i] = domain.RankedChunk{RetrievedChunk: c, Judgment: neutralJudgment}
		}
		SortRanked(ranked)
		return ranked[:topN]
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range candidates {
		i, chunk := i, c
		g.Go(func() error {
			judgment, err := uc.judge.Judge(groupCtx, reflexModel, question, chunk)
			if err != nil {
				slog.Warn("relevance_judgment_failed", "id", chunk.ID, "error", err)
				judgment = neutralJudgment
			}
			ranked[i] = domain.RankedChunk{RetrievedChunk: chunk, Judgment: clampJudgment(judgment)}
			return nil
		})
	}
	_ = g.Wait()

	SortRanked(ranked)
	return ranked[:topN]
}

func clampJudgment(j int) int {
	if j < 1 {
		return 1
	}
	if j > 10 {
		return 10
	}
	return j
}

// SortRanked orders by judgment descending, similarity descending, then
// identifier ascending so equal inputs always produce the same order.
func SortRanked(ranked []domain.RankedChunk) {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Judgment != ranked[j].Judgment {
			return ranked[i].Judgment > ranked[j].Judgment
		}
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
}
