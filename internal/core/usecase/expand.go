package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// QueryExpansionUseCase turns a single question into a small set of
// complementary search queries so one phrasing mismatch cannot hide a
// relevant document.
type QueryExpansionUseCase struct {
	expander ports.QueryExpander
}

func NewQueryExpansionUseCase(expander ports.QueryExpander) *QueryExpansionUseCase {
	return &QueryExpansionUseCase{expander: expander}
}

// Expand returns the original question first, followed by up to max
// deduplicated expansions. Expansion is an optimization: on any failure the
// result is the original question alone.
func (uc *QueryExpansionUseCase) Expand(ctx context.Context, reflexModel, question string, max int) []string {
	if max <= 0 {
		max = 4
	}
	queries := []string{question}

	expansions, err := uc.expander.Expand(ctx, reflexModel, question, max)
	if err != nil {
		slog.Warn("query_expansion_failed", "error", err)
		return queries
	}

	seen := map[string]struct{}{queryKey(question): {}}
	for _, q := range expansions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := queryKey(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
		if len(queries) == max+1 {
			break
		}
	}
	return queries
}

func queryKey(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
