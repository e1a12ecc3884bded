package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// HistoryCompressionUseCase compresses prior conversation turns down to the
// part relevant to the current question, so long sessions do not crowd the
// synthesis prompt.
type HistoryCompressionUseCase struct {
	summarizer ports.HistorySummarizer
}

func NewHistoryCompressionUseCase(summarizer ports.HistorySummarizer) *HistoryCompressionUseCase {
	return &HistoryCompressionUseCase{summarizer: summarizer}
}

// Compress never fails hard: when the summarizer errors or returns nothing,
// the raw history is truncated to charBudget characters instead. Degraded
// context beats no context.
func (uc *HistoryCompressionUseCase) Compress(ctx context.Context, reflexModel, history, question string, charBudget int) string {
	history = strings.TrimSpace(history)
	if history == "" {
		return ""
	}
	if charBudget <= 0 {
		charBudget = 1000
	}

	summary, err := uc.summarizer.SummarizeHistory(ctx, reflexModel, history, question)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			slog.Warn("history_summary_failed", "error", err)
		}
		return truncateRunes(history, charBudget)
	}
	return strings.TrimSpace(summary)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
