package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) SummarizeHistory(_ context.Context, _, _, _ string) (string, error) {
	return f.summary, f.err
}

func TestCompressReturnsSummary(t *testing.T) {
	uc := NewHistoryCompressionUseCase(&fakeSummarizer{summary: "  player struggles with ledge traps  "})

	got := uc.Compress(context.Background(), "reflex-model", "long history...", "next question", 1000)
	if got != "player struggles with ledge traps" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestCompressTruncatesOnSummarizerError(t *testing.T) {
	history := strings.Repeat("turn ", 400) // 2000 chars
	uc := NewHistoryCompressionUseCase(&fakeSummarizer{err: errors.New("model busy")})

	got := uc.Compress(context.Background(), "reflex-model", history, "question", 1000)
	if len([]rune(got)) != 1000 {
		t.Fatalf("expected truncation to 1000 runes, got %d", len([]rune(got)))
	}
	if !strings.HasPrefix(history, got) {
		t.Fatal("truncation must be a prefix of the raw history")
	}
}

func TestCompressTruncatesOnEmptySummary(t *testing.T) {
	uc := NewHistoryCompressionUseCase(&fakeSummarizer{summary: "   "})

	got := uc.Compress(context.Background(), "reflex-model", "short history", "question", 1000)
	if got != "short history" {
		t.Fatalf("empty summary should fall back to the raw history, got %q", got)
	}
}

func TestCompressEmptyHistoryShortCircuits(t *testing.T) {
	uc := NewHistoryCompressionUseCase(&fakeSummarizer{summary: "should never be used"})

	if got := uc.Compress(context.Background(), "reflex-model", "   ", "question", 1000); got != "" {
		t.Fatalf("blank history must compress to empty, got %q", got)
	}
}

func TestTruncateRunesRespectsMultibyte(t *testing.T) {
	s := strings.Repeat("あ", 10)
	got := truncateRunes(s, 4)
	if got != strings.Repeat("あ", 4) {
		t.Fatalf("rune truncation broke a multibyte sequence: %q", got)
	}
}
