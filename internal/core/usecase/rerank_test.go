package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

type fakeJudge struct {
	judgments map[string]int
	errs      map[string]error
}

func (f *fakeJudge) Judge(_ context.Context, _, _ string, c domain.RetrievedChunk) (int, error) {
	if err, ok := f.errs[c.ID]; ok {
		return 0, err
	}
	if j, ok := f.judgments[c.ID]; ok {
		return j, nil
	}
	return neutralJudgment, nil
}

func TestRerankOrdersByJudgmentThenSimilarity(t *testing.T) {
	judge := &fakeJudge{judgments: map[string]int{"a": 3, "b": 9, "c": 9}}
	uc := NewRelevanceRerankUseCase(judge)

	candidates := []domain.RetrievedChunk{
		chunk("a", 0.95),
		chunk("b", 0.40),
		chunk("c", 0.70),
	}
	ranked := uc.Rerank(context.Background(), "reflex-model", "question", candidates, 0, 2)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked chunks, got %d", len(ranked))
	}
	// b and c tie on judgment 9; c wins on similarity. a sinks despite the
	// highest vector score.
	if ranked[0].ID != "c" || ranked[1].ID != "b" || ranked[2].ID != "a" {
		t.Fatalf("unexpected order: %s, %s, %s", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}
}

func TestRerankAssignsNeutralOnJudgmentFailure(t *testing.T) {
	judge := &fakeJudge{
		judgments: map[string]int{"a": 2, "c": 8},
		errs:      map[string]error{"b": errors.New("unparseable reply")},
	}
	uc := NewRelevanceRerankUseCase(judge)

	candidates := []domain.RetrievedChunk{chunk("a", 0.9), chunk("b", 0.8), chunk("c", 0.7)}
	ranked := uc.Rerank(context.Background(), "reflex-model", "question", candidates, 0, 3)

	if ranked[0].ID != "c" {
		t.Fatalf("expected c first, got %s", ranked[0].ID)
	}
	if ranked[1].ID != "b" || ranked[1].Judgment != neutralJudgment {
		t.Fatalf("failed judgment should hold neutral %d, got %+v", neutralJudgment, ranked[1])
	}
	if ranked[2].ID != "a" {
		t.Fatalf("expected a last, got %s", ranked[2].ID)
	}
}

func TestRerankClampsOutOfRangeJudgments(t *testing.T) {
	judge := &fakeJudge{judgments: map[string]int{"a": 42, "b": -3}}
	uc := NewRelevanceRerankUseCase(judge)

	ranked := uc.Rerank(context.Background(), "reflex-model", "question",
		[]domain.RetrievedChunk{chunk("a", 0.5), chunk("b", 0.5)}, 0, 2)

	if ranked[0].Judgment != 10 {
		t.Fatalf("judgment above range must clamp to 10, got %d", ranked[0].Judgment)
	}
	if ranked[1].Judgment != 1 {
		t.Fatalf("judgment below range must clamp to 1, got %d", ranked[1].Judgment)
	}
}

func TestRerankTruncatesToTopN(t *testing.T) {
	judge := &fakeJudge{judgments: map[string]int{"a": 9, "b": 7, "c": 5, "d": 3}}
	uc := NewRelevanceRerankUseCase(judge)

	candidates := []domain.RetrievedChunk{
		chunk("a", 0.9), chunk("b", 0.8), chunk("c", 0.7), chunk("d", 0.6),
	}
	ranked := uc.Rerank(context.Background(), "reflex-model", "question", candidates, 2, 4)

	if len(ranked) != 2 {
		t.Fatalf("expected topN=2 chunks, got %d", len(ranked))
	}
	if ranked[0].ID != "a" || ranked[1].ID != "b" {
		t.Fatalf("unexpected top-2: %s, %s", ranked[0].ID, ranked[1].ID)
	}
}

func TestRerankNilJudgeFallsBackToSimilarity(t *testing.T) {
	uc := NewRelevanceRerankUseCase(nil)

	candidates := []domain.RetrievedChunk{chunk("low", 0.2), chunk("high", 0.9), chunk("mid", 0.5)}
	ranked := uc.Rerank(context.Background(), "reflex-model", "question", candidates, 0, 2)

	if ranked[0].ID != "high" || ranked[1].ID != "mid" || ranked[2].ID != "low" {
		t.Fatalf("similarity fallback order wrong: %s, %s, %s", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}
}

func TestRerankEmptyInput(t *testing.T) {
	uc := NewRelevanceRerankUseCase(&fakeJudge{})
	if got := uc.Rerank(context.Background(), "reflex-model", "question", nil, 10, 4); got != nil {
		t.Fatalf("expected nil for empty candidates, got %v", got)
	}
}
