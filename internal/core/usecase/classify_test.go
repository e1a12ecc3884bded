package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
)

type fakeClassifier struct {
	analysis domain.QuestionAnalysis
	err      error
}

func (f *fakeClassifier) Classify(_ context.Context, _, _ string) (domain.QuestionAnalysis, error) {
	return f.analysis, f.err
}

func TestClassifyPassesThroughAnalysis(t *testing.T) {
	uc := NewIntentRouterUseCase(&fakeClassifier{analysis: domain.QuestionAnalysis{
		Intent:    domain.IntentFrameData,
		Character: " Mario ",
		Move:      "forward air",
	}})

	got := uc.Classify(context.Background(), "reflex-model", "how fast is mario's fair?")
	if got.Intent != domain.IntentFrameData {
		t.Fatalf("unexpected intent %q", got.Intent)
	}
	if got.Character != "Mario" {
		t.Fatalf("character should be trimmed, got %q", got.Character)
	}
	if !got.RequiresFactLookup() {
		t.Fatal("frame_data with a character should require fact lookup")
	}
}

func TestClassifyDefaultsToTheoryOnError(t *testing.T) {
	uc := NewIntentRouterUseCase(&fakeClassifier{err: errors.New("malformed JSON")})

	got := uc.Classify(context.Background(), "reflex-model", "how do I stop panicking?")
	if got.Intent != domain.IntentTheory {
		t.Fatalf("classification failure must route to theory, got %q", got.Intent)
	}
	if got.RequiresFactLookup() {
		t.Fatal("theory route must not trigger fact lookup")
	}
}

func TestClassifyNormalizesUnknownIntent(t *testing.T) {
	uc := NewIntentRouterUseCase(&fakeClassifier{analysis: domain.QuestionAnalysis{Intent: "gibberish"}})

	got := uc.Classify(context.Background(), "reflex-model", "anything")
	if got.Intent != domain.IntentTheory {
		t.Fatalf("unknown intents must normalize to theory, got %q", got.Intent)
	}
}

func TestFactLookupNeedsCharacter(t *testing.T) {
	a := domain.QuestionAnalysis{Intent: domain.IntentFrameData}
	if a.RequiresFactLookup() {
		t.Fatal("frame_data without a character hint must fall through to retrieval")
	}
}
