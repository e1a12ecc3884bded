package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// IntentRouterUseCase decides which answering route a question takes.
// Classification is advisory: any failure falls back to the semantic route,
// which can answer every question even if less precisely.
type IntentRouterUseCase struct {
	classifier ports.IntentClassifier
}

func NewIntentRouterUseCase(classifier ports.IntentClassifier) *IntentRouterUseCase {
	return &IntentRouterUseCase{classifier: classifier}
}

func (uc *IntentRouterUseCase) Classify(ctx context.Context, reflexModel, question string) domain.QuestionAnalysis {
	analysis, err := uc.classifier.Classify(ctx, reflexModel, question)
	if err != nil {
		slog.Warn("intent_classification_failed", "error", err)
		return domain.QuestionAnalysis{Intent: domain.IntentTheory}
	}
	return normalizeAnalysis(analysis)
}

func normalizeAnalysis(a domain.QuestionAnalysis) domain.QuestionAnalysis {
	a.Character = strings.TrimSpace(a.Character)
	a.Move = strings.TrimSpace(a.Move)
	switch a.Intent {
	case domain.IntentFrameData, domain.IntentTheory:
	default:
		a.Intent = domain.IntentTheory
	}
	return a
}
