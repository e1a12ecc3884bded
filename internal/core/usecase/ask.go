package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
)

// PhaseObserver receives the elapsed wall time of each completed pipeline
// phase. Hooked up to metrics by the binaries; nil disables observation.
type PhaseObserver func(phase string, elapsed time.Duration)

// AskUseCase runs the full coaching pipeline: resolve models, compress
// history, classify intent, then answer either from the exact lookup table or
// from multi-query semantic retrieval.
type AskUseCase struct {
	models      ports.ModelDirectory
	router      *IntentRouterUseCase
	expansion   *QueryExpansionUseCase
	retriever   *MultiQueryRetriever
	reranker    *RelevanceRerankUseCase
	synthesizer *AnswerSynthesisUseCase
	history     *HistoryCompressionUseCase
	frameData   ports.FrameDataStore
	limits      domain.AskLimits
	observe     PhaseObserver
}

func NewAskUseCase(
	models ports.ModelDirectory,
	router *IntentRouterUseCase,
	expansion *QueryExpansionUseCase,
	retriever *MultiQueryRetriever,
	reranker *RelevanceRerankUseCase,
	synthesizer *AnswerSynthesisUseCase,
	history *HistoryCompressionUseCase,
	frameData ports.FrameDataStore,
	limits domain.AskLimits,
) *AskUseCase {
	return &AskUseCase{
		models:      models,
		router:      router,
		expansion:   expansion,
		retriever:   retriever,
		reranker:    reranker,
		synthesizer: synthesizer,
		history:     history,
		frameData:   frameData,
		limits:      normalizeAskLimits(limits),
	}
}

// SetPhaseObserver installs an optional per-phase latency hook.
func (uc *AskUseCase) SetPhaseObserver(fn PhaseObserver) {
	uc.observe = fn
}

func (uc *AskUseCase) observePhase(phase string, start time.Time) {
	if uc.observe != nil {
		uc.observe(phase, time.Since(start))
	}
}

func normalizeAskLimits(l domain.AskLimits) domain.AskLimits {
	if l.ClassifyTimeout <= 0 {
		l.ClassifyTimeout = 15 * time.Second
	}
	if l.ExpandTimeout <= 0 {
		l.ExpandTimeout = 15 * time.Second
	}
	if l.RetrieveTimeout <= 0 {
		l.RetrieveTimeout = 30 * time.Second
	}
	if l.RerankTimeout <= 0 {
		l.RerankTimeout = 45 * time.Second
	}
	if l.SynthesisTimeout <= 0 {
		l.SynthesisTimeout = 120 * time.Second
	}
	if l.SummaryTimeout <= 0 {
		l.SummaryTimeout = 15 * time.Second
	}
	if l.MaxExpansions <= 0 {
		l.MaxExpansions = 4
	}
	if l.PerQueryK <= 0 {
		l.PerQueryK = 15
	}
	if l.RerankTopN <= 0 {
		l.RerankTopN = 10
	}
	if l.SearchConcurrency <= 0 {
		l.SearchConcurrency = 4
	}
	if l.SimilarityThreshold <= 0 {
		l.SimilarityThreshold = 0.35
	}
	if l.HistoryCharBudget <= 0 {
		l.HistoryCharBudget = 1000
	}
	return l
}

// Ask answers one question. Mid-pipeline degradations (classification,
// expansion, retrieval, judgments) never surface as errors; only model
// resolution and final synthesis can fail the request.
func (uc *AskUseCase) Ask(ctx context.Context, req domain.AskRequest) (*domain.CoachingAnswer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}

	pair, err := uc.models.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve models: %w", err)
	}

	historyExcerpt := ""
	if strings.TrimSpace(req.History) != "" {
		summaryCtx, cancel := context.WithTimeout(ctx, uc.limits.SummaryTimeout)
		summaryStart := time.Now()
		historyExcerpt = uc.history.Compress(summaryCtx, pair.Reflex, req.History, question, uc.limits.HistoryCharBudget)
		uc.observePhase("summarize", summaryStart)
		cancel()
	}

	classifyCtx, cancel := context.WithTimeout(ctx, uc.limits.ClassifyTimeout)
	classifyStart := time.Now()
	analysis := uc.router.Classify(classifyCtx, pair.Reflex, question)
	uc.observePhase("classify", classifyStart)
	cancel()

	if analysis.RequiresFactLookup() {
		answer, found, err := uc.answerFromFacts(ctx, pair, question, analysis, historyExcerpt)
		if err != nil {
			return nil, err
		}
		if found {
			return answer, nil
		}
		// No exact rows for the extracted entities. The semantic route takes
		// over rather than answering "not found": the knowledge base may still
		// explain the move in prose.
		slog.Info("fact_lookup_empty", "character", analysis.Character, "move", analysis.Move)
	}

	return uc.answerFromKnowledge(ctx, pair, question, historyExcerpt)
}

func (uc *AskUseCase) answerFromFacts(ctx context.Context, pair domain.ModelPair, question string, analysis domain.QuestionAnalysis, historyExcerpt string) (*domain.CoachingAnswer, bool, error) {
	lookupStart := time.Now()
	records, err := uc.frameData.FindMoves(ctx, analysis.Character, analysis.Move)
	uc.observePhase("lookup", lookupStart)
	if err != nil {
		slog.Warn("fact_lookup_failed", "character", analysis.Character, "move", analysis.Move, "error", err)
		return nil, false, nil
	}
	if len(records) == 0 {
		return nil, false, nil
	}

	synthCtx, cancel := context.WithTimeout(ctx, uc.limits.SynthesisTimeout)
	defer cancel()

	synthStart := time.Now()
	answer, err := uc.synthesizer.Grounded(synthCtx, pair.Thinking, question, records, historyExcerpt)
	uc.observePhase("synthesize", synthStart)
	if err != nil {
		return nil, false, fmt.Errorf("grounded synthesis: %w", err)
	}
	return answer, true, nil
}

func (uc *AskUseCase) answerFromKnowledge(ctx context.Context, pair domain.ModelPair, question, historyExcerpt string) (*domain.CoachingAnswer, error) {
	expandCtx, cancel := context.WithTimeout(ctx, uc.limits.ExpandTimeout)
	expandStart := time.Now()
	subqueries := uc.expansion.Expand(expandCtx, pair.Reflex, question, uc.limits.MaxExpansions)
	uc.observePhase("expand", expandStart)
	cancel()

	retrieveCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrieveTimeout)
	retrieveStart := time.Now()
	merged, err := uc.retriever.Retrieve(retrieveCtx, subqueries, uc.limits.PerQueryK, uc.limits.SearchConcurrency)
	uc.observePhase("retrieve", retrieveStart)
	cancel()
	if err != nil {
		slog.Warn("retrieval_unavailable", "error", err)
		merged = nil
	}

	rerankCtx, cancel := context.WithTimeout(ctx, uc.limits.RerankTimeout)
	rerankStart := time.Now()
	ranked := uc.reranker.Rerank(rerankCtx, pair.Reflex, question, merged, uc.limits.RerankTopN, uc.limits.SearchConcurrency)
	uc.observePhase("rerank", rerankStart)
	cancel()

	contextBlock, sources := BuildSynthesisContext(ranked, uc.limits.SimilarityThreshold)
	if contextBlock == "" {
		return DeclinedAnswer(), nil
	}

	synthCtx, cancel := context.WithTimeout(ctx, uc.limits.SynthesisTimeout)
	defer cancel()

	synthStart := time.Now()
	answer, err := uc.synthesizer.AnalysisAdvice(synthCtx, pair.Thinking, question, contextBlock, historyExcerpt)
	uc.observePhase("synthesize", synthStart)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	answer.Sources = sources
	return answer, nil
}
