package bootstrap

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/config"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/usecase"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/chunking"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/extractor"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/extractor/pdf"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/extractor/plaintext"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/framedata/sheet"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/llm/gemini"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/queue/nats"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/repository/postgres"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/resilience"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/storage/localfs"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/infrastructure/vector/pinecone"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/observability/metrics"
)

const apiService = "api"

// App holds the wired dependency graph shared by both binaries. The API
// serves the inbound ports over HTTP; the worker consumes the queue and
// drives ProcessUC and ImportUC.
type App struct {
	Config config.Config
	Tuning config.Tuning

	Queue     ports.MessageQueue
	Repo      ports.KnowledgeRepository
	FrameData ports.FrameDataStore

	Models    ports.ModelDirectory
	AskUC     ports.CoachAsker
	IngestUC  ports.KnowledgeIngestor
	SheetUC   ports.SheetIngestor
	ProcessUC ports.KnowledgeProcessor
	ImportUC  ports.SheetImporter

	closeFn func()
}

// New builds the full graph. apiMetrics is optional: the API passes its
// metrics so probe outcomes and ask phases are observed, the worker passes
// nil and skips that instrumentation.
func New(ctx context.Context, cfg config.Config, apiMetrics *metrics.HTTPServerMetrics) (*App, error) {
	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewKnowledgeRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure knowledge schema: %w", err)
	}
	frameData := postgres.NewFrameDataRepository(db)
	if err := frameData.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure framedata schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	stdExecutor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectKnowledge, cfg.NATSSubjectSheets, nats.Options{
		ResilienceExecutor: stdExecutor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	// Generation retries on a long fixed backoff because provider rate
	// limits clear on the order of a minute. Embedding and search keep the
	// short exponential policy via stdExecutor.
	genExecutor := resilience.NewExecutor(resilience.FixedBackoff(
		cfg.GeminiRetryAttempts,
		time.Duration(cfg.GeminiBackoffSeconds)*time.Second,
	))

	var limiter *rate.Limiter
	if cfg.GeminiRateRPS > 0 {
		burst := cfg.GeminiRateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.GeminiRateRPS), burst)
	}

	client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiEmbedModel, genExecutor, limiter)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	classifier := gemini.NewClassifier(client)
	expander := gemini.NewExpander(client)
	judge := gemini.NewJudge(client)
	generator := gemini.NewGenerator(client)
	summarizer := gemini.NewSummarizer(client)
	embedder := gemini.NewEmbedder(client, stdExecutor)
	catalog := gemini.NewCatalog(client)

	vectorDB := pinecone.New(cfg.PineconeHost, cfg.PineconeAPIKey, cfg.PineconeNamespace)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.NewSelector(plaintext.NewExtractor(storage), pdf.NewExtractor(storage))
	sheetParser := sheet.NewParser()

	var prober ports.ModelProber = catalog
	if apiMetrics != nil {
		prober = &observedProber{inner: catalog, metrics: apiMetrics}
	}
	models := usecase.NewModelResolverUseCase(catalog, prober, tuning.ModelScoring(), tuning.ResolverLimits(), tuning.FrozenFallback())

	routerUC := usecase.NewIntentRouterUseCase(classifier)
	expansionUC := usecase.NewQueryExpansionUseCase(expander)
	retrieverUC := usecase.NewMultiQueryRetriever(embedder, vectorDB)
	rerankUC := usecase.NewRelevanceRerankUseCase(judge)
	synthesisUC := usecase.NewAnswerSynthesisUseCase(generator)
	historyUC := usecase.NewHistoryCompressionUseCase(summarizer)

	askUC := usecase.NewAskUseCase(models, routerUC, expansionUC, retrieverUC, rerankUC, synthesisUC, historyUC, frameData, tuning.AskLimits())
	if apiMetrics != nil {
		askUC.SetPhaseObserver(apiMetrics.AskPhaseObserver(apiService))
	}

	ingestUC := usecase.NewIngestKnowledgeUseCase(repo, storage, queue)
	sheetUC := usecase.NewUploadSheetUseCase(storage, queue)
	processUC := usecase.NewProcessKnowledgeUseCase(repo, textExtractor, chunker, embedder, vectorDB)
	importUC := usecase.NewImportSheetUseCase(storage, sheetParser, frameData)

	return &App{
		Config: cfg,
		Tuning: tuning,

		Queue:     queue,
		Repo:      repo,
		FrameData: frameData,

		Models:    models,
		AskUC:     askUC,
		IngestUC:  ingestUC,
		SheetUC:   sheetUC,
		ProcessUC: processUC,
		ImportUC:  importUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// observedProber counts probe outcomes without the resolver knowing about
// metrics.
type observedProber struct {
	inner   ports.ModelProber
	metrics *metrics.HTTPServerMetrics
}

func (p *observedProber) Probe(ctx context.Context, modelID string) error {
	err := p.inner.Probe(ctx, modelID)
	p.metrics.RecordModelProbe(apiService, err == nil)
	return err
}
