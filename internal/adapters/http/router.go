package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/config"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/domain"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/core/ports"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/observability/metrics"
)

const serviceAPI = "api"

// Router exposes the coaching API: question answering, knowledge uploads,
// frame-data sheet uploads, and the resolved model directory.
type Router struct {
	cfg      config.Config
	asker    ports.CoachAsker
	ingestor ports.KnowledgeIngestor
	sheets   ports.SheetIngestor
	models   ports.ModelDirectory
	repo     ports.KnowledgeRepository
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	asker ports.CoachAsker,
	ingestor ports.KnowledgeIngestor,
	sheets ports.SheetIngestor,
	models ports.ModelDirectory,
	repo ports.KnowledgeRepository,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		asker:    asker,
		ingestor: ingestor,
		sheets:   sheets,
		models:   models,
		repo:     repo,
		metrics:  m,
	}
}

// Handler assembles the middleware chain. Health and metrics endpoints stay
// outside auth and traffic control so probes and scrapes never get shed.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/coach/ask", rt.ask)
	mux.HandleFunc("/v1/knowledge/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/knowledge/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/framedata/sheets", rt.uploadSheet)
	mux.HandleFunc("/v1/models", rt.listModels)
	mux.HandleFunc("/v1/models/refresh", rt.refreshModels)

	var handler http.Handler = mux
	handler = authMiddleware(rt.cfg.APIAuthToken, handler)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateRPS, rt.cfg.APIRateBurst)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceAPI, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.asker.Ask(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, "ask", err)
		return
	}
	rt.recordAsk(answer, time.Since(start))

	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) recordAsk(answer *domain.CoachingAnswer, elapsed time.Duration) {
	if rt.metrics == nil || answer == nil {
		return
	}
	rt.metrics.RecordAsk(serviceAPI, string(answer.Mode), len(answer.Sources), len(answer.Violations), elapsed)
	if answer.Mode == domain.ModeDeclined {
		rt.metrics.RecordAskDeclined(serviceAPI)
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.writeError(w, r, "upload document", err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/knowledge/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) uploadSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	storageKey, err := rt.sheets.UploadSheet(r.Context(), fileHeader.Filename, file)
	if err != nil {
		rt.writeError(w, r, "upload sheet", err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"storage_key": storageKey,
		"status":      "scheduled",
	})
}

func (rt *Router) listModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	pair, err := rt.models.Current(r.Context())
	if err != nil {
		rt.writeError(w, r, "list models", err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// refreshModels drops the cached pair and re-resolves eagerly so the caller
// sees the outcome instead of deferring failures to the next question.
func (rt *Router) refreshModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rt.models.Invalidate()
	pair, err := rt.models.Current(r.Context())
	if err != nil {
		rt.writeError(w, r, "refresh models", err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"op", op,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
