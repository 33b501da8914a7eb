// Package v1 exposes the question-answering pipeline over HTTP.
package v1

import (
	"context"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/parksage/parksage/ai"
	"github.com/parksage/parksage/ai/core/llm"
	"github.com/parksage/parksage/ai/metrics"
	"github.com/parksage/parksage/ai/rag"
	"github.com/parksage/parksage/internal/profile"
	"github.com/parksage/parksage/parks"
	"github.com/parksage/parksage/store"
)

// Request limits mirrored by the frontend.
const (
	maxChatTopK       = 10
	maxSearchTopK     = 20
	defaultChatTopK   = 5
	defaultSearchTopK = 10
	maxHistoryTurns   = 20

	// Generation is the expensive call; cap how many run at once.
	maxConcurrentAnswers = 8
)

// AnswerPipeline is the slice of the pipeline the HTTP handlers consume.
// *rag.Pipeline satisfies it; tests substitute a fake.
type AnswerPipeline interface {
	Answer(ctx context.Context, req *rag.Request) (*rag.Result, error)
	StreamAnswer(ctx context.Context, req *rag.Request) <-chan rag.Event
	Search(ctx context.Context, query string, topK int, parkCode string) ([]rag.SearchResult, error)
}

// APIV1Service wires the answering pipeline into the API surface.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Directory *parks.Directory
	Pipeline  AnswerPipeline

	answerSemaphore *semaphore.Weighted
}

// NewAPIV1Service constructs the AI capability clients from the profile and
// assembles the pipeline around them.
func NewAPIV1Service(instanceProfile *profile.Profile, storeInstance *store.Store, exporter *metrics.PrometheusExporter) (*APIV1Service, error) {
	aiConfig := ai.NewConfigFromProfile(instanceProfile)
	if err := aiConfig.Validate(); err != nil {
		return nil, err
	}

	embeddingService, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return nil, err
	}

	llmService, err := llm.NewService(&aiConfig.LLM)
	if err != nil {
		return nil, err
	}
	slog.Info("LLM service initialized",
		"provider", aiConfig.LLM.Provider,
		"model", aiConfig.LLM.Model,
	)

	// Warmup is best-effort: a failure only costs first-request latency.
	go func() {
		warmupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		llmService.Warmup(warmupCtx)
	}()

	directory := parks.DefaultDirectory()
	pipeline := rag.NewPipeline(rag.Options{
		Directory:       directory,
		LLM:             llmService,
		Embedder:        embeddingService,
		Searcher:        storeInstance,
		Metrics:         exporter,
		DetectionWindow: instanceProfile.DetectionWindow,
		RewriteWindow:   instanceProfile.RewriteWindow,
	})

	return newAPIV1Service(instanceProfile, storeInstance, directory, pipeline), nil
}

// newAPIV1Service is the injection seam used by tests.
func newAPIV1Service(instanceProfile *profile.Profile, storeInstance *store.Store, directory *parks.Directory, pipeline AnswerPipeline) *APIV1Service {
	return &APIV1Service{
		Profile:         instanceProfile,
		Store:           storeInstance,
		Directory:       directory,
		Pipeline:        pipeline,
		answerSemaphore: semaphore.NewWeighted(maxConcurrentAnswers),
	}
}

// RegisterRoutes mounts the API routes on the echo server.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	apiGroup := e.Group("/api")
	apiGroup.POST("/chat", s.Chat)
	apiGroup.POST("/chat/stream", s.ChatStream)
	apiGroup.POST("/search", s.Search)
	apiGroup.GET("/parks", s.ListParks)
}
