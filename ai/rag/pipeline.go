package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/parksage/parksage/ai/core/llm"
	"github.com/parksage/parksage/ai/metrics"
	"github.com/parksage/parksage/parks"
	"github.com/parksage/parksage/store"
)

// DefaultTopK is the chunk count used when a request leaves TopK unset.
const DefaultTopK = 5

// pipelineStage names one state of the answering state machine.
type pipelineStage string

const (
	stageStart        pipelineStage = "start"
	stageDetectPark   pipelineStage = "detect_park"
	stageRewriteQuery pipelineStage = "rewrite_query"
	stageRetrieve     pipelineStage = "retrieve"
	stageGenerate     pipelineStage = "generate"
	stageNoResults    pipelineStage = "no_results"
)

// pipelineState is the unit threaded through one run. question and
// explicitParkCode are set at creation and never overwritten.
type pipelineState struct {
	question         string
	topK             int
	history          []Turn
	explicitParkCode string

	activeParkCode string
	searchQuery    string
	chunks         []*store.ChunkWithScore
}

// routeAfterDetect rewrites only when there is history to draw from.
func routeAfterDetect(st *pipelineState) pipelineStage {
	if len(st.history) > 0 {
		return stageRewriteQuery
	}
	return stageRetrieve
}

// routeAfterRetrieve generates only when context was actually found.
func routeAfterRetrieve(st *pipelineState) pipelineStage {
	if len(st.chunks) > 0 {
		return stageGenerate
	}
	return stageNoResults
}

// Options configures a Pipeline. LLM, Embedder, Searcher, and Directory are
// required; Metrics may be nil.
type Options struct {
	Directory *parks.Directory
	LLM       llm.Service
	Embedder  Embedder
	Searcher  Searcher
	Metrics   *metrics.PrometheusExporter

	// DetectionWindow and RewriteWindow are trailing-turn lookbacks;
	// non-positive values use the package defaults.
	DetectionWindow int
	RewriteWindow   int
}

// Pipeline sequences detection, rewriting, retrieval, and generation for one
// question at a time. Every run builds fresh state, so concurrent runs share
// nothing but the read-only directory and the capability clients.
type Pipeline struct {
	detector  *Detector
	rewriter  *Rewriter
	retriever *Retriever
	generator *Generator
	metrics   *metrics.PrometheusExporter
}

// NewPipeline wires the pipeline components from explicitly constructed
// capability clients.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		detector:  NewDetector(opts.Directory, opts.DetectionWindow),
		rewriter:  NewRewriter(opts.LLM, opts.Directory, opts.RewriteWindow, opts.Metrics),
		retriever: NewRetriever(opts.Embedder, opts.Searcher, opts.Metrics),
		generator: NewGenerator(opts.LLM, opts.Metrics),
		metrics:   opts.Metrics,
	}
}

func newPipelineState(req *Request) *pipelineState {
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &pipelineState{
		question:         req.Question,
		topK:             topK,
		history:          req.History,
		explicitParkCode: req.ParkCode,
		searchQuery:      req.Question,
	}
}

// run drives the state machine up to the generation decision and returns
// the branch taken: stageGenerate or stageNoResults.
func (p *Pipeline) run(ctx context.Context, st *pipelineState) (pipelineStage, error) {
	stage := stageStart
	for {
		switch stage {
		case stageStart:
			stage = stageDetectPark

		case stageDetectPark:
			st.activeParkCode = p.detector.Detect(st.question, st.history)
			// Text evidence always outranks the caller-supplied default.
			if st.activeParkCode == "" && st.explicitParkCode != "" {
				st.activeParkCode = st.explicitParkCode
				slog.Info("using explicit park code fallback", "park_code", st.activeParkCode)
			}
			stage = routeAfterDetect(st)

		case stageRewriteQuery:
			st.searchQuery = p.rewriter.Rewrite(ctx, st.question, st.history, st.activeParkCode)
			stage = stageRetrieve

		case stageRetrieve:
			chunks, err := p.retriever.Retrieve(ctx, st.searchQuery, st.topK, st.activeParkCode)
			if err != nil {
				return stage, err
			}
			st.chunks = chunks
			stage = routeAfterRetrieve(st)

		default:
			return stage, nil
		}
	}
}

// Answer runs the full state machine to completion and returns the final
// aggregated state.
func (p *Pipeline) Answer(ctx context.Context, req *Request) (*Result, error) {
	started := time.Now()
	slog.Info("answering question", "question", req.Question, "history_turns", len(req.History))

	st := newPipelineState(req)
	stage, err := p.run(ctx, st)
	if err != nil {
		p.recordQuestion("blocking", "error", started)
		return nil, err
	}

	result := &Result{
		Question:       st.question,
		ActiveParkCode: st.activeParkCode,
	}

	if stage == stageNoResults {
		result.Answer = NoResultsMessage
		result.Sources = []Source{}
		p.recordQuestion("blocking", "no_results", started)
		return result, nil
	}

	answer, sources, err := p.generator.Generate(ctx, st.question, st.chunks, st.history, st.activeParkCode)
	if err != nil {
		p.recordQuestion("blocking", "error", started)
		return nil, err
	}

	result.Answer = answer
	result.Sources = sources
	result.NumSources = len(st.chunks)
	p.recordQuestion("blocking", "answered", started)
	return result, nil
}

// StreamAnswer runs the same state machine but emits the generation as an
// ordered event sequence: token events as fragments arrive, then exactly one
// terminal event. The no-results path emits its fixed message as a single
// synthetic token so callers always see at least one token before done. On
// failure the sequence ends with an error event and no done event.
//
// The returned channel closes after the terminal event. Cancelling ctx stops
// forwarding and releases the in-flight generation call.
func (p *Pipeline) StreamAnswer(ctx context.Context, req *Request) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)
		started := time.Now()
		if p.metrics != nil {
			p.metrics.StreamStarted()
			defer p.metrics.StreamFinished()
		}

		st := newPipelineState(req)
		stage, err := p.run(ctx, st)
		if err != nil {
			slog.Error("streaming answer failed", "error", err)
			p.recordQuestion("streaming", "error", started)
			p.emit(ctx, events, ErrorEvent(err.Error()))
			return
		}

		if stage == stageNoResults {
			if !p.emit(ctx, events, TokenEvent(NoResultsMessage)) {
				return
			}
			p.recordQuestion("streaming", "no_results", started)
			p.emit(ctx, events, DoneEvent(nil))
			return
		}

		contentCh, statsCh, errCh := p.generator.GenerateStream(ctx, st.question, st.chunks, st.history, st.activeParkCode)

		tokens := 0
		for token := range contentCh {
			if token == "" {
				continue
			}
			if !p.emit(ctx, events, TokenEvent(token)) {
				return
			}
			tokens++
		}

		if err := <-errCh; err != nil {
			slog.Error("streaming generation failed", "error", err, "tokens_emitted", tokens)
			p.recordQuestion("streaming", "error", started)
			p.emit(ctx, events, ErrorEvent(err.Error()))
			return
		}

		recordLLMStats(p.metrics, "answer", <-statsCh)
		if p.metrics != nil {
			p.metrics.RecordStreamTokens(tokens)
		}
		p.recordQuestion("streaming", "answered", started)
		p.emit(ctx, events, DoneEvent(p.generator.SourcesFor(st.chunks)))
	}()

	return events
}

// Search runs retrieval directly, bypassing detection, rewriting, and
// generation.
func (p *Pipeline) Search(ctx context.Context, query string, topK int, parkCode string) ([]SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	chunks, err := p.retriever.Retrieve(ctx, query, topK, parkCode)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(chunks))
	for i, chunk := range chunks {
		results = append(results, SearchResult{
			ID:        i,
			Score:     chunk.Score,
			Text:      chunk.Chunk.Content,
			ParkCode:  chunk.Chunk.ParkCode,
			ParkName:  chunk.Chunk.ParkName,
			SourceURL: chunk.Chunk.SourceURL,
			ChunkID:   chunk.Chunk.ChunkID,
		})
	}
	return results, nil
}

// emit sends one event unless the caller has gone away.
func (p *Pipeline) emit(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) recordQuestion(mode, outcome string, started time.Time) {
	if p.metrics != nil {
		p.metrics.RecordQuestion(mode, outcome, time.Since(started))
	}
}
