package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parksage/parksage/ai/rag"
	"github.com/parksage/parksage/internal/profile"
	"github.com/parksage/parksage/parks"
)

// fakePipeline scripts the answering pipeline behind the handlers.
type fakePipeline struct {
	result    *rag.Result
	answerErr error
	events    []rag.Event
	searched  []rag.SearchResult
	searchErr error

	lastRequest *rag.Request
	lastQuery   string
	lastTopK    int
	lastPark    string
}

func (f *fakePipeline) Answer(_ context.Context, req *rag.Request) (*rag.Result, error) {
	f.lastRequest = req
	if f.answerErr != nil {
		return nil, f.answerErr
	}
	return f.result, nil
}

func (f *fakePipeline) StreamAnswer(_ context.Context, req *rag.Request) <-chan rag.Event {
	f.lastRequest = req
	events := make(chan rag.Event, len(f.events))
	for _, event := range f.events {
		events <- event
	}
	close(events)
	return events
}

func (f *fakePipeline) Search(_ context.Context, query string, topK int, parkCode string) ([]rag.SearchResult, error) {
	f.lastQuery, f.lastTopK, f.lastPark = query, topK, parkCode
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searched, nil
}

func newTestService(pipeline AnswerPipeline) (*APIV1Service, *echo.Echo) {
	service := newAPIV1Service(
		&profile.Profile{Mode: "dev", Version: "test"},
		nil,
		parks.DefaultDirectory(),
		pipeline,
	)
	e := echo.New()
	service.RegisterRoutes(e)
	return service, e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	pipeline := &fakePipeline{result: &rag.Result{
		Answer:         "Glacier has grizzlies.",
		Sources:        []rag.Source{{ParkName: "Glacier National Park", ParkCode: "glac", URL: "https://www.nps.gov/glac", Score: 0.9}},
		Question:       "Tell me about Glacier National Park",
		NumSources:     1,
		ActiveParkCode: "glac",
	}}
	_, e := newTestService(pipeline)

	rec := doJSON(t, e, http.MethodPost, "/api/chat",
		`{"question":"Tell me about Glacier National Park","top_k":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result rag.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Glacier has grizzlies.", result.Answer)
	assert.Equal(t, "glac", result.ActiveParkCode)
	assert.Equal(t, 1, result.NumSources)

	require.NotNil(t, pipeline.lastRequest)
	assert.Equal(t, 3, pipeline.lastRequest.TopK)
}

func TestChatValidation(t *testing.T) {
	longHistory := `[` + strings.Repeat(`{"role":"user","content":"x"},`, 20) + `{"role":"user","content":"x"}]`

	tests := []struct {
		name string
		body string
	}{
		{"missing question", `{"top_k":5}`},
		{"top_k too large", `{"question":"q","top_k":11}`},
		{"top_k negative", `{"question":"q","top_k":-1}`},
		{"history too long", `{"question":"q","conversation_history":` + longHistory + `}`},
		{"bad role", `{"question":"q","conversation_history":[{"role":"system","content":"x"}]}`},
	}

	_, e := newTestService(&fakePipeline{result: &rag.Result{}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestChatDefaultsTopK(t *testing.T) {
	pipeline := &fakePipeline{result: &rag.Result{}}
	_, e := newTestService(pipeline)

	rec := doJSON(t, e, http.MethodPost, "/api/chat", `{"question":"q"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultChatTopK, pipeline.lastRequest.TopK)
}

func TestChatPipelineError(t *testing.T) {
	pipeline := &fakePipeline{answerErr: errors.New("generation failed")}
	_, e := newTestService(pipeline)

	rec := doJSON(t, e, http.MethodPost, "/api/chat", `{"question":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChatStreamSSE(t *testing.T) {
	pipeline := &fakePipeline{events: []rag.Event{
		rag.TokenEvent("Glacier "),
		rag.TokenEvent("has grizzlies."),
		rag.DoneEvent([]rag.Source{{ParkName: "Glacier National Park", ParkCode: "glac", Score: 0.9}}),
	}}
	_, e := newTestService(pipeline)

	rec := doJSON(t, e, http.MethodPost, "/api/chat/stream", `{"question":"Tell me about Glacier"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/event-stream")

	body := rec.Body.String()
	lines := strings.Split(strings.TrimSpace(body), "\n\n")
	require.Len(t, lines, 4)

	assert.JSONEq(t, `{"type":"token","content":"Glacier "}`, strings.TrimPrefix(lines[0], "data: "))
	assert.JSONEq(t, `{"type":"token","content":"has grizzlies."}`, strings.TrimPrefix(lines[1], "data: "))
	assert.JSONEq(t,
		`{"type":"done","sources":[{"park_name":"Glacier National Park","park_code":"glac","url":"","score":0.9}],"num_sources":1}`,
		strings.TrimPrefix(lines[2], "data: "))
	assert.Equal(t, "data: [DONE]", lines[3])
}

func TestChatStreamErrorEventStillGetsSentinel(t *testing.T) {
	pipeline := &fakePipeline{events: []rag.Event{
		rag.TokenEvent("partial "),
		rag.ErrorEvent("stream reset"),
	}}
	_, e := newTestService(pipeline)

	rec := doJSON(t, e, http.MethodPost, "/api/chat/stream", `{"question":"q"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `{"type":"error","message":"stream reset"}`)
	assert.NotContains(t, body, `"type":"done"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]"))
}

func TestSearch(t *testing.T) {
	pipeline := &fakePipeline{searched: []rag.SearchResult{
		{ID: 0, Score: 0.9, Text: "slot canyons", ParkCode: "zion", ParkName: "Zion National Park", ChunkID: "z1"},
	}}
	_, e := newTestService(pipeline)

	rec := doJSON(t, e, http.MethodPost, "/api/search", `{"query":"canyons","top_k":7,"park_code":"zion"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []rag.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "z1", results[0].ChunkID)

	assert.Equal(t, "canyons", pipeline.lastQuery)
	assert.Equal(t, 7, pipeline.lastTopK)
	assert.Equal(t, "zion", pipeline.lastPark)
}

func TestSearchValidation(t *testing.T) {
	_, e := newTestService(&fakePipeline{})

	rec := doJSON(t, e, http.MethodPost, "/api/search", `{"top_k":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/search", `{"query":"q","top_k":21}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchDefaultsTopK(t *testing.T) {
	pipeline := &fakePipeline{}
	_, e := newTestService(pipeline)

	rec := doJSON(t, e, http.MethodPost, "/api/search", `{"query":"geysers"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultSearchTopK, pipeline.lastTopK)
}

func TestListParks(t *testing.T) {
	_, e := newTestService(&fakePipeline{})

	req := httptest.NewRequest(http.MethodGet, "/api/parks", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var response ParksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, len(response.Parks), response.Count)
	assert.NotEmpty(t, response.Parks)

	codes := make(map[string]bool, len(response.Parks))
	for _, park := range response.Parks {
		codes[park.Code] = true
	}
	assert.True(t, codes["yell"])
	assert.True(t, codes["glac"])
}
