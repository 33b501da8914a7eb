package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/parksage/parksage/ai/rag"
)

// ChatRequest is the body of both chat endpoints.
type ChatRequest struct {
	Question            string     `json:"question"`
	ParkCode            string     `json:"park_code"`
	TopK                int        `json:"top_k"`
	ConversationHistory []rag.Turn `json:"conversation_history"`
}

func (r *ChatRequest) validate() error {
	if r.Question == "" {
		return fmt.Errorf("question is required")
	}
	if r.TopK == 0 {
		r.TopK = defaultChatTopK
	}
	if r.TopK < 1 || r.TopK > maxChatTopK {
		return fmt.Errorf("top_k must be between 1 and %d", maxChatTopK)
	}
	if len(r.ConversationHistory) > maxHistoryTurns {
		return fmt.Errorf("conversation_history cannot exceed %d messages", maxHistoryTurns)
	}
	for _, turn := range r.ConversationHistory {
		if turn.Role != rag.RoleUser && turn.Role != rag.RoleAssistant {
			return fmt.Errorf("conversation_history roles must be %q or %q", rag.RoleUser, rag.RoleAssistant)
		}
	}
	return nil
}

func (r *ChatRequest) toPipelineRequest() *rag.Request {
	return &rag.Request{
		Question: r.Question,
		TopK:     r.TopK,
		ParkCode: r.ParkCode,
		History:  r.ConversationHistory,
	}
}

// Chat answers a question and returns the complete response.
func (s *APIV1Service) Chat(c echo.Context) error {
	request := &ChatRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := request.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if err := s.answerSemaphore.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server busy")
	}
	defer s.answerSemaphore.Release(1)

	result, err := s.Pipeline.Answer(ctx, request.toPipelineRequest())
	if err != nil {
		slog.Error("chat request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// ChatStream answers a question as Server-Sent Events: one data line per
// pipeline event, then a [DONE] sentinel.
func (s *APIV1Service) ChatStream(c echo.Context) error {
	request := &ChatRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := request.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if err := s.answerSemaphore.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server busy")
	}
	defer s.answerSemaphore.Release(1)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	for event := range s.Pipeline.StreamAnswer(ctx, request.toPipelineRequest()) {
		data, err := json.Marshal(event)
		if err != nil {
			slog.Error("failed to marshal stream event", "error", err)
			break
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
			// Client went away; the pipeline stops on context cancellation.
			return nil
		}
		resp.Flush()
	}

	if _, err := fmt.Fprint(resp, "data: [DONE]\n\n"); err != nil {
		return nil
	}
	resp.Flush()
	return nil
}
