package rag

import "encoding/json"

// Event types emitted by a streaming answer run.
const (
	EventToken = "token"
	EventDone  = "done"
	EventError = "error"
)

// Event is one element of a streaming answer sequence. A run emits zero or
// more token events followed by exactly one terminal event: done on success,
// error on failure. No done event follows an error.
type Event struct {
	Type       string
	Content    string
	Sources    []Source
	NumSources int
	Message    string
}

// TokenEvent carries one generated text fragment.
func TokenEvent(content string) Event {
	return Event{Type: EventToken, Content: content}
}

// DoneEvent carries the final attribution metadata.
func DoneEvent(sources []Source) Event {
	if sources == nil {
		sources = []Source{}
	}
	return Event{Type: EventDone, Sources: sources, NumSources: len(sources)}
}

// ErrorEvent reports a failed run. Tokens already emitted stay valid.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// MarshalJSON renders only the fields that belong to the event type, so a
// token event stays {"type","content"} while a done event always carries
// sources and num_sources even when empty.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventDone:
		sources := e.Sources
		if sources == nil {
			sources = []Source{}
		}
		return json.Marshal(struct {
			Type       string   `json:"type"`
			Sources    []Source `json:"sources"`
			NumSources int      `json:"num_sources"`
		}{e.Type, sources, e.NumSources})
	case EventError:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{e.Type, e.Message})
	default:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}{e.Type, e.Content})
	}
}
