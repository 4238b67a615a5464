package stream

import "encoding/json"

// EventType tags the caller-visible events produced from the agent stream.
type EventType string

const (
	EventThinking   EventType = "thinking"
	EventText       EventType = "text"
	EventStatus     EventType = "status"
	EventToolStatus EventType = "tool_status"
	EventToolResult EventType = "tool_result"
	EventChart      EventType = "chart"
	EventError      EventType = "error"
	EventDone       EventType = "done"
)

// Event is the tagged union carried to stream consumers. Only the fields
// relevant to Type are populated.
type Event struct {
	Type EventType `json:"type"`

	// Text carries delta content for text and thinking events.
	Text string `json:"text,omitempty"`

	// Title and Status describe status and tool_status events.
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`

	// Tool result payload; at least one is set when Type is tool_result.
	SQL     string          `json:"sql,omitempty"`
	ToolErr string          `json:"tool_error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Chart holds the parsed chart specification.
	Chart json.RawMessage `json:"chart_spec,omitempty"`

	// Message carries the description for error events.
	Message string `json:"message,omitempty"`
}

// Message is one turn of conversation history sent to the agent endpoint.
type Message struct {
	Role    string
	Content string
}
