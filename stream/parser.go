package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// doneSentinel is the data payload marking end of stream.
const doneSentinel = "[DONE]"

// statusTitles maps internal agent status codes to human-readable titles.
// Unmapped statuses fall back to the raw message or status string.
var statusTitles = map[string]string{
	"planning":                  "Planning analysis approach",
	"reasoning_agent_start":     "Starting analysis",
	"reasoning_agent_stop":      "Analysis complete",
	"reevaluating_plan":         "Refining approach",
	"streaming_analyst_results": "Running SQL query",
}

// Parser turns one raw frame of the agent event stream into a typed Event.
//
// The protocol is expected to evolve: unknown event tags and malformed
// payloads are logged and dropped (nil), never surfaced as errors.
type Parser struct{}

// ParseFrame parses one self-contained frame (an event-type line plus a
// data line). A nil return means the frame produces no caller-visible
// event.
func (p *Parser) ParseFrame(frame string) *Event {
	var eventType, dataStr string
	for _, line := range strings.Split(strings.TrimSpace(frame), "\n") {
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			dataStr = strings.TrimSpace(line[len("data:"):])
		}
	}

	if dataStr == doneSentinel {
		return &Event{Type: EventDone}
	}
	if dataStr == "" {
		return nil
	}

	var payload any
	if err := json.Unmarshal([]byte(dataStr), &payload); err != nil {
		slog.Warn("stream.frame.malformed_data", "event", eventType, "error", err)
		return nil
	}

	data, ok := payload.(map[string]any)
	if !ok {
		// Scalar data payloads surface as plain text.
		return &Event{Type: EventText, Text: fmt.Sprint(payload)}
	}

	switch eventType {
	case "response.output_text.delta", "response.text.delta":
		if text := getString(data, "text"); text != "" {
			return &Event{Type: EventText, Text: text}
		}
		return nil

	case "response.thinking.delta":
		if text := getString(data, "text"); text != "" {
			return &Event{Type: EventThinking, Title: "Reasoning", Text: text}
		}
		return nil

	case "response.status":
		status := getString(data, "status")
		title, ok := statusTitles[status]
		if !ok {
			title = getString(data, "message")
			if title == "" {
				title = status
			}
		}
		if title == "" {
			return nil
		}
		return &Event{Type: EventStatus, Title: title, Status: status}

	case "response.tool_result.status":
		status := getString(data, "status")
		title := getString(data, "message")
		if title == "" {
			title = status
		}
		return &Event{Type: EventToolStatus, Title: title, Status: status}

	case "response.tool_result":
		return parseToolResult(data)

	case "response.chart":
		return parseChart(data)

	case "response.content.delta":
		if text := getString(data, "text"); text != "" {
			return &Event{Type: EventText, Text: text}
		}
		// Alternative shape: text spread over nested content parts.
		if parts, ok := data["content"].([]any); ok {
			var b strings.Builder
			for _, part := range parts {
				if m, ok := part.(map[string]any); ok {
					b.WriteString(getString(m, "text"))
				}
			}
			if b.Len() > 0 {
				return &Event{Type: EventText, Text: b.String()}
			}
		}
		return nil

	case "response.done":
		return &Event{Type: EventDone}
	}

	slog.Debug("stream.frame.unknown_event", "event", eventType)
	return nil
}

// parseToolResult extracts SQL, error and data payloads from the nested
// content list. Emitted only when at least one field was found.
func parseToolResult(data map[string]any) *Event {
	ev := &Event{Type: EventToolResult}
	found := false

	parts, _ := data["content"].([]any)
	for _, part := range parts {
		item, ok := part.(map[string]any)
		if !ok {
			continue
		}
		if jsonData, ok := item["json"].(map[string]any); ok {
			if sql := getString(jsonData, "sql"); sql != "" {
				ev.SQL = sql
				found = true
			}
			if errVal, ok := jsonData["error"]; ok {
				ev.ToolErr = errorMessage(errVal)
				found = true
			}
			if dataVal, ok := jsonData["data"]; ok {
				if raw, err := json.Marshal(dataVal); err == nil {
					ev.Data = raw
					found = true
				}
			}
		}
		if text := getString(item, "text"); text != "" {
			ev.Text = text
			found = true
		}
	}

	if !found {
		return nil
	}
	return ev
}

// parseChart handles chart payloads that arrive either pre-parsed or as an
// embedded JSON string. Frames whose inner spec fails to parse are dropped.
func parseChart(data map[string]any) *Event {
	spec, ok := data["chart_spec"]
	if !ok {
		return nil
	}

	switch v := spec.(type) {
	case string:
		var parsed map[string]any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			slog.Warn("stream.frame.chart_parse_failed", "error", err)
			return nil
		}
		raw, err := json.Marshal(parsed)
		if err != nil {
			return nil
		}
		return &Event{Type: EventChart, Chart: raw}
	case map[string]any:
		if len(v) == 0 {
			return nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return &Event{Type: EventChart, Chart: raw}
	default:
		return nil
	}
}

func errorMessage(v any) string {
	if m, ok := v.(map[string]any); ok {
		if msg := getString(m, "message"); msg != "" {
			return msg
		}
	}
	return fmt.Sprint(v)
}

func getString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
