package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_OutputTextDelta(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame("event: response.output_text.delta\ndata: {\"text\": \"abc\"}")
	require.NotNil(t, ev)
	assert.Equal(t, EventText, ev.Type)
	assert.Equal(t, "abc", ev.Text)
}

func TestParser_LegacyTextDelta(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame("event: response.text.delta\ndata: {\"text\": \"hello\"}")
	require.NotNil(t, ev)
	assert.Equal(t, EventText, ev.Type)
	assert.Equal(t, "hello", ev.Text)
}

func TestParser_EmptyTextDelta_Suppressed(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame("event: response.output_text.delta\ndata: {\"text\": \"\"}")
	assert.Nil(t, ev)
}

func TestParser_ThinkingDelta(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame("event: response.thinking.delta\ndata: {\"text\": \"considering fleet data\"}")
	require.NotNil(t, ev)
	assert.Equal(t, EventThinking, ev.Type)
	assert.Equal(t, "Reasoning", ev.Title)
	assert.Equal(t, "considering fleet data", ev.Text)
}

func TestParser_StatusTitles(t *testing.T) {
	p := &Parser{}

	tests := []struct {
		name   string
		data   string
		title  string
		status string
	}{
		{"mapped status", `{"status": "planning"}`, "Planning analysis approach", "planning"},
		{"mapped sql status", `{"status": "streaming_analyst_results"}`, "Running SQL query", "streaming_analyst_results"},
		{"unmapped falls back to message", `{"status": "warming_up", "message": "Warming up"}`, "Warming up", "warming_up"},
		{"unmapped falls back to status", `{"status": "warming_up"}`, "warming_up", "warming_up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := p.ParseFrame("event: response.status\ndata: " + tt.data)
			require.NotNil(t, ev)
			assert.Equal(t, EventStatus, ev.Type)
			assert.Equal(t, tt.title, ev.Title)
			assert.Equal(t, tt.status, ev.Status)
		})
	}
}

func TestParser_ToolResult(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame(`event: response.tool_result
data: {"content": [{"json": {"sql": "SELECT 1", "data": [1, 2]}}, {"text": "2 rows"}]}`)
	require.NotNil(t, ev)
	assert.Equal(t, EventToolResult, ev.Type)
	assert.Equal(t, "SELECT 1", ev.SQL)
	assert.JSONEq(t, "[1, 2]", string(ev.Data))
	assert.Equal(t, "2 rows", ev.Text)
}

func TestParser_ToolResult_Error(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame(`event: response.tool_result
data: {"content": [{"json": {"error": {"message": "table not found"}}}]}`)
	require.NotNil(t, ev)
	assert.Equal(t, "table not found", ev.ToolErr)
}

func TestParser_ToolResult_NothingFound_Suppressed(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame(`event: response.tool_result
data: {"content": [{"json": {"rows_affected": 3}}]}`)
	assert.Nil(t, ev)
}

func TestParser_Chart_PreParsed(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame(`event: response.chart
data: {"chart_spec": {"mark": "bar", "data": {"values": []}}}`)
	require.NotNil(t, ev)
	assert.Equal(t, EventChart, ev.Type)
	assert.Contains(t, string(ev.Chart), `"mark":"bar"`)
}

func TestParser_Chart_EmbeddedString(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame(`event: response.chart
data: {"chart_spec": "{\"mark\": \"line\"}"}`)
	require.NotNil(t, ev)
	assert.Equal(t, EventChart, ev.Type)
	assert.JSONEq(t, `{"mark": "line"}`, string(ev.Chart))
}

func TestParser_Chart_BadInnerJSON_Dropped(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame(`event: response.chart
data: {"chart_spec": "{not valid json"}`)
	assert.Nil(t, ev)
}

func TestParser_ContentDelta_NestedFallback(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame(`event: response.content.delta
data: {"content": [{"text": "part one "}, {"text": "part two"}]}`)
	require.NotNil(t, ev)
	assert.Equal(t, EventText, ev.Type)
	assert.Equal(t, "part one part two", ev.Text)
}

func TestParser_ContentDelta_DirectTextWins(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame(`event: response.content.delta
data: {"text": "direct", "content": [{"text": "nested"}]}`)
	require.NotNil(t, ev)
	assert.Equal(t, "direct", ev.Text)
}

func TestParser_DoneEventAndSentinel(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame("event: response.done\ndata: {}")
	require.NotNil(t, ev)
	assert.Equal(t, EventDone, ev.Type)

	ev = p.ParseFrame("data: [DONE]")
	require.NotNil(t, ev)
	assert.Equal(t, EventDone, ev.Type)
}

func TestParser_UnknownEventType_Suppressed(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame("event: response.future_thing\ndata: {\"x\": 1}")
	assert.Nil(t, ev)
}

func TestParser_MalformedJSON_Dropped(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame("event: response.output_text.delta\ndata: {broken")
	assert.Nil(t, ev)
}

func TestParser_ScalarData_AsText(t *testing.T) {
	p := &Parser{}

	ev := p.ParseFrame(`event: response.output_text.delta
data: "plain string"`)
	require.NotNil(t, ev)
	assert.Equal(t, EventText, ev.Type)
	assert.Equal(t, "plain string", ev.Text)
}

func TestParser_EmptyFrame(t *testing.T) {
	p := &Parser{}
	assert.Nil(t, p.ParseFrame(""))
	assert.Nil(t, p.ParseFrame("event: response.status"))
}
