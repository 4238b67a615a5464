package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/earthmover/internal/metrics"
)

// DefaultTokenPath is where the platform mounts the session credential.
const DefaultTokenPath = "/snowflake/session/token"

const defaultTimeout = 2 * time.Minute

// ConfigError reports a missing credential or endpoint. It is fatal and
// never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "stream client configuration: " + e.Reason
}

// Client calls the hosted agent-run endpoint and exposes the response as a
// forward-only event sequence.
//
// Every sequence terminates in exactly one done event, whether the call
// succeeded, returned a non-success status, or failed mid-stream.
type Client struct {
	endpoint  string
	tokenPath string
	httpc     *http.Client
	parser    *Parser
}

// NewClient builds a stream client for the given agent-run endpoint.
// tokenPath and timeout fall back to defaults when zero.
func NewClient(endpoint, tokenPath string, timeout time.Duration) *Client {
	if tokenPath == "" {
		tokenPath = DefaultTokenPath
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:  endpoint,
		tokenPath: tokenPath,
		httpc:     &http.Client{Timeout: timeout},
		parser:    &Parser{},
	}
}

func (c *Client) token() (string, error) {
	raw, err := os.ReadFile(c.tokenPath)
	if err != nil {
		return "", &ConfigError{Reason: fmt.Sprintf("token file %s unavailable: %v", c.tokenPath, err)}
	}
	return strings.TrimSpace(string(raw)), nil
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type runRequest struct {
	Messages []apiMessage `json:"messages"`
	Stream   bool         `json:"stream"`
}

// Run sends one message (with optional history) to the agent endpoint and
// returns the resulting event sequence. Configuration problems fail
// immediately with a *ConfigError before any request is made; everything
// after that surfaces in-band as error events.
//
// Cancelling ctx stops the stream and releases the connection; consumers
// may simply stop reading after cancellation.
func (c *Client) Run(ctx context.Context, message string, history []Message) (<-chan Event, error) {
	if c.endpoint == "" {
		return nil, &ConfigError{Reason: "endpoint not configured"}
	}
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	msgs := make([]apiMessage, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, apiMessage{Role: m.Role, Content: []contentPart{{Type: "text", Text: m.Content}}})
	}
	msgs = append(msgs, apiMessage{Role: "user", Content: []contentPart{{Type: "text", Text: message}}})

	body, err := json.Marshal(runRequest{Messages: msgs, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-Snowflake-Authorization-Token-Type", "OAUTH")

	events := make(chan Event)
	go c.consume(ctx, req, events)
	return events, nil
}

func (c *Client) consume(ctx context.Context, req *http.Request, events chan<- Event) {
	defer close(events)

	emit := func(ev Event) bool {
		metrics.StreamEvents.WithLabelValues(string(ev.Type)).Inc()
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(msg string) {
		if emit(Event{Type: EventError, Message: msg}) {
			emit(Event{Type: EventDone})
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		slog.Error("stream.request.failed", "error", err)
		fail(err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("stream.request.status", "status", resp.StatusCode)
		fail(fmt.Sprintf("agent API error: %d %s", resp.StatusCode, strings.TrimSpace(string(detail))))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(splitFrames)

	doneSent := false
	for scanner.Scan() {
		frame := scanner.Text()
		if strings.TrimSpace(frame) == "" {
			continue
		}
		ev := c.parser.ParseFrame(frame)
		if ev == nil {
			continue
		}
		if !emit(*ev) {
			return
		}
		if ev.Type == EventDone {
			doneSent = true
			break
		}
	}

	if err := scanner.Err(); err != nil && !doneSent {
		slog.Error("stream.read.failed", "error", err)
		fail(err.Error())
		return
	}

	if !doneSent {
		emit(Event{Type: EventDone})
	}
}

// splitFrames is a bufio.SplitFunc yielding blank-line delimited frames,
// flushing any non-empty remainder as one final frame at end of stream.
func splitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		return i + 2, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
