package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/google/uuid"

	"github.com/earthmover/internal/app"
	"github.com/earthmover/internal/consts"
	"github.com/earthmover/stream"
)

// REPL is the interactive chat surface over the co-pilot.
type REPL struct {
	app               *app.Application
	sessionID         string
	transcript        TranscriptWriter
	transcriptDir     string
	transcriptEnabled bool
	promptPrefix      string

	// siteOverride applies to the next turn only; the orchestrator then
	// keeps it as conversation state.
	siteOverride string
	streaming    bool
	history      []stream.Message

	ctx    context.Context
	cancel context.CancelFunc
	done   bool
}

// NewREPL creates a REPL bound to an initialized application.
func NewREPL(ctx context.Context, opts ...Option) (*REPL, error) {
	rctx, cancel := context.WithCancel(ctx)
	r := &REPL{
		ctx:               rctx,
		cancel:            cancel,
		sessionID:         uuid.NewString(),
		promptPrefix:      "> ",
		transcriptEnabled: true,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			cancel()
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if r.app == nil {
		cancel()
		return nil, fmt.Errorf("application is required")
	}

	if r.transcriptEnabled {
		tw, err := NewFileTranscriptWriterWithDir(r.sessionID, r.transcriptDir)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("create transcript writer: %w", err)
		}
		r.transcript = tw
		slog.Info("repl.transcript.enabled", "path", tw.Path())
	} else {
		r.transcript = NopTranscriptWriter{}
	}

	return r, nil
}

// Run starts the prompt loop and blocks until the user exits.
func (r *REPL) Run() error {
	slog.Info("repl.start", "session_id", r.sessionID)
	fmt.Println("Earthmover Co-Pilot ready. Type /help for commands, /quit to exit.")

	p := prompt.New(
		r.executor,
		r.completer,
		prompt.OptionPrefix(r.promptPrefix),
		prompt.OptionTitle("Earthmover"),
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(b *prompt.Buffer) {
				r.done = true
			},
		}),
	)

	p.Run()
	return nil
}

func (r *REPL) executor(input string) {
	text := strings.TrimSpace(input)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		r.runCommand(text)
		return
	}
	switch strings.ToLower(text) {
	case "exit", "quit":
		r.quit()
		return
	}

	if r.ctx.Err() != nil {
		slog.Error("repl.context.cancelled", "error", r.ctx.Err())
		r.done = true
		return
	}

	if err := r.transcript.WriteUserMessage(text); err != nil {
		slog.Warn("repl.transcript.user_failed", "error", err)
	}

	if r.streaming {
		r.runStreamTurn(text)
	} else {
		r.runChatTurn(text)
	}
}

func (r *REPL) runCommand(text string) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/help":
		r.printHelp()
	case "/quit":
		r.quit()
	case "/site":
		if len(fields) < 2 {
			fmt.Printf("Active site: %s (known sites: %s)\n", r.app.Site(), strings.Join(consts.Sites, ", "))
			return
		}
		r.siteOverride = strings.ToUpper(fields[1])
		fmt.Printf("Site set to %s for the conversation.\n", r.siteOverride)
	case "/stream":
		if len(fields) < 2 || (fields[1] != "on" && fields[1] != "off") {
			fmt.Println("Usage: /stream on|off")
			return
		}
		r.streaming = fields[1] == "on"
		fmt.Printf("Streaming mode %s.\n", fields[1])
	default:
		fmt.Printf("Unknown command %s. Type /help for commands.\n", fields[0])
	}
}

func (r *REPL) runChatTurn(text string) {
	result, err := r.app.Process(r.ctx, text, r.takeSiteOverride())
	if err != nil {
		if r.ctx.Err() != nil {
			slog.Error("repl.turn.interrupted", "error", r.ctx.Err())
			r.done = true
			return
		}
		slog.Error("repl.turn.failed", "error", err)
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(result.Response)
	if len(result.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(result.Sources, ", "))
	}
	fmt.Printf("[intent: %s]\n", result.Intent)

	if err := r.transcript.WriteAssistantMessage(result.Response); err != nil {
		slog.Warn("repl.transcript.assistant_failed", "error", err)
	}
}

// runStreamTurn sends the message through the hosted agent endpoint,
// falling back to a plain orchestrator turn when streaming is not
// configured.
func (r *REPL) runStreamTurn(text string) {
	events, err := r.app.Stream(r.ctx, text, r.history)
	if err != nil {
		var ce *stream.ConfigError
		if errors.As(err, &ce) {
			slog.Warn("repl.stream.unconfigured", "reason", ce.Reason)
			fmt.Println("(streaming unavailable, using local analysis)")
			r.runChatTurn(text)
			return
		}
		slog.Error("repl.stream.failed", "error", err)
		fmt.Printf("Error: %v\n", err)
		return
	}

	var response strings.Builder
	for ev := range events {
		switch ev.Type {
		case stream.EventThinking:
			fmt.Printf("  [%s] %s\n", ev.Title, ev.Text)
		case stream.EventStatus, stream.EventToolStatus:
			fmt.Printf("  -> %s\n", ev.Title)
		case stream.EventText:
			fmt.Print(ev.Text)
			response.WriteString(ev.Text)
		case stream.EventToolResult:
			if ev.SQL != "" {
				fmt.Printf("\n  sql: %s\n", ev.SQL)
			}
			if ev.ToolErr != "" {
				fmt.Printf("  tool error: %s\n", ev.ToolErr)
			}
		case stream.EventChart:
			fmt.Println("\n  [chart omitted in terminal]")
		case stream.EventError:
			fmt.Printf("\nError: %s\n", ev.Message)
		case stream.EventDone:
			fmt.Println()
		}
	}

	if response.Len() > 0 {
		r.history = append(r.history,
			stream.Message{Role: "user", Content: text},
			stream.Message{Role: "assistant", Content: response.String()},
		)
		if err := r.transcript.WriteAssistantMessage(response.String()); err != nil {
			slog.Warn("repl.transcript.assistant_failed", "error", err)
		}
	}
}

func (r *REPL) takeSiteOverride() string {
	override := r.siteOverride
	r.siteOverride = ""
	return override
}

func (r *REPL) quit() {
	r.done = true
	fmt.Println("Goodbye!")
}

func (r *REPL) completer(d prompt.Document) []prompt.Suggest {
	suggestions := []prompt.Suggest{
		{Text: "/help", Description: "Show available commands"},
		{Text: "/site", Description: "Set the active site (ALPHA, BETA, ...)"},
		{Text: "/stream", Description: "Toggle hosted-agent streaming (on|off)"},
		{Text: "/quit", Description: "Exit"},
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

func (r *REPL) printHelp() {
	fmt.Println(`
Available Commands:
  /help           Show this help message
  /site <ID>      Switch the active site (ALPHA, BETA, GAMMA, DELTA)
  /stream on|off  Switch between local analysis and hosted-agent streaming
  /quit           Exit the application

Anything else is sent to the co-pilot as a question.`)
}

// Close flushes the transcript and releases resources.
func (r *REPL) Close() error {
	slog.Info("repl.close", "session_id", r.sessionID)

	if err := r.transcript.Flush(); err != nil {
		slog.Warn("repl.transcript.flush_failed", "error", err)
	}
	if err := r.transcript.Close(); err != nil {
		slog.Warn("repl.transcript.close_failed", "error", err)
	}

	if r.cancel != nil {
		r.cancel()
	}
	return nil
}
