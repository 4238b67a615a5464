package repl

import (
	"github.com/earthmover/internal/app"
)

// Option configures the REPL.
type Option func(*REPL) error

// WithApplication sets the application instance for the REPL.
func WithApplication(application *app.Application) Option {
	return func(r *REPL) error {
		r.app = application
		return nil
	}
}

// WithTranscriptDir sets a custom directory for transcript files.
// If not set, defaults to ~/.earthmover/sessions.
func WithTranscriptDir(dir string) Option {
	return func(r *REPL) error {
		r.transcriptDir = dir
		return nil
	}
}

// WithTranscriptDisabled turns off transcript recording.
func WithTranscriptDisabled() Option {
	return func(r *REPL) error {
		r.transcriptEnabled = false
		return nil
	}
}

// WithPrompt sets a custom prompt prefix. Default is "> ".
func WithPrompt(prefix string) Option {
	return func(r *REPL) error {
		r.promptPrefix = prefix
		return nil
	}
}

// WithStreaming starts the REPL in hosted-agent streaming mode.
func WithStreaming() Option {
	return func(r *REPL) error {
		r.streaming = true
		return nil
	}
}
