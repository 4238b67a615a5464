package repl

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TranscriptWriter records a conversation for later review.
type TranscriptWriter interface {
	WriteUserMessage(text string) error
	WriteAssistantMessage(text string) error
	Flush() error
	Path() string
	Close() error
}

// FileTranscriptWriter writes the conversation to a markdown file.
type FileTranscriptWriter struct {
	path       string
	file       *os.File
	mu         sync.Mutex
	headerDone bool
}

// DefaultTranscriptDir returns ~/.earthmover/sessions.
func DefaultTranscriptDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".earthmover", "sessions"), nil
}

// NewFileTranscriptWriterWithDir creates a transcript writer under dir. An
// empty dir falls back to the default location.
func NewFileTranscriptWriterWithDir(sessionID, dir string) (*FileTranscriptWriter, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	if dir == "" {
		var err error
		dir, err = DefaultTranscriptDir()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	path := filepath.Join(dir, sessionID+".md")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open transcript file: %w", err)
	}

	return &FileTranscriptWriter{
		path: path,
		file: file,
	}, nil
}

// Path returns the transcript file location.
func (w *FileTranscriptWriter) Path() string {
	return w.path
}

func (w *FileTranscriptWriter) writeHeader() error {
	if w.headerDone {
		return nil
	}

	header := fmt.Sprintf("# Earthmover Session\n\n_Started: %s_\n\n---\n\n",
		time.Now().Format("2006-01-02 15:04:05"))

	if _, err := w.file.WriteString(header); err != nil {
		return err
	}
	w.headerDone = true
	return nil
}

func (w *FileTranscriptWriter) WriteUserMessage(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeHeader(); err != nil {
		return err
	}

	entry := fmt.Sprintf("### User\n\n%s\n\n", text)
	if _, err := w.file.WriteString(entry); err != nil {
		return fmt.Errorf("write user message: %w", err)
	}

	return w.file.Sync()
}

func (w *FileTranscriptWriter) WriteAssistantMessage(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeHeader(); err != nil {
		return err
	}

	entry := fmt.Sprintf("### Assistant\n\n%s\n\n---\n\n", text)
	if _, err := w.file.WriteString(entry); err != nil {
		return fmt.Errorf("write assistant message: %w", err)
	}

	return w.file.Sync()
}

func (w *FileTranscriptWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

func (w *FileTranscriptWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// NopTranscriptWriter discards everything.
type NopTranscriptWriter struct{}

func (NopTranscriptWriter) WriteUserMessage(string) error      { return nil }
func (NopTranscriptWriter) WriteAssistantMessage(string) error { return nil }
func (NopTranscriptWriter) Flush() error                       { return nil }
func (NopTranscriptWriter) Path() string                       { return "" }
func (NopTranscriptWriter) Close() error                       { return nil }
