package repl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileTranscriptWriter_WriteMessages(t *testing.T) {
	tmpDir := t.TempDir()
	sessionID := "test-session-123"

	tw, err := NewFileTranscriptWriterWithDir(sessionID, tmpDir)
	require.NoError(t, err)
	require.NotNil(t, tw)

	expectedPath := filepath.Join(tmpDir, sessionID+".md")
	require.Equal(t, expectedPath, tw.Path())

	err = tw.WriteUserMessage("Show me Ghost Cycle alerts")
	require.NoError(t, err)

	err = tw.WriteAssistantMessage("No Ghost Cycles currently detected.")
	require.NoError(t, err)

	require.NoError(t, tw.Flush())
	require.NoError(t, tw.Close())

	content, err := os.ReadFile(expectedPath)
	require.NoError(t, err)

	contentStr := string(content)
	require.Contains(t, contentStr, "# Earthmover Session")
	require.Contains(t, contentStr, "### User")
	require.Contains(t, contentStr, "Show me Ghost Cycle alerts")
	require.Contains(t, contentStr, "### Assistant")
	require.Contains(t, contentStr, "No Ghost Cycles currently detected.")
}

func TestFileTranscriptWriter_EmptySessionID(t *testing.T) {
	_, err := NewFileTranscriptWriterWithDir("", t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "session ID is required")
}

func TestFileTranscriptWriter_DefaultDir(t *testing.T) {
	dir, err := DefaultTranscriptDir()
	require.NoError(t, err)

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(homeDir, ".earthmover", "sessions"), dir)
}

func TestFileTranscriptWriter_MultipleWrites(t *testing.T) {
	tmpDir := t.TempDir()
	sessionID := "test-multi-write"

	tw, err := NewFileTranscriptWriterWithDir(sessionID, tmpDir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, tw.WriteUserMessage("Question "+string(rune('A'+i))))
		require.NoError(t, tw.WriteAssistantMessage("Answer "+string(rune('A'+i))))
	}

	require.NoError(t, tw.Close())

	content, err := os.ReadFile(tw.Path())
	require.NoError(t, err)

	contentStr := string(content)
	require.Contains(t, contentStr, "Question A")
	require.Contains(t, contentStr, "Answer C")
}

func TestNopTranscriptWriter(t *testing.T) {
	var tw TranscriptWriter = NopTranscriptWriter{}
	require.NoError(t, tw.WriteUserMessage("x"))
	require.NoError(t, tw.WriteAssistantMessage("y"))
	require.NoError(t, tw.Flush())
	require.NoError(t, tw.Close())
	require.Empty(t, tw.Path())
}
