// =============================================================================
// lineeditor_test.go - Tests for the Line Editor (lineeditor.go)
// =============================================================================
//
// Only the piped mode can be tested without a terminal. Interactive mode is
// a thin wrapper around readline and is exercised by hand.
//
// =============================================================================

package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

// TestNewLineEditorNonInteractive replaces stdin with a pipe, which is never
// a terminal.
func TestNewLineEditorNonInteractive(t *testing.T) {
	oldStdin := os.Stdin
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdin = reader
	defer func() {
		os.Stdin = oldStdin
		reader.Close()
		writer.Close()
	}()

	editor := NewLineEditor()
	defer editor.Close()

	if editor.IsInteractive() {
		t.Error("editor should be non-interactive when stdin is a pipe")
	}
}

func TestGetLineReadsLines(t *testing.T) {
	var prompts bytes.Buffer
	editor := newPipedEditor(strings.NewReader("PING\n\nHELLO Name=Åsa\r\nlast"), &prompts)
	defer editor.Close()

	expected := []string{"PING", "", "HELLO Name=Åsa", "last"}
	for i, want := range expected {
		got, err := editor.GetLine("> ")
		if err != nil {
			t.Fatalf("line %d: GetLine() error: %v", i, err)
		}
		if got != want {
			t.Errorf("line %d = %q, want %q", i, got, want)
		}
	}

	if _, err := editor.GetLine("> "); !errors.Is(err, io.EOF) {
		t.Errorf("GetLine() at end = %v, want io.EOF", err)
	}
	if prompts.String() != strings.Repeat("> ", len(expected)+1) {
		t.Errorf("prompts written = %q", prompts.String())
	}
}

func TestGetLineReaderError(t *testing.T) {
	boom := errors.New("read failed")
	editor := newPipedEditor(io.MultiReader(strings.NewReader("partial"), errReader{boom}), io.Discard)

	if line, err := editor.GetLine(""); err != nil || line != "partial" {
		t.Fatalf("GetLine() = %q, %v, want the partial line first", line, err)
	}
	if _, err := editor.GetLine(""); !errors.Is(err, boom) {
		t.Errorf("GetLine() error = %v, want %v", err, boom)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestCloseIsIdempotent(t *testing.T) {
	editor := newPipedEditor(strings.NewReader(""), io.Discard)
	editor.Close()
	editor.Close()
}

func TestHistorySettings(t *testing.T) {
	if historyFileName != ".lightcli_history" {
		t.Errorf("historyFileName = %q", historyFileName)
	}
	if historySize <= 0 {
		t.Errorf("historySize = %d, want positive", historySize)
	}
}
