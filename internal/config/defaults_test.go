package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigUsesConstants(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()

	if cfg.Terminal.Term != DefaultTerminalTerm {
		t.Fatalf("Terminal.Term = %q, want %q", cfg.Terminal.Term, DefaultTerminalTerm)
	}
	if cfg.Terminal.Cols != DefaultTerminalCols || cfg.Terminal.Rows != DefaultTerminalRows {
		t.Fatalf("Terminal size = %dx%d", cfg.Terminal.Cols, cfg.Terminal.Rows)
	}
	if cfg.Terminal.ScrollbackLines != DefaultScrollbackLines {
		t.Fatalf("ScrollbackLines = %d, want %d", cfg.Terminal.ScrollbackLines, DefaultScrollbackLines)
	}
	if cfg.Terminal.Shell != "" {
		t.Fatalf("Shell = %q, want empty", cfg.Terminal.Shell)
	}

	expectedDir := filepath.Join(home, DefaultConfigDirName)
	if cfg.Log.File != filepath.Join(expectedDir, DefaultLogFileName) {
		t.Fatalf("Log.File = %q", cfg.Log.File)
	}
	if !cfg.History.Enabled || cfg.History.Path != filepath.Join(expectedDir, DefaultHistoryFileName) {
		t.Fatalf("History = %+v", cfg.History)
	}
	if cfg.History.BatchSize != DefaultHistoryBatchSize {
		t.Fatalf("History.BatchSize = %d", cfg.History.BatchSize)
	}
	if cfg.Mirror.Listen != "" {
		t.Fatalf("Mirror.Listen = %q, want disabled", cfg.Mirror.Listen)
	}
}
