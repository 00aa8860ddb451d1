package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/scoreaudio/api/internal/model"
)

func TestLocalRunnerPipeline(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "input.wav")
	if err := os.WriteFile(input, []byte("RIFF fake audio"), 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	outDir := filepath.Join(root, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("failed to create output dir: %v", err)
	}

	r := NewLocalRunner()
	ctx := context.Background()

	converted, err := r.Convert(ctx, input, outDir)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if filepath.Base(converted) != "converted.wav" {
		t.Errorf("unexpected converted name: %s", converted)
	}

	analysis, err := r.Analyze(ctx, converted)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if analysis.BPM == 0 || analysis.Key == "" || analysis.TimeSignature == "" {
		t.Errorf("analysis incomplete: %+v", analysis)
	}

	midi, err := r.Transcribe(ctx, converted, outDir)
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	xml, err := r.Notate(ctx, midi, outDir)
	if err != nil {
		t.Fatalf("notate failed: %v", err)
	}
	ly, pdf, err := r.Engrave(ctx, xml, outDir)
	if err != nil {
		t.Fatalf("engrave failed: %v", err)
	}

	for _, path := range []string{midi, xml, ly, pdf} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected artifact on disk: %v", err)
		}
	}

	stems, err := r.Separate(ctx, converted, outDir)
	if err != nil {
		t.Fatalf("separate failed: %v", err)
	}
	if len(stems) != len(model.ValidStemNames) {
		t.Errorf("expected %d stems, got %d", len(model.ValidStemNames), len(stems))
	}
}

func TestLocalRunnerAnalyzeMissingInput(t *testing.T) {
	r := NewLocalRunner()
	if _, err := r.Analyze(context.Background(), filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing audio file")
	}
}

func TestLocalRunnerStemSubset(t *testing.T) {
	outDir := t.TempDir()

	r := NewLocalRunner(model.StemDrums)
	stems, err := r.Separate(context.Background(), "ignored", outDir)
	if err != nil {
		t.Fatalf("separate failed: %v", err)
	}
	if len(stems) != 1 {
		t.Fatalf("expected 1 stem, got %d", len(stems))
	}
	if _, ok := stems[model.StemDrums]; !ok {
		t.Error("expected drums stem")
	}
}
