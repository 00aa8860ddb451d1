package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/scoreaudio/api/internal/model"
)

// LocalRunner is the development fallback used when the tools service
// is not configured. It writes placeholder artifacts and canned
// analysis data so the full pipeline can be exercised end to end
// without ffmpeg/omnizart/lilypond/demucs installed.
type LocalRunner struct {
	stems []model.StemName
}

// NewLocalRunner returns a runner that emits the given stems from the
// separation stage. With no arguments it emits all four.
func NewLocalRunner(stems ...model.StemName) *LocalRunner {
	if len(stems) == 0 {
		stems = model.ValidStemNames
	}
	return &LocalRunner{stems: stems}
}

func (r *LocalRunner) Convert(ctx context.Context, inputPath, outputDir string) (string, error) {
	out := filepath.Join(outputDir, "converted.wav")
	if err := copyFile(inputPath, out); err != nil {
		return "", fmt.Errorf("format conversion failed: %w", err)
	}
	return out, nil
}

func (r *LocalRunner) Analyze(ctx context.Context, audioPath string) (*model.Analysis, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio analysis failed: %w", err)
	}
	return &model.Analysis{
		BPM:           120,
		Key:           "C Major",
		TimeSignature: "4/4",
		Duration:      225,
		AvgPitch:      60.0,
		PitchRange:    30.0,
		KeyStability:  0.85,
		ModeMajor:     1,
		NoteDensity:   2.5,
		RhythmVariety: 2.0,
	}, nil
}

func (r *LocalRunner) Transcribe(ctx context.Context, audioPath, outputDir string) (string, error) {
	return writePlaceholder(outputDir, "transcribed.mid", "MIDI placeholder")
}

func (r *LocalRunner) Notate(ctx context.Context, midiPath, outputDir string) (string, error) {
	return writePlaceholder(outputDir, "score.musicxml", "MusicXML placeholder")
}

func (r *LocalRunner) Engrave(ctx context.Context, musicXMLPath, outputDir string) (string, string, error) {
	ly, err := writePlaceholder(outputDir, "score.ly", "LilyPond placeholder")
	if err != nil {
		return "", "", err
	}
	pdf, err := writePlaceholder(outputDir, "score.pdf", "PDF placeholder")
	if err != nil {
		return "", "", err
	}
	return ly, pdf, nil
}

func (r *LocalRunner) Separate(ctx context.Context, audioPath, outputDir string) (map[model.StemName]string, error) {
	stems := make(map[model.StemName]string, len(r.stems))
	for _, name := range r.stems {
		path, err := writePlaceholder(outputDir, string(name)+".wav", "Audio placeholder")
		if err != nil {
			return nil, err
		}
		stems[name] = path
	}
	return stems, nil
}

func writePlaceholder(dir, name, content string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
