package client

import (
	"context"

	"github.com/scoreaudio/api/internal/model"
)

// StageRunner is the contract the pipeline worker needs from the signal
// processing collaborators. Each call takes an input artifact location
// plus an output directory and returns output locations, or fails with
// a descriptive error; the worker treats any failure identically.
type StageRunner interface {
	// Convert normalizes the raw upload into WAV audio.
	Convert(ctx context.Context, inputPath, outputDir string) (string, error)
	// Analyze extracts tempo, key and pitch statistics.
	Analyze(ctx context.Context, audioPath string) (*model.Analysis, error)
	// Transcribe produces a note-event (MIDI) artifact.
	Transcribe(ctx context.Context, audioPath, outputDir string) (string, error)
	// Notate converts note events into a MusicXML score.
	Notate(ctx context.Context, midiPath, outputDir string) (string, error)
	// Engrave renders the score into LilyPond source and a PDF page.
	Engrave(ctx context.Context, musicXMLPath, outputDir string) (lilypondPath, pdfPath string, err error)
	// Separate splits the audio into named instrument stems. It may
	// produce any subset of vocals/drums/bass/other.
	Separate(ctx context.Context, audioPath, outputDir string) (map[model.StemName]string, error)
}
