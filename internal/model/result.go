package model

import "time"

// Analysis holds the structured output of the audio-analysis stage.
type Analysis struct {
	BPM           int     `json:"bpm"`
	Key           string  `json:"key"`
	TimeSignature string  `json:"timeSignature"`
	Duration      float64 `json:"duration"`
	AvgPitch      float64 `json:"avgPitch"`
	PitchRange    float64 `json:"pitchRange"`
	KeyStability  float64 `json:"keyStability"`
	ModeMajor     int     `json:"modeMajor"`
	NoteDensity   float64 `json:"noteDensity"`
	RhythmVariety float64 `json:"rhythmVariety"`
}

// OriginalFile describes the uploaded input as recorded at completion.
type OriginalFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
	Duration string `json:"duration"`
}

// OutputLinks maps artifact kinds to retrieval handles. Links point at
// the download endpoint, or at public object-storage URLs when a mirror
// is configured. Stem entries exist only for stems actually produced.
type OutputLinks struct {
	MIDI     string              `json:"midi"`
	MusicXML string              `json:"musicxml"`
	LilyPond string              `json:"lilypond"`
	PDF      string              `json:"pdf"`
	Stems    map[StemName]string `json:"stems"`
}

// TranscriptionResult is the structured summary returned for a
// completed job via GET /api/result/:jobId.
type TranscriptionResult struct {
	JobID        string       `json:"jobId"`
	OriginalFile OriginalFile `json:"originalFile"`
	Analysis     Analysis     `json:"analysis"`
	Outputs      OutputLinks  `json:"outputs"`
	CreatedAt    time.Time    `json:"createdAt"`
}
