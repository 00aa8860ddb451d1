package model

import "time"

// Job is the unit of orchestration: one uploaded file tracked from
// upload to terminal state. Mutated only through the registry.
type Job struct {
	ID             string               `json:"jobId"`
	Status         JobStatus            `json:"status"`
	Progress       int                  `json:"progress"`
	CurrentStep    string               `json:"currentStep,omitempty"`
	SourceFileName string               `json:"fileName"`
	SourceFilePath string               `json:"-"`
	CreatedAt      time.Time            `json:"createdAt"`
	Error          *string              `json:"error,omitempty"`
	Result         *TranscriptionResult `json:"result,omitempty"`
	Artifacts      *ArtifactPaths       `json:"-"`
}

// ArtifactPaths maps artifact kinds to locations relative to the output
// root. Stem entries exist only for stems the separation stage produced.
type ArtifactPaths struct {
	MIDI     string              `json:"midi"`
	MusicXML string              `json:"musicxml"`
	LilyPond string              `json:"lilypond"`
	PDF      string              `json:"pdf"`
	Stems    map[StemName]string `json:"stems,omitempty"`
}

// JobStatusResponse is the polling payload for GET /api/status/:jobId.
type JobStatusResponse struct {
	JobID       string    `json:"jobId"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"currentStep,omitempty"`
	Error       *string   `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CancelResponse confirms a cancellation request.
type CancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}
