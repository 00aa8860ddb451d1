package model

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}

// Artifact kinds (top-level outputs)
type ArtifactKind string

const (
	ArtifactMIDI     ArtifactKind = "midi"
	ArtifactMusicXML ArtifactKind = "musicxml"
	ArtifactLilyPond ArtifactKind = "lilypond"
	ArtifactPDF      ArtifactKind = "pdf"
)

// Stem names (nested under the stems namespace)
type StemName string

const (
	StemVocals StemName = "vocals"
	StemDrums  StemName = "drums"
	StemBass   StemName = "bass"
	StemOther  StemName = "other"
)

var ValidStemNames = []StemName{StemVocals, StemDrums, StemBass, StemOther}

// IsStemName reports whether a download kind refers to a separation stem.
func IsStemName(kind string) bool {
	for _, s := range ValidStemNames {
		if string(s) == kind {
			return true
		}
	}
	return false
}

// Accepted upload extensions, lowercase with leading dot.
var AllowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".mp4":  true,
	".mov":  true,
}
