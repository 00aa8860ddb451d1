// Package artifact manages the on-disk layout of uploads and pipeline
// outputs: uploads/<jobID><ext> for inputs and outputs/<jobID>/... for
// everything the stages produce.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/scoreaudio/api/internal/model"
)

var ErrNotFound = errors.New("artifact not found")

type Store struct {
	uploadDir string
	outputDir string
}

// New creates both directories if they do not exist yet.
func New(uploadDir, outputDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return &Store{uploadDir: uploadDir, outputDir: outputDir}, nil
}

// SaveUpload persists an uploaded file as uploads/<jobID><ext> and
// returns its path.
func (s *Store) SaveUpload(jobID, ext string, r io.Reader) (string, error) {
	path := filepath.Join(s.uploadDir, jobID+strings.ToLower(ext))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// JobDir returns outputs/<jobID>, creating it if needed. Each job gets
// its own directory so there is no cross-job write contention.
func (s *Store) JobDir(jobID string) (string, error) {
	dir := filepath.Join(s.outputDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job dir: %w", err)
	}
	return dir, nil
}

// Rel converts an absolute output path to its location relative to the
// output root, the form recorded in a job's artifact paths.
func (s *Store) Rel(path string) (string, error) {
	rel, err := filepath.Rel(s.outputDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s outside output root", path)
	}
	return filepath.ToSlash(rel), nil
}

// PathFor maps (recorded artifact paths, kind) to a relative location.
// Top-level kinds and stem kinds share the download vocabulary; stems
// live under their own namespace in the record.
func PathFor(paths *model.ArtifactPaths, kind string) (string, error) {
	if paths == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	switch model.ArtifactKind(kind) {
	case model.ArtifactMIDI:
		return present(paths.MIDI, kind)
	case model.ArtifactMusicXML:
		return present(paths.MusicXML, kind)
	case model.ArtifactLilyPond:
		return present(paths.LilyPond, kind)
	case model.ArtifactPDF:
		return present(paths.PDF, kind)
	}
	if model.IsStemName(kind) {
		if p, ok := paths.Stems[model.StemName(kind)]; ok && p != "" {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, kind)
}

// Resolve turns a recorded artifact kind into an absolute path for
// download. Fails with ErrNotFound when the record has no such kind or
// the file is missing on disk (partial writes from errored runs).
func (s *Store) Resolve(paths *model.ArtifactPaths, kind string) (string, error) {
	rel, err := PathFor(paths, kind)
	if err != nil {
		return "", err
	}

	abs := filepath.Join(s.outputDir, filepath.FromSlash(rel))
	// Recorded paths are produced by the pipeline, but keep downloads
	// confined to the output root regardless.
	if _, err := s.Rel(abs); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	return abs, nil
}

func present(path, kind string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	return path, nil
}
