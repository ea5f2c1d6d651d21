package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Artifacts is the on-disk home for everything except the catalog:
// transcripts, embedding indexes (file backend), per-video session
// caches, and scratch space for audio work. Writes go through a temp
// file plus rename so readers never see a partial JSON document.
type Artifacts struct {
	root string
	mu   sync.Mutex
}

func NewArtifacts(dataDir string) (*Artifacts, error) {
	a := &Artifacts{root: dataDir}
	for _, d := range []string{"transcripts", "embeddings", "sessions", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dataDir, d), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", d, err)
		}
	}
	return a, nil
}

func (a *Artifacts) TranscriptPath(videoID string) string {
	return filepath.Join(a.root, "transcripts", videoID+".json")
}

func (a *Artifacts) sessionPath(videoID, kind string) string {
	return filepath.Join(a.root, "sessions", videoID+"-"+kind+".json")
}

// ScratchDir returns a per-video temp directory for audio segments.
func (a *Artifacts) ScratchDir(videoID string) (string, error) {
	dir := filepath.Join(a.root, "tmp", videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// CleanScratch removes a video's temp directory and everything in it.
func (a *Artifacts) CleanScratch(videoID string) {
	os.RemoveAll(filepath.Join(a.root, "tmp", videoID))
}

// SaveJSON writes v to path atomically.
func (a *Artifacts) SaveJSON(path string, v any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return writeJSONAtomic(path, v)
}

// LoadJSON reads path into v. Returns (false, nil) when the file does
// not exist.
func (a *Artifacts) LoadJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func (a *Artifacts) SaveSession(videoID, kind string, v any) error {
	return a.SaveJSON(a.sessionPath(videoID, kind), v)
}

func (a *Artifacts) LoadSession(videoID, kind string, v any) (bool, error) {
	return a.LoadJSON(a.sessionPath(videoID, kind), v)
}

func (a *Artifacts) DeleteSessions(videoID string) error {
	entries, err := os.ReadDir(filepath.Join(a.root, "sessions"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), videoID+"-") {
			if err := os.Remove(filepath.Join(a.root, "sessions", e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Artifacts) DeleteTranscript(videoID string) error {
	err := os.Remove(a.TranscriptPath(videoID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
