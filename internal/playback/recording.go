package playback

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/skywatch-oss/fusion-engine/internal/fsutil"
	"github.com/skywatch-oss/fusion-engine/internal/security"
)

// Recording is a named, ordered frame sequence persisted as one JSON
// file under the recordings directory.
type Recording struct {
	Name   string  `json:"name"`
	Frames []Frame `json:"frames"`
}

// RecordingStore reads and writes replay recordings under a single
// base directory, refusing paths that escape it.
type RecordingStore struct {
	fs      fsutil.FileSystem
	baseDir string
}

func NewRecordingStore(fs fsutil.FileSystem, baseDir string) *RecordingStore {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &RecordingStore{fs: fs, baseDir: baseDir}
}

func (s *RecordingStore) pathFor(name string) (string, error) {
	path := filepath.Join(s.baseDir, name+".json")
	if err := security.ValidatePathWithinDirectory(path, s.baseDir); err != nil {
		return "", fmt.Errorf("recording path %q: %w", name, err)
	}
	return path, nil
}

// Save writes the recording, ordering its frames by timestamp first.
func (s *RecordingStore) Save(r Recording) error {
	path, err := s.pathFor(r.Name)
	if err != nil {
		return err
	}
	sort.Slice(r.Frames, func(i, j int) bool {
		return r.Frames[i].Timestamp.Before(r.Frames[j].Timestamp)
	})
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.baseDir, 0o755); err != nil {
		return err
	}
	return s.fs.WriteFile(path, data, 0o644)
}

// Load reads a recording by name.
func (s *RecordingStore) Load(name string) (Recording, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return Recording{}, err
	}
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return Recording{}, fmt.Errorf("read recording %q: %w", name, err)
	}
	var r Recording
	if err := json.Unmarshal(data, &r); err != nil {
		return Recording{}, fmt.Errorf("decode recording %q: %w", name, err)
	}
	return r, nil
}
