package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const seriesFile = "game.json"

type seriesData struct {
	CurrentSeries int `json:"current_series"`
}

// FileStore keeps one JSON file per game plus game.json holding the series
// counter, all in one directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create persistence directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) SaveRecord(_ context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("record has no id")
	}
	return s.writeJSON(doc.ID+".json", doc)
}

func (s *FileStore) SaveSeries(_ context.Context, series int) error {
	return s.writeJSON(seriesFile, seriesData{CurrentSeries: series})
}

// LoadSeries returns the stored series counter, zero when none was saved.
func (s *FileStore) LoadSeries(_ context.Context) (int, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, seriesFile))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read series file: %w", err)
	}

	var sd seriesData
	if err := json.Unmarshal(data, &sd); err != nil {
		return 0, fmt.Errorf("decode series file: %w", err)
	}
	return sd.CurrentSeries, nil
}

func (s *FileStore) LoadRecord(id string) (Document, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return Document{}, fmt.Errorf("read game record %s: %w", id, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode game record %s: %w", id, err)
	}
	doc.ID = id
	return doc, nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
