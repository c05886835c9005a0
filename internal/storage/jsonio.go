package storage

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// WriteJSON writes doc to dir/name.json through a temp file and rename
func WriteJSON(doc any, dir, name string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := writeTemp(doc, dir, name)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(dir, name+jsonExt)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}

// ReadJSON loads dir/name.json as a document
func ReadJSON(dir, name string) (Document, error) {
	data, err := os.ReadFile(filepath.Join(dir, name+jsonExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s holds no object", ErrTypeMismatch, name)
	}
	return doc, nil
}

// writeTemp marshals doc into dir/name.json.tmp and returns its path
func writeTemp(doc any, dir, name string) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	path := filepath.Join(dir, name+jsonExt+tmpExt)
	if err := os.WriteFile(path, data, 0644); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}
