package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// FileEmbeddingSource loads the embedding table from a JSON file of the form
// {"item-id": [0.12, -0.3, ...], ...}.
type FileEmbeddingSource struct {
	path string
}

// NewFileEmbeddingSource creates a file-backed embedding source.
func NewFileEmbeddingSource(path string) *FileEmbeddingSource {
	return &FileEmbeddingSource{path: path}
}

// LoadEmbeddings reads and decodes the embedding table.
func (s *FileEmbeddingSource) LoadEmbeddings(_ context.Context) (map[string][]float32, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding table %s: %w", s.path, err)
	}
	var table map[string][]float32
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to decode embedding table %s: %w", s.path, err)
	}
	return table, nil
}

// LoadClusterTable reads the cluster membership table, a JSON object keyed by
// cluster ID: {"0": ["item-a", "item-b"], "1": [...]}.
// Parameters:
//   - path: JSON file path.
//
// Returns:
//   - map[int][]string: cluster ID -> member item IDs.
//   - error: non-nil if the file is missing, malformed, or a key is not an integer.
func LoadClusterTable(path string) (map[int][]string, error) {
	return loadIntKeyedTable(path, "cluster table")
}

// LoadTagTable reads the optional topic-tag table, a JSON object keyed by
// cluster ID: {"0": ["food", "meal"]}. A missing file yields an empty table;
// clusters without tags can then only be reached via persona preference or
// random fallback.
func LoadTagTable(path string) (map[int][]string, error) {
	if path == "" {
		return map[int][]string{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[int][]string{}, nil
	}
	return loadIntKeyedTable(path, "tag table")
}

func loadIntKeyedTable(path, what string) (map[int][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", what, path, err)
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", what, path, err)
	}
	out := make(map[int][]string, len(raw))
	for key, items := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%s %s: key %q is not a cluster id", what, path, key)
		}
		out[id] = items
	}
	return out, nil
}
