package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ibeckermayer/naverpost/internal/config"
)

// Kind identifies a family of run artifacts; each gets its own folder.
type Kind string

const (
	KindReports     Kind = "reports"
	KindScreenshots Kind = "screenshots"
)

// Cache writes run artifacts under a root directory.
type Cache struct {
	root string
	now  func() time.Time
}

// NewCache returns a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{root: dir, now: time.Now}
}

// DefaultCache returns a cache in the platform cache directory.
func DefaultCache() (*Cache, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return nil, err
	}
	return NewCache(cacheDir), nil
}

// Dir returns the folder for kind.
func (c *Cache) Dir(kind Kind) string {
	return filepath.Join(c.root, string(kind))
}

// generateFilename creates a timestamped filename tagged with the run id.
func (c *Cache) generateFilename(runID, ext string) string {
	name := c.now().Format("2006-01-02T15-04-05")
	if runID != "" {
		name += "_" + runID
	}
	return name + ext
}

// SaveBytes writes raw content (a PNG, an HTML page) for a run.
// Returns the path to the saved file.
func (c *Cache) SaveBytes(kind Kind, runID string, content []byte, ext string) (string, error) {
	dir := c.Dir(kind)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	path := filepath.Join(dir, c.generateFilename(runID, ext))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s artifact: %w", kind, err)
	}
	return path, nil
}

// SaveJSON saves JSON-serializable data for a run.
func SaveJSON[T any](c *Cache, kind Kind, runID string, data T) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s artifact: %w", kind, err)
	}
	return c.SaveBytes(kind, runID, jsonData, ".json")
}

// LoadJSON loads JSON data from a specific file path.
func LoadJSON[T any](path string) (T, error) {
	var data T

	jsonData, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("failed to read artifact: %w", err)
	}

	if err := json.Unmarshal(jsonData, &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}

	return data, nil
}

// Latest returns the newest artifact of kind with the given extension.
func (c *Cache) Latest(kind Kind, ext string) (string, error) {
	dir := c.Dir(kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no cached %s", kind)
		}
		return "", err
	}

	// os.ReadDir sorts by name, which is chronological for our timestamps
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ext {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return "", fmt.Errorf("no cached %s", kind)
	}

	return filepath.Join(dir, files[len(files)-1]), nil
}
