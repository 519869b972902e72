package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore persists model artifacts on the filesystem, one directory per
// model: <baseDir>/models/<modelID>/model.json plus an optional
// trace.jsonl. Writes go through a temp file and rename, so concurrent
// use needs no locking and a crash never leaves a half-written artifact.
type FSStore struct {
	baseDir string
}

// NewFSStore opens a store rooted at baseDir, creating it if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the root directory the store writes under.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FSStore) modelDir(modelID string) string {
	return filepath.Join(fs.baseDir, "models", modelID)
}

func (fs *FSStore) modelPath(modelID string) string {
	return filepath.Join(fs.modelDir(modelID), "model.json")
}

// SaveModel writes an artifact atomically, replacing any previous one
// under the same ID.
func (fs *FSStore) SaveModel(modelID string, artifact *ModelArtifact) error {
	if modelID == "" {
		return fmt.Errorf("modelID cannot be empty")
	}
	if artifact == nil {
		return fmt.Errorf("artifact cannot be nil")
	}

	if err := os.MkdirAll(fs.modelDir(modelID), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize artifact: %w", err)
	}

	finalPath := fs.modelPath(modelID)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp model file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename model file: %w", err)
	}

	slog.Debug("Model saved", "modelID", modelID, "path", finalPath)
	return nil
}

// LoadModel reads the artifact saved under modelID, or a NotFoundError.
func (fs *FSStore) LoadModel(modelID string) (*ModelArtifact, error) {
	if modelID == "" {
		return nil, fmt.Errorf("modelID cannot be empty")
	}

	data, err := os.ReadFile(fs.modelPath(modelID))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ModelID: modelID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var artifact ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to deserialize artifact: %w", err)
	}

	slog.Debug("Model loaded", "modelID", modelID)
	return &artifact, nil
}

// ListModels collects metadata for every readable artifact. Directories
// without a model.json and artifacts that fail to parse are skipped with
// a warning rather than failing the whole listing.
func (fs *FSStore) ListModels() ([]ModelInfo, error) {
	modelsDir := filepath.Join(fs.baseDir, "models")

	entries, err := os.ReadDir(modelsDir)
	if os.IsNotExist(err) {
		return []ModelInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var infos []ModelInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		modelID := entry.Name()
		if _, err := os.Stat(fs.modelPath(modelID)); os.IsNotExist(err) {
			continue
		}
		artifact, err := fs.LoadModel(modelID)
		if err != nil {
			slog.Warn("Skipping unreadable model", "modelID", modelID, "error", err)
			continue
		}
		infos = append(infos, artifact.ToInfo())
	}

	slog.Debug("Listed models", "count", len(infos))
	return infos, nil
}

// DeleteModel removes a model's directory with its artifact and trace.
func (fs *FSStore) DeleteModel(modelID string) error {
	if modelID == "" {
		return fmt.Errorf("modelID cannot be empty")
	}

	modelDir := fs.modelDir(modelID)
	if _, err := os.Stat(modelDir); os.IsNotExist(err) {
		return &NotFoundError{ModelID: modelID}
	} else if err != nil {
		return fmt.Errorf("failed to stat model directory: %w", err)
	}

	if err := os.RemoveAll(modelDir); err != nil {
		return fmt.Errorf("failed to remove model directory: %w", err)
	}

	slog.Debug("Model deleted", "modelID", modelID)
	return nil
}
