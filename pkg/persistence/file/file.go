// Package file provides file-based persistence for raw process models. Each model is one
// JSON or YAML document under <root>/models, named after the model id.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/persistence"
	"gopkg.in/yaml.v3"
)

const modelsDir = "models"

var extensions = []string{".json", ".yaml", ".yml"}

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// RawModels reads every model document, sorted by file name. A missing models directory
// holds no models.
func (fp *Persistence) RawModels(_ context.Context) ([]models.RawModel, error) {
	entries, err := os.ReadDir(fp.dir())
	if errors.Is(err, fs.ErrNotExist) {
		return []models.RawModel{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list model files: %w", err)
	}

	raws := make([]models.RawModel, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(extensions, filepath.Ext(entry.Name())) {
			continue
		}

		raw, err := ReadModel(filepath.Join(fp.dir(), entry.Name()))
		if err != nil {
			return nil, err
		}

		raws = append(raws, raw)
	}

	return raws, nil
}

// RawModelByID returns the model stored under id in any supported format.
func (fp *Persistence) RawModelByID(_ context.Context, id string) (models.RawModel, error) {
	path, ok := fp.find(id)
	if !ok {
		return models.RawModel{}, persistence.NewModelError("Get", id, persistence.ErrModelNotFound)
	}

	return ReadModel(path)
}

// SaveRawModel writes raw as indented JSON, replacing any previous document for the id.
func (fp *Persistence) SaveRawModel(_ context.Context, raw models.RawModel) error {
	if raw.ID == "" || strings.ContainsAny(raw.ID, `/\`) {
		return persistence.NewModelError("Save", raw.ID, persistence.ErrInvalidModel)
	}

	err := os.MkdirAll(fp.dir(), 0o750)
	if err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model %s: %w", raw.ID, err)
	}

	for _, ext := range extensions[1:] {
		_ = os.Remove(fp.path(raw.ID, ext))
	}

	err = os.WriteFile(fp.path(raw.ID, ".json"), data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write model %s: %w", raw.ID, err)
	}

	return nil
}

// DeleteRawModel removes the document for id.
func (fp *Persistence) DeleteRawModel(_ context.Context, id string) error {
	path, ok := fp.find(id)
	if !ok {
		return persistence.NewModelError("Delete", id, persistence.ErrModelNotFound)
	}

	err := os.Remove(path)
	if err != nil {
		return fmt.Errorf("failed to delete model %s: %w", id, err)
	}

	return nil
}

func (fp *Persistence) dir() string {
	return filepath.Join(fp.root, modelsDir)
}

func (fp *Persistence) path(id, ext string) string {
	return filepath.Join(fp.dir(), id+ext)
}

func (fp *Persistence) find(id string) (string, bool) {
	for _, ext := range extensions {
		path := fp.path(id, ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	return "", false
}

// ReadModel decodes one JSON or YAML model document.
func ReadModel(path string) (models.RawModel, error) {
	var raw models.RawModel

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return raw, fmt.Errorf("failed to read model file %s: %w", path, err)
	}

	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}

	if err != nil {
		return raw, persistence.NewModelError("Decode", filepath.Base(path), fmt.Errorf("%w: %w", persistence.ErrInvalidModel, err))
	}

	return raw, nil
}
