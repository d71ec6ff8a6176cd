// Package web provides HTTP request and response types for the engine API.
package web

import (
	"github.com/dukex/eca/pkg/models"
	"github.com/dukex/eca/pkg/workflow"
)

// ModelResponse summarizes a registered model.
type ModelResponse struct {
	ID          string                      `json:"id"`
	Label       string                      `json:"label"`
	Version     string                      `json:"version"`
	Enabled     bool                        `json:"enabled"`
	Weight      int                         `json:"weight"`
	Nodes       int                         `json:"nodes"`
	EntryPoints []string                    `json:"entry_points"`
	Wildcards   []models.WildcardIndexEntry `json:"wildcards"`
}

// ModelDetailResponse adds the raw definition to the summary.
type ModelDetailResponse struct {
	ModelResponse

	Definition models.RawModel `json:"definition"`
}

// TransformModelResponse builds the summary of a compiled model.
func TransformModelResponse(model *workflow.ProcessModel) ModelResponse {
	entryPoints := make([]string, 0, len(model.EntryPoints))
	for _, index := range model.EntryPoints {
		entryPoints = append(entryPoints, model.Nodes[index].ID)
	}

	wildcards := model.Wildcards
	if wildcards == nil {
		wildcards = []models.WildcardIndexEntry{}
	}

	return ModelResponse{
		ID:          model.ID,
		Label:       model.Label,
		Version:     model.Version,
		Enabled:     model.Enabled,
		Weight:      model.Weight,
		Nodes:       len(model.Nodes),
		EntryPoints: entryPoints,
		Wildcards:   wildcards,
	}
}

// QueueResponse reports the deferred task queue.
type QueueResponse struct {
	Pending int `json:"pending"`
}
