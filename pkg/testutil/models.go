package testutil

import "github.com/dukex/eca/pkg/models"

// PingModel is a model reacting to custom:ping by logging "Pong!" on channel c2.
func PingModel(overrides ...func(*models.RawModel)) models.RawModel {
	raw := models.RawModel{
		ID:      "ping",
		Label:   "Ping",
		Version: "1",
		Enabled: true,
		Nodes: []models.RawNode{
			{
				ID:         "ping-event",
				Kind:       models.PluginKindEvent,
				Plugin:     "custom",
				Config:     map[string]string{"event_id": "ping"},
				Successors: []models.RawSuccessor{{Target: "pong"}},
			},
			{
				ID:     "pong",
				Kind:   models.PluginKindAction,
				Plugin: "log",
				Config: map[string]string{"message": "Pong!", "channel": "c2"},
			},
		},
	}

	for _, override := range overrides {
		override(&raw)
	}

	return raw
}

// Disabled turns the model off.
func Disabled() func(*models.RawModel) {
	return func(m *models.RawModel) {
		m.Enabled = false
	}
}

// WithID renames the model.
func WithID(id string) func(*models.RawModel) {
	return func(m *models.RawModel) {
		m.ID = id
	}
}
