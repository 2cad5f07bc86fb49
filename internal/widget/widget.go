// Package widget describes the dashboard widget and implements the client-side
// display: one fetch per mount, resolved into Loading, Error, Empty or
// Populated, and rendered as a two-column table.
package widget

import (
	"fmt"
	"sort"
	"sync"
)

// MetricsWidgetID identifies the content-metrics widget.
const MetricsWidgetID = "content-metrics"

// Descriptor is a widget registered with the admin dashboard.
type Descriptor struct {
	ID           string `json:"id"`
	PluginID     string `json:"plugin_id"`
	TitleID      string `json:"title_id"`
	DefaultTitle string `json:"default_title"`
	Icon         string `json:"icon,omitempty"`
	// Endpoint is the path the widget fetches, relative to the server root.
	Endpoint string `json:"endpoint"`
}

// MetricsWidget returns the descriptor of the content-metrics widget for a
// plugin.
func MetricsWidget(pluginID string) Descriptor {
	return Descriptor{
		ID:           MetricsWidgetID,
		PluginID:     pluginID,
		TitleID:      pluginID + ".widget.metrics.title",
		DefaultTitle: "Content Metrics",
		Icon:         "stethoscope",
		Endpoint:     "/" + pluginID + "/count",
	}
}

// Registry holds registered widgets keyed by plugin and widget id.
type Registry struct {
	mu      sync.RWMutex
	widgets map[string]Descriptor
}

// NewRegistry returns an empty widget registry.
func NewRegistry() *Registry {
	return &Registry{widgets: make(map[string]Descriptor)}
}

// Register adds d. Registering the same plugin/id pair twice is an error.
func (r *Registry) Register(d Descriptor) error {
	if d.ID == "" || d.PluginID == "" {
		return fmt.Errorf("widget requires id and plugin id")
	}
	key := d.PluginID + "/" + d.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.widgets[key]; dup {
		return fmt.Errorf("widget %s already registered", key)
	}
	r.widgets[key] = d
	return nil
}

// List returns the registered widgets ordered by plugin and id.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.widgets))
	for _, d := range r.widgets {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].PluginID != out[j].PluginID {
			return out[i].PluginID < out[j].PluginID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
