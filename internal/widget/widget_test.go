package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsWidgetDescriptor(t *testing.T) {
	d := MetricsWidget("metrics-widget")
	assert.Equal(t, "content-metrics", d.ID)
	assert.Equal(t, "metrics-widget.widget.metrics.title", d.TitleID)
	assert.Equal(t, "Content Metrics", d.DefaultTitle)
	assert.Equal(t, "/metrics-widget/count", d.Endpoint)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(MetricsWidget("b-plugin")))
	require.NoError(t, r.Register(MetricsWidget("a-plugin")))

	assert.Error(t, r.Register(MetricsWidget("a-plugin")))
	assert.Error(t, r.Register(Descriptor{ID: "x"}))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a-plugin", list[0].PluginID)
	assert.Equal(t, "b-plugin", list[1].PluginID)
}
