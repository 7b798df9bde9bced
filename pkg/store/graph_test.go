package store

import (
	"testing"
	"time"

	"github.com/nick-enoent/maestro/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDesiredState() *topology.DesiredState {
	return &topology.DesiredState{
		Hosts: map[string]topology.Host{
			"orion-01": {
				Name: "orion-01", Addr: "10.0.0.1", Port: "10001", Xprt: "sock",
				Auth: topology.Auth{Name: "munge", Config: map[string]string{"path": "/etc/munge"}},
			},
		},
		AggregatorsByGroup: map[string]topology.AggregatorGroup{
			"group-a": {
				Group: "group-a",
				Aggregators: []topology.Aggregator{
					{Name: "agg-01", Host: "orion-01", State: topology.AggregatorReady},
				},
			},
		},
		SamplersByKey: map[string]topology.SamplerSpec{
			"orion-[01-02]": {
				NamesSpec: "orion-[01-02]",
				Hosts:     []string{"orion-01", "orion-02"},
				Plugins: []topology.PluginConfig{
					{Name: "meminfo", Interval: "1.0s:0ms", Params: map[string]string{"producer": "orion-01"}},
				},
			},
		},
		ProducersByGroup: map[string][]topology.Producer{
			"group-a": {
				{Name: "prod-01", Host: "orion-01", Group: "group-a", Type: topology.ProducerActive, Reconnect: "20s", Updaters: []string{"upd-01"}},
			},
		},
		UpdatersByGroup: map[string][]topology.Updater{
			"group-a": {
				{
					Name: "upd-01", Group: "group-a", Interval: "1s",
					Sets:      []topology.UpdaterSet{{Regex: ".*", Field: "schema"}},
					Producers: []topology.UpdaterProducerMatch{{Regex: "prod-.*"}},
					Auto:      "true",
				},
			},
		},
		StoresByGroup: map[string][]topology.Store{
			"group-a": {
				{
					Name: "store-01", Group: "group-a", Container: "container1", Schema: "meminfo",
					Plugin: topology.StorePlugin{Name: "store_csv", Config: map[string]string{"path": "/data"}},
				},
			},
		},
		LastUpdated: time.Unix(1700000000, 0),
	}
}

func TestToNodeFromNodeRoundTrip(t *testing.T) {
	orig := sampleDesiredState()

	node := ToNode(orig)
	kvs := Walk("cluster1", node)
	rebuiltNode := Reflect(kvs)

	// Strip the prefix segment back off before converting back to a graph.
	stripped := rebuiltNode.Map["cluster1"]
	require.NotNil(t, stripped)

	rebuilt, err := FromNode(stripped)
	require.NoError(t, err)

	assert.Equal(t, orig.Hosts, rebuilt.Hosts)
	assert.Equal(t, orig.AggregatorsByGroup, rebuilt.AggregatorsByGroup)
	assert.Equal(t, orig.SamplersByKey, rebuilt.SamplersByKey)
	assert.Equal(t, orig.ProducersByGroup, rebuilt.ProducersByGroup)
	assert.Equal(t, orig.UpdatersByGroup, rebuilt.UpdatersByGroup)
	assert.Equal(t, orig.StoresByGroup, rebuilt.StoresByGroup)
	assert.WithinDuration(t, orig.LastUpdated, rebuilt.LastUpdated, time.Microsecond)
}

func TestFromNodeNilReturnsEmptyState(t *testing.T) {
	state, err := FromNode(nil)
	require.NoError(t, err)
	assert.Empty(t, state.Hosts)
	assert.Empty(t, state.AggregatorsByGroup)
}
