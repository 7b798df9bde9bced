package controller

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/nick-enoent/maestro/pkg/store"
	"github.com/nick-enoent/maestro/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDatastore is an in-memory store.Datastore used to drive the
// Controller without any network I/O or a real etcd cluster.
type fakeDatastore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeDatastore() *fakeDatastore {
	return &fakeDatastore{data: map[string]string{}}
}

func (f *fakeDatastore) Put(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeDatastore) PutBatch(ctx context.Context, kvs []store.KV) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, kv := range kvs {
		f.data[kv.Key] = kv.Value
	}
	return nil
}

func (f *fakeDatastore) Range(ctx context.Context, prefix string) ([]store.KV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.KV
	for k, v := range f.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, store.KV{Key: k, Value: v})
		}
	}
	return out, nil
}

func (f *fakeDatastore) DeleteRange(ctx context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
		}
	}
	return nil
}

func (f *fakeDatastore) Watch(ctx context.Context, prefix string) (<-chan store.WatchEvent, error) {
	ch := make(chan store.WatchEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (f *fakeDatastore) Close() error { return nil }

func sampleDescription() *topology.DesiredState {
	return &topology.DesiredState{
		Hosts: map[string]topology.Host{
			"orion-01": {Name: "orion-01", Addr: "10.0.0.1", Port: "10001", Xprt: "sock", Auth: topology.Auth{Name: "none"}},
		},
		AggregatorsByGroup: map[string]topology.AggregatorGroup{
			"group-a": {
				Group:       "group-a",
				Aggregators: []topology.Aggregator{{Name: "agg-01", Host: "orion-01"}},
			},
		},
		SamplersByKey:    map[string]topology.SamplerSpec{},
		ProducersByGroup: map[string][]topology.Producer{},
		UpdatersByGroup:  map[string][]topology.Updater{},
		StoresByGroup:    map[string][]topology.Store{},
	}
}

func TestControllerSaveWritesCommitSentinelLast(t *testing.T) {
	ds := newFakeDatastore()
	c := New("cluster1", ds, nil)

	require.NoError(t, c.save(context.Background(), sampleDescription()))

	kvs, err := ds.Range(context.Background(), "/cluster1")
	require.NoError(t, err)
	require.NotEmpty(t, kvs)

	found := false
	for _, kv := range kvs {
		if kv.Key == "/cluster1/last_updated" {
			found = true
			assert.NotEmpty(t, kv.Value)
		}
	}
	assert.True(t, found, "commit sentinel must be present after save")
}

func TestControllerSaveClearsPreviousState(t *testing.T) {
	ds := newFakeDatastore()
	c := New("cluster1", ds, nil)

	require.NoError(t, c.save(context.Background(), sampleDescription()))

	second := sampleDescription()
	delete(second.AggregatorsByGroup, "group-a")
	require.NoError(t, c.save(context.Background(), second))

	kvs, err := ds.Range(context.Background(), "/cluster1")
	require.NoError(t, err)
	for _, kv := range kvs {
		assert.NotContains(t, kv.Key, "group-a", "stale keys from the previous save must be cleared")
	}
}

func TestControllerLoadCurrentStateRoundTrips(t *testing.T) {
	ds := newFakeDatastore()
	c := New("cluster1", ds, nil)

	original := sampleDescription()
	require.NoError(t, c.save(context.Background(), original))

	loaded, err := c.loadCurrentState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, original.Hosts["orion-01"].Addr, loaded.Hosts["orion-01"].Addr)
	assert.Contains(t, loaded.AggregatorsByGroup, "group-a")
}

func TestSamplersChangedDetectsAddedSpec(t *testing.T) {
	prev := &topology.DesiredState{SamplersByKey: map[string]topology.SamplerSpec{}}
	next := &topology.DesiredState{SamplersByKey: map[string]topology.SamplerSpec{
		"meminfo": {NamesSpec: "meminfo", Plugins: []topology.PluginConfig{{Name: "meminfo"}}},
	}}
	assert.True(t, samplersChanged(prev, next))
}

func TestSamplersChangedFalseWhenUnchanged(t *testing.T) {
	spec := topology.SamplerSpec{NamesSpec: "meminfo", Plugins: []topology.PluginConfig{{Name: "meminfo"}}}
	prev := &topology.DesiredState{SamplersByKey: map[string]topology.SamplerSpec{"meminfo": spec}}
	next := &topology.DesiredState{SamplersByKey: map[string]topology.SamplerSpec{"meminfo": spec}}
	assert.False(t, samplersChanged(prev, next))
}
