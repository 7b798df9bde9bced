package reconcile

import (
	"context"
	"testing"

	"github.com/nick-enoent/maestro/pkg/communicator"
	"github.com/nick-enoent/maestro/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCommunicator is a scriptable in-memory Communicator used to drive
// the reconciler without any network I/O.
type fakeCommunicator struct {
	state         communicator.State
	daemonState   string
	producers     []communicator.ProducerStatus
	addedCalls    []string
	startedCalls  []string
	stoppedCalls  []string
	pluginsLoaded []string
}

func newFakeCommunicator(daemonState string) *fakeCommunicator {
	return &fakeCommunicator{state: communicator.StateDisconnected, daemonState: daemonState}
}

func (f *fakeCommunicator) Connect(ctx context.Context) error   { f.state = communicator.StateConnected; return nil }
func (f *fakeCommunicator) Reconnect(ctx context.Context) error { f.state = communicator.StateConnected; return nil }
func (f *fakeCommunicator) Close() error                        { f.state = communicator.StateDisconnected; return nil }
func (f *fakeCommunicator) State() communicator.State            { return f.state }

func (f *fakeCommunicator) DaemonStatus(ctx context.Context) (string, error) {
	return f.daemonState, nil
}

func (f *fakeCommunicator) ProducerStatus(ctx context.Context) ([]communicator.ProducerStatus, error) {
	return f.producers, nil
}

func (f *fakeCommunicator) ProducerAdd(ctx context.Context, name, typ, xprt, addr, port string, reconnectMicros int64) error {
	f.addedCalls = append(f.addedCalls, name)
	f.producers = append(f.producers, communicator.ProducerStatus{Name: name, State: "stopped"})
	return nil
}

func (f *fakeCommunicator) ProducerStart(ctx context.Context, name string) error {
	f.startedCalls = append(f.startedCalls, name)
	for i, p := range f.producers {
		if p.Name == name {
			f.producers[i].State = "running"
		}
	}
	return nil
}

func (f *fakeCommunicator) ProducerStop(ctx context.Context, name string) error {
	f.stoppedCalls = append(f.stoppedCalls, name)
	for i, p := range f.producers {
		if p.Name == name {
			f.producers[i].State = "stopped"
		}
	}
	return nil
}

func (f *fakeCommunicator) UpdaterAdd(ctx context.Context, name, interval string, auto, push string) error {
	return nil
}
func (f *fakeCommunicator) UpdaterProducerAdd(ctx context.Context, updater, producerRegex string) error {
	return nil
}
func (f *fakeCommunicator) UpdaterMatchAdd(ctx context.Context, updater, setRegex, matchField string) error {
	return nil
}
func (f *fakeCommunicator) UpdaterStart(ctx context.Context, name string) error { return nil }

func (f *fakeCommunicator) PluginLoad(ctx context.Context, name string) error {
	f.pluginsLoaded = append(f.pluginsLoaded, name)
	return nil
}
func (f *fakeCommunicator) PluginConfig(ctx context.Context, name string, params map[string]string) error {
	return nil
}
func (f *fakeCommunicator) PluginStop(ctx context.Context, name string) error { return nil }

func (f *fakeCommunicator) SamplerStart(ctx context.Context, plugin, interval string) error {
	return nil
}
func (f *fakeCommunicator) SamplerStatus(ctx context.Context, plugin string) (string, error) {
	return "running", nil
}

func (f *fakeCommunicator) StorePolicyAdd(ctx context.Context, name, plugin, container, schema string) error {
	return nil
}
func (f *fakeCommunicator) StorePolicyProducerAdd(ctx context.Context, name, producerRegex string) error {
	return nil
}
func (f *fakeCommunicator) StorePolicyStart(ctx context.Context, name string) error { return nil }

func sampleState() *topology.DesiredState {
	return &topology.DesiredState{
		Hosts: map[string]topology.Host{
			// 127.0.0.1 with an unused port refuses the reachability probe's
			// dial immediately instead of timing out, keeping the test fast.
			"orion-01": {Name: "orion-01", Addr: "127.0.0.1", Port: "1", Xprt: "sock"},
		},
		AggregatorsByGroup: map[string]topology.AggregatorGroup{
			"group-a": {
				Group: "group-a",
				Aggregators: []topology.Aggregator{
					{Name: "agg-01", Host: "orion-01"},
				},
			},
		},
		ProducersByGroup: map[string][]topology.Producer{
			"group-a": {
				{Name: "prod-01", Host: "orion-01", Group: "group-a", Type: topology.ProducerActive, Reconnect: "20s"},
			},
		},
	}
}

func TestPassAddsAndStartsNewProducer(t *testing.T) {
	state := sampleState()
	agg := newFakeCommunicator("ready")
	comms := &CommunicatorSet{Aggregators: map[string]communicator.Communicator{"agg-01": agg}}

	r := New()
	err := r.Pass(context.Background(), state, comms, true)
	require.NoError(t, err)

	assert.Contains(t, agg.addedCalls, "prod-01")
	assert.Contains(t, agg.startedCalls, "prod-01")
}

func TestPassStopsUnassignedProducer(t *testing.T) {
	state := sampleState()
	state.ProducersByGroup["group-a"] = nil // no producers declared anymore

	agg := newFakeCommunicator("ready")
	agg.producers = []communicator.ProducerStatus{{Name: "prod-old", State: "running"}}
	comms := &CommunicatorSet{Aggregators: map[string]communicator.Communicator{"agg-01": agg}}

	r := New()
	err := r.Pass(context.Background(), state, comms, true)
	require.NoError(t, err)

	assert.Contains(t, agg.stoppedCalls, "prod-old")
}

func TestPassSkipsUnreachableAggregator(t *testing.T) {
	state := sampleState()
	comms := &CommunicatorSet{Aggregators: map[string]communicator.Communicator{}}

	r := New()
	err := r.Pass(context.Background(), state, comms, true)
	require.NoError(t, err)
}

func TestPassIsIdempotentWhenNothingChanged(t *testing.T) {
	state := sampleState()
	agg := newFakeCommunicator("ready")
	comms := &CommunicatorSet{Aggregators: map[string]communicator.Communicator{"agg-01": agg}}

	r := New()
	require.NoError(t, r.Pass(context.Background(), state, comms, true))
	firstAdds := len(agg.addedCalls)

	require.NoError(t, r.Pass(context.Background(), state, comms, false))
	assert.Equal(t, firstAdds, len(agg.addedCalls), "second pass with no change should not re-add producers")
}
