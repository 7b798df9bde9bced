package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nick-enoent/maestro/pkg/communicator"
	"github.com/nick-enoent/maestro/pkg/log"
	"github.com/nick-enoent/maestro/pkg/reconcile"
	"github.com/nick-enoent/maestro/pkg/store"
	"github.com/nick-enoent/maestro/pkg/topology"
	"github.com/rs/zerolog"
)

// Controller runs the two §4.G entry points against one cluster. It owns
// the current DesiredState and the long-lived Communicator set; the
// Reconciler only borrows them for one pass at a time.
type Controller struct {
	prefix string
	ds     store.Datastore
	cache  *store.Cache

	mu     sync.Mutex
	state  *topology.DesiredState
	comms  *reconcile.CommunicatorSet
	recon  *reconcile.Reconciler
	queue  *reconcile.Queue
	log    zerolog.Logger
	stopCh chan struct{}
}

// New builds a Controller bound to a datastore and key prefix. cache may
// be nil if no local mirror is wanted.
func New(prefix string, ds store.Datastore, cache *store.Cache) *Controller {
	return &Controller{
		prefix: prefix,
		ds:     ds,
		cache:  cache,
		recon:  reconcile.New(),
		queue:  reconcile.NewQueue(),
		log:    log.WithComponent("controller"),
		stopCh: make(chan struct{}),
	}
}

// ConfigureOnce loads a declarative description, validates and expands it,
// and pushes it to the datastore as the new DesiredState (§4.G
// configure-once). It deletes every existing key under the prefix first,
// then re-emits the whole graph, finishing with the commit sentinel
// `last_updated` (§4.D).
func (c *Controller) ConfigureOnce(ctx context.Context, descriptionPath string) error {
	tree, err := topology.LoadDescription(descriptionPath)
	if err != nil {
		return fmt.Errorf("load description: %w", err)
	}

	state, err := topology.Load(tree)
	if err != nil {
		return fmt.Errorf("validate description: %w", err)
	}

	if err := c.save(ctx, state); err != nil {
		return err
	}

	c.log.Info().Str("prefix", c.prefix).Msg("configuration saved")
	return nil
}

// save deletes every key under the prefix and re-emits state, per §4.D's
// write rule. The final key written is always last_updated, the atomic
// commit point watchers observe (§8 property 6).
func (c *Controller) save(ctx context.Context, state *topology.DesiredState) error {
	if err := c.ds.DeleteRange(ctx, "/"+c.prefix+"/"); err != nil {
		return fmt.Errorf("clear prefix: %w", err)
	}

	sentinelKey := "/" + c.prefix + "/last_updated"
	nowNano := nowUnixNano()
	state.LastUpdated = time.Unix(0, nowNano)

	node := store.ToNode(state)
	kvs := store.Walk("/"+c.prefix, node)

	var body []store.KV
	for _, kv := range kvs {
		if kv.Key != sentinelKey {
			body = append(body, kv)
		}
	}

	if err := c.ds.PutBatch(ctx, body); err != nil {
		return fmt.Errorf("write keys: %w", err)
	}

	commitTime := fmt.Sprintf("%.6f", float64(nowNano)/1e9)
	if err := c.ds.Put(ctx, sentinelKey, commitTime); err != nil {
		return fmt.Errorf("write commit sentinel: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Save(state); err != nil {
			c.log.Warn().Err(err).Msg("failed to update local cache")
		}
	}

	return nil
}

// nowUnixNano is the one place the controller reads wall-clock time, kept
// as a seam so tests can substitute a fixed clock if ever needed.
var nowUnixNano = func() int64 { return time.Now().UnixNano() }

// MonitorForever runs the persistent control loop (§4.G monitor-forever):
// load the current DesiredState, optionally spawn aggregator daemons, open
// a Communicator per peer, watch the datastore for changes, and reconcile
// at 1 Hz whenever something has changed since the last pass.
func (c *Controller) MonitorForever(ctx context.Context, startAggregators bool, logDir string) error {
	state, err := c.loadCurrentState(ctx)
	if err != nil {
		return fmt.Errorf("load current state: %w", err)
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	if startAggregators {
		c.spawnAggregators(state, logDir)
	}

	comms, err := c.openCommunicators(state)
	if err != nil {
		return fmt.Errorf("open communicators: %w", err)
	}
	c.comms = comms

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	events, err := c.ds.Watch(watchCtx, "/"+c.prefix+"/last_updated")
	if err != nil {
		return fmt.Errorf("watch datastore: %w", err)
	}
	go c.watchLoop(events)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	c.log.Info().Str("prefix", c.prefix).Msg("monitor started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stopCh:
			return nil
		case <-ticker.C:
			c.runPass(ctx, false)
		case change := <-c.queue.C():
			_ = change
			c.runPass(ctx, true)
			c.queue.Ack()
		}
	}
}

// Stop ends MonitorForever's loop.
func (c *Controller) Stop() {
	close(c.stopCh)
}

func (c *Controller) watchLoop(events <-chan store.WatchEvent) {
	for ev := range events {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error().Interface("panic", r).Msg("watch callback panicked")
				}
			}()
			c.handleChange(ev)
		}()
	}
}

// handleChange re-reflects the DesiredState and invokes the one required
// per-section handler: samplers restart on change (§4.G.4). Every other
// section is a no-op here because the reconciler re-reads and re-applies
// on every tick regardless.
func (c *Controller) handleChange(ev store.WatchEvent) {
	ctx := context.Background()
	log := c.log.With().Str("change_id", ev.ID).Logger()

	state, err := c.loadCurrentState(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to re-load desired state on change")
		return
	}

	c.mu.Lock()
	prev := c.state
	c.state = state
	c.mu.Unlock()

	if prev != nil && samplersChanged(prev, state) {
		c.restartSamplers(ctx, state)
	}

	log.Debug().Str("key", ev.Key).Msg("datastore change queued for next pass")
	c.queue.Notify(reconcile.Change{Kind: reconcile.ChangeDatastore, ID: ev.ID})
}

func samplersChanged(prev, next *topology.DesiredState) bool {
	if len(prev.SamplersByKey) != len(next.SamplersByKey) {
		return true
	}
	for key, spec := range next.SamplersByKey {
		prevSpec, ok := prev.SamplersByKey[key]
		if !ok || len(prevSpec.Plugins) != len(spec.Plugins) {
			return true
		}
	}
	return false
}

func (c *Controller) restartSamplers(ctx context.Context, state *topology.DesiredState) {
	c.mu.Lock()
	comms := c.comms
	c.mu.Unlock()
	if comms == nil {
		return
	}
	for _, spec := range state.SamplersByKey {
		for _, host := range spec.Hosts {
			comm, ok := comms.Samplers[host]
			if !ok {
				continue
			}
			if err := comm.Reconnect(ctx); err != nil {
				c.log.Warn().Err(err).Str("host", host).Msg("sampler reconnect failed on restart")
			}
		}
	}
}

func (c *Controller) runPass(ctx context.Context, changed bool) {
	c.mu.Lock()
	state := c.state
	comms := c.comms
	c.mu.Unlock()
	if state == nil || comms == nil {
		return
	}
	if err := c.recon.Pass(ctx, state, comms, changed); err != nil {
		c.log.Error().Err(err).Msg("reconciliation pass failed")
	}
}

// loadCurrentState reads every key under the prefix and reflects it back
// into a DesiredState (§4.D read path).
func (c *Controller) loadCurrentState(ctx context.Context) (*topology.DesiredState, error) {
	kvs, err := c.ds.Range(ctx, "/"+c.prefix)
	if err != nil {
		if c.cache != nil {
			if cached, cacheErr := c.cache.Load(); cacheErr == nil && cached != nil {
				c.log.Warn().Err(err).Msg("datastore unreachable, falling back to local cache")
				return cached, nil
			}
		}
		return nil, err
	}

	node := store.Reflect(kvs)
	root := node.Map[c.prefix]
	state, err := store.FromNode(root)
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Controller) spawnAggregators(state *topology.DesiredState, logDir string) {
	for _, group := range state.AggregatorsByGroup {
		for _, agg := range group.Aggregators {
			host, ok := state.Hosts[agg.Host]
			if !ok {
				c.log.Warn().Str("aggregator", agg.Name).Str("host", agg.Host).Msg("aggregator references unknown host, skipping spawn")
				continue
			}
			if err := SpawnAggregator(agg, host, logDir); err != nil {
				c.log.Error().Err(err).Str("aggregator", agg.Name).Msg("failed to spawn aggregator daemon")
			}
		}
	}
}

func (c *Controller) openCommunicators(state *topology.DesiredState) (*reconcile.CommunicatorSet, error) {
	comms := &reconcile.CommunicatorSet{
		Aggregators: map[string]communicator.Communicator{},
		Samplers:    map[string]communicator.Communicator{},
	}

	for _, group := range state.AggregatorsByGroup {
		for _, agg := range group.Aggregators {
			host, ok := state.Hosts[agg.Host]
			if !ok {
				continue
			}
			comm, err := communicator.New(host.Xprt, host.Addr, host.Port, host.Auth.Name, host.Auth.Config)
			if err != nil {
				return nil, fmt.Errorf("aggregator %s: %w", agg.Name, err)
			}
			comms.Aggregators[agg.Name] = comm
		}
	}

	for _, spec := range state.SamplersByKey {
		for _, hostName := range spec.Hosts {
			if _, exists := comms.Samplers[hostName]; exists {
				continue
			}
			host, ok := state.Hosts[hostName]
			if !ok {
				continue
			}
			comm, err := communicator.New(host.Xprt, host.Addr, host.Port, host.Auth.Name, host.Auth.Config)
			if err != nil {
				return nil, fmt.Errorf("sampler host %s: %w", hostName, err)
			}
			comms.Samplers[hostName] = comm
		}
	}

	return comms, nil
}
