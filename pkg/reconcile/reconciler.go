package reconcile

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/nick-enoent/maestro/pkg/communicator"
	"github.com/nick-enoent/maestro/pkg/log"
	"github.com/nick-enoent/maestro/pkg/metrics"
	"github.com/nick-enoent/maestro/pkg/reachability"
	"github.com/nick-enoent/maestro/pkg/topology"
	"github.com/rs/zerolog"
)

// CommunicatorSet is the long-lived set of peer connections the Controller
// owns and the Reconciler borrows for the duration of one pass (§3). It is
// keyed by aggregator name for aggregator daemons and by host name for
// sampler daemons, since a SamplerSpec addresses hosts directly while an
// AggregatorGroup addresses named aggregators.
type CommunicatorSet struct {
	Aggregators map[string]communicator.Communicator
	Samplers    map[string]communicator.Communicator
}

// Reconciler drives the fleet toward a DesiredState (§4.F). It is safe for
// exactly one Pass to run at a time; the caller (the Controller) is
// responsible for serializing Pass with datastore-watch handling (§5).
type Reconciler struct {
	mu           sync.Mutex
	prevAggState map[string]topology.AggregatorState
	reach        map[string]*reachability.Status
	prober       *reachability.Prober
	reachCfg     reachability.Config
	log          zerolog.Logger
}

// New returns a Reconciler with no prior pass recorded.
func New() *Reconciler {
	return &Reconciler{
		prevAggState: map[string]topology.AggregatorState{},
		reach:        map[string]*reachability.Status{},
		prober:       reachability.NewProber(),
		reachCfg:     reachability.DefaultConfig(),
		log:          log.WithComponent("reconcile"),
	}
}

// Pass runs one full reconciliation cycle against state using comms.
// changed tells Pass whether a datastore change event arrived since the
// last pass (§4.F.2); the pass still runs the health sweep regardless, but
// skips load-balance/apply work when nothing has changed and aggregator
// state is identical to the previous pass.
func (r *Reconciler) Pass(ctx context.Context, state *topology.DesiredState, comms *CommunicatorSet, changed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	aggState := r.healthSweep(ctx, state, comms)
	r.reportAggregatorMetrics(state, aggState)

	mustRebalance := changed || !reflect.DeepEqual(aggState, r.prevAggState)
	r.prevAggState = aggState

	if !mustRebalance {
		return nil
	}
	metrics.RebalanceTotal.Inc()

	assignments := map[string]map[string][]string{}
	for group, aggGroup := range state.AggregatorsByGroup {
		ready := ReadyAggregators(aggGroup, aggState)
		if len(ready) == 0 {
			continue
		}
		assignments[group] = Balance(ready, state.ProducersByGroup[group])
	}

	r.samplerBringUp(ctx, state, comms)
	r.producerFanOut(ctx, state, comms)
	r.updaterApply(ctx, state, comms)
	r.storeApply(ctx, state, comms)
	r.producerStartStop(ctx, state, comms, assignments)

	return nil
}

// healthSweep ensures each aggregator's Communicator is connected and
// records its reported state, marking unreachable peers stopped (§4.F.1).
func (r *Reconciler) healthSweep(ctx context.Context, state *topology.DesiredState, comms *CommunicatorSet) map[string]topology.AggregatorState {
	out := map[string]topology.AggregatorState{}
	for _, group := range state.AggregatorsByGroup {
		for _, agg := range group.Aggregators {
			comm, ok := comms.Aggregators[agg.Name]
			if !ok {
				out[agg.Name] = topology.AggregatorStopped
				continue
			}

			if host, ok := state.Hosts[agg.Host]; ok {
				status := r.reach[agg.Name]
				if status == nil {
					status = reachability.NewStatus()
					r.reach[agg.Name] = status
				}
				result := r.prober.Probe(ctx, host.Addr+":"+host.Port)
				status.Update(result, r.reachCfg)
				if !status.Healthy {
					r.log.Warn().Str("aggregator", agg.Name).Str("reason", result.Message).Msg("aggregator unreachable, skipping RPC")
					out[agg.Name] = topology.AggregatorStopped
					continue
				}
			}

			if comm.State() != communicator.StateConnected {
				if err := comm.Reconnect(ctx); err != nil {
					r.log.Warn().Err(err).Str("aggregator", agg.Name).Msg("reconnect failed")
					out[agg.Name] = topology.AggregatorStopped
					continue
				}
			}

			reported, err := comm.DaemonStatus(ctx)
			if err != nil {
				r.log.Warn().Err(err).Str("aggregator", agg.Name).Msg("daemon_status failed")
				out[agg.Name] = topology.AggregatorStopped
				continue
			}
			out[agg.Name] = topology.AggregatorState(reported)
		}
	}
	return out
}

func (r *Reconciler) reportAggregatorMetrics(state *topology.DesiredState, aggState map[string]topology.AggregatorState) {
	counts := map[[2]string]int{}
	for _, group := range state.AggregatorsByGroup {
		for _, agg := range group.Aggregators {
			s := string(aggState[agg.Name])
			counts[[2]string{group.Group, s}]++
		}
	}
	for key, n := range counts {
		metrics.AggregatorsTotal.WithLabelValues(key[0], key[1]).Set(float64(n))
	}
}

// samplerBringUp connects to every sampler daemon and loads/configures/
// starts its plugins (§4.F.4). A per-host failure aborts only that host.
func (r *Reconciler) samplerBringUp(ctx context.Context, state *topology.DesiredState, comms *CommunicatorSet) {
	for _, spec := range state.SamplersByKey {
		for _, host := range spec.Hosts {
			comm, ok := comms.Samplers[host]
			if !ok {
				continue
			}
			if comm.State() != communicator.StateConnected {
				if err := comm.Reconnect(ctx); err != nil {
					r.log.Warn().Err(err).Str("host", host).Msg("sampler reconnect failed")
					continue
				}
			}

			aborted := false
			for _, plugin := range spec.Plugins {
				if err := comm.PluginLoad(ctx, plugin.Name); err != nil {
					r.log.Warn().Err(err).Str("host", host).Str("plugin", plugin.Name).Msg("plugn_load failed")
					aborted = true
					break
				}
				params := map[string]string{}
				for k, v := range plugin.Params {
					params[k] = v
				}
				params["producer"] = host
				params["instance"] = fmt.Sprintf("%s/%s", host, plugin.Name)
				if err := comm.PluginConfig(ctx, plugin.Name, params); err != nil {
					r.log.Warn().Err(err).Str("host", host).Str("plugin", plugin.Name).Msg("plugn_config failed")
					aborted = true
					break
				}
				if err := comm.SamplerStart(ctx, plugin.Name, plugin.Interval); err != nil {
					r.log.Warn().Err(err).Str("host", host).Str("plugin", plugin.Name).Msg("smplr_start failed")
					aborted = true
					break
				}
			}
			if aborted {
				continue
			}
		}
	}
}

// producerFanOut adds every desired producer to every aggregator of its
// target group that does not already report it (§4.F.5).
func (r *Reconciler) producerFanOut(ctx context.Context, state *topology.DesiredState, comms *CommunicatorSet) {
	for group, producers := range state.ProducersByGroup {
		aggGroup, ok := state.AggregatorsByGroup[group]
		if !ok {
			continue
		}
		for _, agg := range aggGroup.Aggregators {
			comm, ok := comms.Aggregators[agg.Name]
			if !ok || comm.State() != communicator.StateConnected {
				continue
			}

			existing, err := comm.ProducerStatus(ctx)
			if err != nil {
				r.log.Warn().Err(err).Str("aggregator", agg.Name).Msg("prdcr_status failed")
				continue
			}
			have := map[string]bool{}
			for _, p := range existing {
				have[p.Name] = true
			}

			for _, p := range producers {
				if have[p.Name] {
					continue
				}
				host, ok := state.Hosts[p.Host]
				if !ok {
					continue
				}
				reconnectMicros, err := topology.ParseInterval(p.Reconnect)
				if err != nil {
					r.log.Warn().Err(err).Str("producer", p.Name).Msg("invalid reconnect interval")
					continue
				}
				if err := comm.ProducerAdd(ctx, p.Name, string(p.Type), host.Xprt, host.Addr, host.Port, reconnectMicros); err != nil {
					r.log.Warn().Err(err).Str("aggregator", agg.Name).Str("producer", p.Name).Msg("prdcr_add failed")
					metrics.CommandsTotal.WithLabelValues("prdcr_add", "error").Inc()
					continue
				}
				metrics.CommandsTotal.WithLabelValues("prdcr_add", "ok").Inc()
			}
		}
	}
}

// updaterApply applies every updater in every group (§4.F.6).
func (r *Reconciler) updaterApply(ctx context.Context, state *topology.DesiredState, comms *CommunicatorSet) {
	for group, updaters := range state.UpdatersByGroup {
		aggGroup, ok := state.AggregatorsByGroup[group]
		if !ok {
			continue
		}
		for _, agg := range aggGroup.Aggregators {
			comm, ok := comms.Aggregators[agg.Name]
			if !ok || comm.State() != communicator.StateConnected {
				continue
			}
			for _, u := range updaters {
				if err := comm.UpdaterAdd(ctx, u.Name, u.Interval, u.Auto, u.Push); err != nil {
					r.log.Warn().Err(err).Str("updater", u.Name).Msg("updtr_add failed")
					continue
				}
				for _, pm := range u.Producers {
					if err := comm.UpdaterProducerAdd(ctx, u.Name, pm.Regex); err != nil {
						r.log.Warn().Err(err).Str("updater", u.Name).Msg("updtr_prdcr_add failed")
					}
				}
				for _, set := range u.Sets {
					if err := comm.UpdaterMatchAdd(ctx, u.Name, set.Regex, set.Field); err != nil {
						r.log.Warn().Err(err).Str("updater", u.Name).Msg("updtr_match_add failed")
					}
				}
				if err := comm.UpdaterStart(ctx, u.Name); err != nil {
					r.log.Warn().Err(err).Str("updater", u.Name).Msg("updtr_start failed")
				}
			}
		}
	}
}

// storeApply applies every store in every group (§4.F.7).
func (r *Reconciler) storeApply(ctx context.Context, state *topology.DesiredState, comms *CommunicatorSet) {
	for group, stores := range state.StoresByGroup {
		aggGroup, ok := state.AggregatorsByGroup[group]
		if !ok {
			continue
		}
		for _, agg := range aggGroup.Aggregators {
			comm, ok := comms.Aggregators[agg.Name]
			if !ok || comm.State() != communicator.StateConnected {
				continue
			}
			for _, s := range stores {
				if err := comm.PluginLoad(ctx, s.Plugin.Name); err != nil {
					r.log.Warn().Err(err).Str("store", s.Name).Msg("plugn_load failed")
					continue
				}
				if err := comm.PluginConfig(ctx, s.Plugin.Name, s.Plugin.Config); err != nil {
					r.log.Warn().Err(err).Str("store", s.Name).Msg("plugn_config failed")
					continue
				}
				if err := comm.StorePolicyAdd(ctx, s.Name, s.Plugin.Name, s.Container, s.Schema); err != nil {
					r.log.Warn().Err(err).Str("store", s.Name).Msg("strgp_add failed")
					continue
				}
				if err := comm.StorePolicyProducerAdd(ctx, s.Name, ".*"); err != nil {
					r.log.Warn().Err(err).Str("store", s.Name).Msg("strgp_prdcr_add failed")
				}
				if err := comm.StorePolicyStart(ctx, s.Name); err != nil {
					r.log.Warn().Err(err).Str("store", s.Name).Msg("strgp_start failed")
				}
			}
		}
	}
}

// producerStartStop diffs prdcr_status against the load-balance assignment
// and starts or stops producers accordingly (§4.F.8).
func (r *Reconciler) producerStartStop(ctx context.Context, state *topology.DesiredState, comms *CommunicatorSet, assignments map[string]map[string][]string) {
	for group, byAgg := range assignments {
		for aggName, assigned := range byAgg {
			comm, ok := comms.Aggregators[aggName]
			if !ok || comm.State() != communicator.StateConnected {
				continue
			}

			want := map[string]bool{}
			for _, name := range assigned {
				want[name] = true
			}

			statuses, err := comm.ProducerStatus(ctx)
			if err != nil {
				r.log.Warn().Err(err).Str("aggregator", aggName).Msg("prdcr_status failed")
				continue
			}

			for _, p := range statuses {
				switch {
				case p.State == "stopped" && want[p.Name]:
					if err := comm.ProducerStart(ctx, p.Name); err != nil {
						r.log.Warn().Err(err).Str("aggregator", aggName).Str("producer", p.Name).Msg("prdcr_start failed")
						metrics.CommandsTotal.WithLabelValues("prdcr_start", "error").Inc()
						continue
					}
					metrics.CommandsTotal.WithLabelValues("prdcr_start", "ok").Inc()
				case p.State != "stopped" && !want[p.Name]:
					if err := comm.ProducerStop(ctx, p.Name); err != nil {
						r.log.Warn().Err(err).Str("aggregator", aggName).Str("producer", p.Name).Msg("prdcr_stop failed")
						metrics.CommandsTotal.WithLabelValues("prdcr_stop", "error").Inc()
						continue
					}
					metrics.CommandsTotal.WithLabelValues("prdcr_stop", "ok").Inc()
				}
			}
			metrics.ProducersAssigned.WithLabelValues(group, aggName).Set(float64(len(assigned)))
		}
	}
}
