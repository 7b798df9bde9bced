package reconcile

import "github.com/nick-enoent/maestro/pkg/topology"

// Balance partitions producers across ready aggregators, per §4.F.3:
// base = len(producers) / len(ready), extra = len(producers) % len(ready);
// the first extra aggregators (in declared order) receive base+1
// producers, the rest receive base. ready must already be filtered to
// AggregatorReady state and preserve declared order.
func Balance(ready []topology.Aggregator, producers []topology.Producer) map[string][]string {
	assignment := make(map[string][]string, len(ready))
	if len(ready) == 0 {
		return assignment
	}

	base := len(producers) / len(ready)
	extra := len(producers) % len(ready)

	idx := 0
	for i, agg := range ready {
		count := base
		if i < extra {
			count++
		}
		var names []string
		for j := 0; j < count && idx < len(producers); j++ {
			names = append(names, producers[idx].Name)
			idx++
		}
		assignment[agg.Name] = names
	}
	return assignment
}

// ReadyAggregators returns the aggregators of group in declared order
// whose reported state is AggregatorReady.
func ReadyAggregators(group topology.AggregatorGroup, aggState map[string]topology.AggregatorState) []topology.Aggregator {
	var ready []topology.Aggregator
	for _, a := range group.Aggregators {
		if state, ok := aggState[a.Name]; ok && state == topology.AggregatorReady {
			ready = append(ready, a)
		}
	}
	return ready
}
