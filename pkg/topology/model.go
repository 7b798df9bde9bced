package topology

import (
	"fmt"

	"github.com/nick-enoent/maestro/pkg/log"
)

var modelLog = log.WithComponent("topology")

// Load validates the generic description tree and cross-expands it into
// the entity graph (§4.C). Cross-references between sections (a producer's
// target group, an updater's producer-name-pattern) are intentionally left
// unresolved — the aggregator daemon evaluates those server-side.
func Load(tree map[string]interface{}) (*DesiredState, error) {
	state := &DesiredState{
		Hosts:              map[string]Host{},
		AggregatorsByGroup: map[string]AggregatorGroup{},
		SamplersByKey:      map[string]SamplerSpec{},
		ProducersByGroup:   map[string][]Producer{},
		UpdatersByGroup:    map[string][]Updater{},
		StoresByGroup:      map[string][]Store{},
	}

	if err := loadHosts(tree, state); err != nil {
		return nil, err
	}
	if err := loadAggregators(tree, state); err != nil {
		return nil, err
	}
	if err := loadProducers(tree, state); err != nil {
		return nil, err
	}
	if err := loadUpdaters(tree, state); err != nil {
		return nil, err
	}
	if err := loadStores(tree, state); err != nil {
		return nil, err
	}
	if err := loadSamplers(tree, state); err != nil {
		return nil, err
	}

	warnUnknownGroups(state)
	return state, nil
}

func loadHosts(tree map[string]interface{}, state *DesiredState) error {
	entries, err := section(tree, "hosts")
	if err != nil {
		return err
	}
	for _, e := range entries {
		namesSpecs, ok := stringListField(e, "names")
		if !ok {
			return &MissingAttributeError{Section: "hosts", Key: "names"}
		}
		hostsSpecs, ok := stringListField(e, "hosts")
		if !ok {
			return &MissingAttributeError{Section: "hosts", Key: "hosts"}
		}
		portsSpecs, ok := stringListField(e, "ports")
		if !ok {
			return &MissingAttributeError{Section: "hosts", Key: "ports"}
		}

		names, err := ExpandAll(namesSpecs)
		if err != nil {
			return err
		}
		hostAddrs, err := ExpandAll(hostsSpecs)
		if err != nil {
			return err
		}
		ports, err := ExpandAll(portsSpecs)
		if err != nil {
			return err
		}

		if len(names) != len(hostAddrs)*len(ports) {
			return &ArityMismatchError{
				Section: "hosts",
				Detail:  "len(names) must equal len(hosts) * len(ports)",
			}
		}

		xprt, ok := stringField(e, "xprt")
		if !ok {
			xprt = "sock"
		}

		auth := Auth{Name: "none"}
		if authRaw, ok := e["auth"]; ok {
			if authMap, ok := authRaw.(map[string]interface{}); ok {
				if name, ok := stringField(authMap, "name"); ok {
					auth.Name = name
				}
				auth.Config = stringMapField(authMap, "config")
			}
		}

		idx := 0
		for _, h := range hostAddrs {
			for _, p := range ports {
				name := names[idx]
				idx++
				if _, exists := state.Hosts[name]; exists {
					return &DuplicateNameError{Section: "hosts", Group: "", Name: name}
				}
				state.Hosts[name] = Host{
					Name: name,
					Addr: h,
					Port: p,
					Xprt: xprt,
					Auth: auth,
				}
			}
		}
	}
	return nil
}

func loadAggregators(tree map[string]interface{}, state *DesiredState) error {
	entries, err := section(tree, "aggregators")
	if err != nil {
		return err
	}
	for _, e := range entries {
		namesSpecs, ok := stringListField(e, "names")
		if !ok {
			return &MissingAttributeError{Section: "aggregators", Key: "names"}
		}
		group, ok := stringField(e, "group")
		if !ok {
			return &MissingAttributeError{Section: "aggregators", Key: "group"}
		}
		hostsSpecs, ok := stringListField(e, "hosts")
		if !ok {
			return &MissingAttributeError{Section: "aggregators", Key: "hosts"}
		}

		names, err := ExpandAll(namesSpecs)
		if err != nil {
			return err
		}
		hosts, err := ExpandAll(hostsSpecs)
		if err != nil {
			return err
		}
		if len(names) != len(hosts) {
			return &ArityMismatchError{Section: "aggregators", Detail: "len(names) must equal len(hosts)"}
		}

		existing := state.AggregatorsByGroup[group]
		seen := map[string]bool{}
		for _, a := range existing.Aggregators {
			seen[a.Name] = true
		}
		for i, name := range names {
			if seen[name] {
				return &DuplicateNameError{Section: "aggregators", Group: group, Name: name}
			}
			seen[name] = true
			existing.Aggregators = append(existing.Aggregators, Aggregator{
				Name:  name,
				Host:  hosts[i],
				State: AggregatorStopped,
			})
		}
		existing.Group = group
		state.AggregatorsByGroup[group] = existing
	}
	return nil
}

func loadProducers(tree map[string]interface{}, state *DesiredState) error {
	entries, err := section(tree, "producers")
	if err != nil {
		return err
	}
	for _, e := range entries {
		namesSpecs, ok := stringListField(e, "names")
		if !ok {
			return &MissingAttributeError{Section: "producers", Key: "names"}
		}
		hostsSpecs, ok := stringListField(e, "hosts")
		if !ok {
			return &MissingAttributeError{Section: "producers", Key: "hosts"}
		}
		updaters, ok := stringListField(e, "updaters")
		if !ok {
			return &MissingAttributeError{Section: "producers", Key: "updaters"}
		}
		reconnect, ok := stringField(e, "reconnect")
		if !ok {
			return &MissingAttributeError{Section: "producers", Key: "reconnect"}
		}
		ptype, ok := stringField(e, "type")
		if !ok {
			return &MissingAttributeError{Section: "producers", Key: "type"}
		}
		group, ok := stringField(e, "group")
		if !ok {
			return &MissingAttributeError{Section: "producers", Key: "group"}
		}

		names, err := ExpandAll(namesSpecs)
		if err != nil {
			return err
		}
		hosts, err := ExpandAll(hostsSpecs)
		if err != nil {
			return err
		}
		if len(names) != len(hosts) {
			return &ArityMismatchError{Section: "producers", Detail: "len(names) must equal len(hosts)"}
		}

		for i, name := range names {
			state.ProducersByGroup[group] = append(state.ProducersByGroup[group], Producer{
				Name:      name,
				Host:      hosts[i],
				Group:     group,
				Type:      ProducerType(ptype),
				Reconnect: reconnect,
				Updaters:  updaters,
			})
		}
	}
	return nil
}

func loadUpdaters(tree map[string]interface{}, state *DesiredState) error {
	entries, err := section(tree, "updaters")
	if err != nil {
		return err
	}
	for _, e := range entries {
		name, ok := stringField(e, "name")
		if !ok {
			return &MissingAttributeError{Section: "updaters", Key: "name"}
		}
		group, ok := stringField(e, "group")
		if !ok {
			return &MissingAttributeError{Section: "updaters", Key: "group"}
		}
		interval, ok := stringField(e, "interval")
		if !ok {
			return &MissingAttributeError{Section: "updaters", Key: "interval"}
		}
		setsRaw, ok := e["sets"]
		if !ok {
			return &MissingAttributeError{Section: "updaters", Key: "sets"}
		}
		producersRaw, ok := e["producers"]
		if !ok {
			return &MissingAttributeError{Section: "updaters", Key: "producers"}
		}

		auto, hasAuto := stringField(e, "auto")
		push, hasPush := stringField(e, "push")
		if hasAuto && hasPush {
			return &ConflictingModeError{Group: group, Updater: name}
		}

		for _, a := range state.UpdatersByGroup[group] {
			if a.Name == name {
				return &DuplicateNameError{Section: "updaters", Group: group, Name: name}
			}
		}

		sets, err := parseUpdaterSets(setsRaw)
		if err != nil {
			return err
		}
		producers, err := parseUpdaterProducers(producersRaw)
		if err != nil {
			return err
		}

		u := Updater{
			Name:      name,
			Group:     group,
			Interval:  interval,
			Sets:      sets,
			Producers: producers,
		}
		if hasAuto {
			u.Auto = auto
		}
		if hasPush {
			u.Push = push
		}
		state.UpdatersByGroup[group] = append(state.UpdatersByGroup[group], u)
	}
	return nil
}

func parseUpdaterSets(raw interface{}) ([]UpdaterSet, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, &MissingAttributeError{Section: "updaters", Key: "sets"}
	}
	out := make([]UpdaterSet, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, &MissingAttributeError{Section: "updaters", Key: "sets[].regex"}
		}
		regex, ok := stringField(m, "regex")
		if !ok {
			return nil, &MissingAttributeError{Section: "updaters", Key: "sets[].regex"}
		}
		field, _ := stringField(m, "field")
		out = append(out, UpdaterSet{Regex: regex, Field: field})
	}
	return out, nil
}

func parseUpdaterProducers(raw interface{}) ([]UpdaterProducerMatch, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, &MissingAttributeError{Section: "updaters", Key: "producers[].regex"}
	}
	out := make([]UpdaterProducerMatch, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, &MissingAttributeError{Section: "updaters", Key: "producers[].regex"}
		}
		regex, ok := stringField(m, "regex")
		if !ok {
			return nil, &MissingAttributeError{Section: "updaters", Key: "producers[].regex"}
		}
		out = append(out, UpdaterProducerMatch{Regex: regex})
	}
	return out, nil
}

func loadStores(tree map[string]interface{}, state *DesiredState) error {
	entries, err := section(tree, "stores")
	if err != nil {
		return err
	}
	for _, e := range entries {
		name, ok := stringField(e, "name")
		if !ok {
			return &MissingAttributeError{Section: "stores", Key: "name"}
		}
		group, ok := stringField(e, "group")
		if !ok {
			return &MissingAttributeError{Section: "stores", Key: "group"}
		}
		container, ok := stringField(e, "container")
		if !ok {
			return &MissingAttributeError{Section: "stores", Key: "container"}
		}
		schema, ok := stringField(e, "schema")
		if !ok {
			return &MissingAttributeError{Section: "stores", Key: "schema"}
		}
		pluginRaw, ok := e["plugin"]
		if !ok {
			return &MissingAttributeError{Section: "stores", Key: "plugin"}
		}
		pluginMap, ok := pluginRaw.(map[string]interface{})
		if !ok {
			return &MissingAttributeError{Section: "stores", Key: "plugin"}
		}
		pluginName, ok := stringField(pluginMap, "name")
		if !ok {
			return &MissingAttributeError{Section: "stores", Key: "plugin.name"}
		}

		for _, s := range state.StoresByGroup[group] {
			if s.Name == name {
				return &DuplicateNameError{Section: "stores", Group: group, Name: name}
			}
		}

		state.StoresByGroup[group] = append(state.StoresByGroup[group], Store{
			Name:      name,
			Group:     group,
			Container: container,
			Schema:    schema,
			Plugin: StorePlugin{
				Name:   pluginName,
				Config: stringMapField(pluginMap, "config"),
			},
		})
	}
	return nil
}

func loadSamplers(tree map[string]interface{}, state *DesiredState) error {
	entries, err := section(tree, "samplers")
	if err != nil {
		return err
	}
	for _, e := range entries {
		namesSpecs, ok := stringListField(e, "names")
		if !ok {
			return &MissingAttributeError{Section: "samplers", Key: "names"}
		}
		key := namesSpecs[0]
		if len(namesSpecs) > 1 {
			// Preserve the raw key as given; a list of specs is joined so
			// the group identity stays stable and distinct from a single spec.
			for _, s := range namesSpecs[1:] {
				key += "," + s
			}
		}

		hosts, err := ExpandAll(namesSpecs)
		if err != nil {
			return err
		}

		plugins := parseSamplerPlugins(e)

		if _, exists := state.SamplersByKey[key]; exists {
			modelLog.Warn().Str("key", key).Msg("duplicate sampler spec key, last write wins")
		}
		state.SamplersByKey[key] = SamplerSpec{
			NamesSpec: key,
			Hosts:     hosts,
			Plugins:   plugins,
		}
	}
	return nil
}

func parseSamplerPlugins(e map[string]interface{}) []PluginConfig {
	raw, ok := e["plugins"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]PluginConfig, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := stringField(m, "name")
		interval, ok := stringField(m, "interval")
		if !ok {
			interval = "1.0s:0ms"
		}
		params := map[string]string{}
		for k, v := range m {
			if k == "name" || k == "interval" {
				continue
			}
			params[k] = stringify(v)
		}
		out = append(out, PluginConfig{Name: name, Interval: interval, Params: params})
	}
	return out
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func warnUnknownGroups(state *DesiredState) {
	for group := range state.ProducersByGroup {
		if _, ok := state.AggregatorsByGroup[group]; !ok {
			modelLog.Warn().Str("group", group).Msg("producers reference an aggregator group that does not exist; silently excluded from reconciliation")
		}
	}
	for group := range state.UpdatersByGroup {
		if _, ok := state.AggregatorsByGroup[group]; !ok {
			modelLog.Warn().Str("group", group).Msg("updaters reference an aggregator group that does not exist")
		}
	}
	for group := range state.StoresByGroup {
		if _, ok := state.AggregatorsByGroup[group]; !ok {
			modelLog.Warn().Str("group", group).Msg("stores reference an aggregator group that does not exist")
		}
	}
}
