package store

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/nick-enoent/maestro/pkg/topology"
)

// ToNode converts a DesiredState into the generic Node tree that Walk
// projects into the datastore.
func ToNode(state *topology.DesiredState) *Node {
	root := NewMap()

	hosts := NewMap()
	for name, h := range state.Hosts {
		hosts.Set(name, hostNode(h))
	}
	root.Set("hosts", hosts)

	aggs := NewMap()
	for group, g := range state.AggregatorsByGroup {
		seq := NewSeq()
		for _, a := range g.Aggregators {
			n := NewMap()
			n.Set("name", NewLeaf(a.Name))
			n.Set("host", NewLeaf(a.Host))
			n.Set("state", NewLeaf(string(a.State)))
			seq.Append(n)
		}
		aggs.Set(group, seq)
	}
	root.Set("aggregators", aggs)

	samplers := NewMap()
	for key, s := range state.SamplersByKey {
		n := NewMap()
		n.Set("hosts", stringSliceNode(s.Hosts))
		plugins := NewSeq()
		for _, p := range s.Plugins {
			pn := NewMap()
			pn.Set("name", NewLeaf(p.Name))
			pn.Set("interval", NewLeaf(p.Interval))
			pn.Set("params", stringMapNode(p.Params))
			plugins.Append(pn)
		}
		n.Set("plugins", plugins)
		samplers.Set(key, n)
	}
	root.Set("samplers", samplers)

	producers := NewMap()
	for group, list := range state.ProducersByGroup {
		seq := NewSeq()
		for _, p := range list {
			n := NewMap()
			n.Set("name", NewLeaf(p.Name))
			n.Set("host", NewLeaf(p.Host))
			n.Set("group", NewLeaf(p.Group))
			n.Set("type", NewLeaf(string(p.Type)))
			n.Set("reconnect", NewLeaf(p.Reconnect))
			n.Set("updaters", stringSliceNode(p.Updaters))
			seq.Append(n)
		}
		producers.Set(group, seq)
	}
	root.Set("producers", producers)

	updaters := NewMap()
	for group, list := range state.UpdatersByGroup {
		seq := NewSeq()
		for _, u := range list {
			n := NewMap()
			n.Set("name", NewLeaf(u.Name))
			n.Set("group", NewLeaf(u.Group))
			n.Set("interval", NewLeaf(u.Interval))
			n.Set("auto", NewLeaf(u.Auto))
			n.Set("push", NewLeaf(u.Push))

			sets := NewSeq()
			for _, s := range u.Sets {
				sn := NewMap()
				sn.Set("regex", NewLeaf(s.Regex))
				sn.Set("field", NewLeaf(s.Field))
				sets.Append(sn)
			}
			n.Set("sets", sets)

			prods := NewSeq()
			for _, p := range u.Producers {
				pn := NewMap()
				pn.Set("regex", NewLeaf(p.Regex))
				prods.Append(pn)
			}
			n.Set("producers", prods)

			seq.Append(n)
		}
		updaters.Set(group, seq)
	}
	root.Set("updaters", updaters)

	stores := NewMap()
	for group, list := range state.StoresByGroup {
		seq := NewSeq()
		for _, s := range list {
			n := NewMap()
			n.Set("name", NewLeaf(s.Name))
			n.Set("group", NewLeaf(s.Group))
			n.Set("container", NewLeaf(s.Container))
			n.Set("schema", NewLeaf(s.Schema))
			pn := NewMap()
			pn.Set("name", NewLeaf(s.Plugin.Name))
			pn.Set("config", stringMapNode(s.Plugin.Config))
			n.Set("plugin", pn)
			seq.Append(n)
		}
		stores.Set(group, seq)
	}
	root.Set("stores", stores)

	if !state.LastUpdated.IsZero() {
		root.Set("last_updated", NewLeaf(fmt.Sprintf("%.6f", float64(state.LastUpdated.UnixNano())/1e9)))
	}

	return root
}

// FromNode rebuilds a DesiredState from a Node tree produced by Reflect.
func FromNode(root *Node) (*topology.DesiredState, error) {
	state := &topology.DesiredState{
		Hosts:              map[string]topology.Host{},
		AggregatorsByGroup: map[string]topology.AggregatorGroup{},
		SamplersByKey:      map[string]topology.SamplerSpec{},
		ProducersByGroup:   map[string][]topology.Producer{},
		UpdatersByGroup:    map[string][]topology.Updater{},
		StoresByGroup:      map[string][]topology.Store{},
	}
	if root == nil {
		return state, nil
	}

	if hosts, ok := root.Map["hosts"]; ok {
		for name, hn := range hosts.Map {
			state.Hosts[name] = hostFromNode(name, hn)
		}
	}

	if aggs, ok := root.Map["aggregators"]; ok {
		for group, seq := range aggs.Map {
			g := topology.AggregatorGroup{Group: group}
			for _, an := range orderedSeq(seq) {
				g.Aggregators = append(g.Aggregators, topology.Aggregator{
					Name:  leafOf(an, "name"),
					Host:  leafOf(an, "host"),
					State: topology.AggregatorState(leafOf(an, "state")),
				})
			}
			state.AggregatorsByGroup[group] = g
		}
	}

	if samplers, ok := root.Map["samplers"]; ok {
		for key, sn := range samplers.Map {
			spec := topology.SamplerSpec{NamesSpec: key}
			if hn, ok := sn.Map["hosts"]; ok {
				spec.Hosts = stringSliceFromNode(hn)
			}
			if pn, ok := sn.Map["plugins"]; ok {
				for _, p := range orderedSeq(pn) {
					spec.Plugins = append(spec.Plugins, topology.PluginConfig{
						Name:     leafOf(p, "name"),
						Interval: leafOf(p, "interval"),
						Params:   stringMapFromChild(p, "params"),
					})
				}
			}
			state.SamplersByKey[key] = spec
		}
	}

	if producers, ok := root.Map["producers"]; ok {
		for group, seq := range producers.Map {
			for _, pn := range orderedSeq(seq) {
				state.ProducersByGroup[group] = append(state.ProducersByGroup[group], topology.Producer{
					Name:      leafOf(pn, "name"),
					Host:      leafOf(pn, "host"),
					Group:     leafOf(pn, "group"),
					Type:      topology.ProducerType(leafOf(pn, "type")),
					Reconnect: leafOf(pn, "reconnect"),
					Updaters:  stringSliceFromChild(pn, "updaters"),
				})
			}
		}
	}

	if updaters, ok := root.Map["updaters"]; ok {
		for group, seq := range updaters.Map {
			for _, un := range orderedSeq(seq) {
				u := topology.Updater{
					Name:     leafOf(un, "name"),
					Group:    leafOf(un, "group"),
					Interval: leafOf(un, "interval"),
					Auto:     leafOf(un, "auto"),
					Push:     leafOf(un, "push"),
				}
				if sn, ok := un.Map["sets"]; ok {
					for _, s := range orderedSeq(sn) {
						u.Sets = append(u.Sets, topology.UpdaterSet{
							Regex: leafOf(s, "regex"),
							Field: leafOf(s, "field"),
						})
					}
				}
				if pn, ok := un.Map["producers"]; ok {
					for _, p := range orderedSeq(pn) {
						u.Producers = append(u.Producers, topology.UpdaterProducerMatch{
							Regex: leafOf(p, "regex"),
						})
					}
				}
				state.UpdatersByGroup[group] = append(state.UpdatersByGroup[group], u)
			}
		}
	}

	if stores, ok := root.Map["stores"]; ok {
		for group, seq := range stores.Map {
			for _, sn := range orderedSeq(seq) {
				s := topology.Store{
					Name:      leafOf(sn, "name"),
					Group:     leafOf(sn, "group"),
					Container: leafOf(sn, "container"),
					Schema:    leafOf(sn, "schema"),
				}
				if pn, ok := sn.Map["plugin"]; ok {
					s.Plugin = topology.StorePlugin{
						Name:   leafOf(pn, "name"),
						Config: stringMapFromChild(pn, "config"),
					}
				}
				state.StoresByGroup[group] = append(state.StoresByGroup[group], s)
			}
		}
	}

	if lu, ok := root.Map["last_updated"]; ok && lu.Kind == KindLeaf {
		if secs, err := strconv.ParseFloat(lu.Leaf, 64); err == nil {
			state.LastUpdated = time.Unix(0, int64(secs*1e9))
		}
	}

	return state, nil
}

func hostNode(h topology.Host) *Node {
	n := NewMap()
	n.Set("name", NewLeaf(h.Name))
	n.Set("addr", NewLeaf(h.Addr))
	n.Set("port", NewLeaf(h.Port))
	n.Set("xprt", NewLeaf(h.Xprt))
	auth := NewMap()
	auth.Set("name", NewLeaf(h.Auth.Name))
	auth.Set("config", stringMapNode(h.Auth.Config))
	n.Set("auth", auth)
	return n
}

func hostFromNode(name string, n *Node) topology.Host {
	h := topology.Host{
		Name: name,
		Addr: leafOf(n, "addr"),
		Port: leafOf(n, "port"),
		Xprt: leafOf(n, "xprt"),
	}
	if an, ok := n.Map["auth"]; ok {
		h.Auth = topology.Auth{
			Name:   leafOf(an, "name"),
			Config: stringMapFromChild(an, "config"),
		}
	}
	return h
}

func stringSliceNode(list []string) *Node {
	seq := NewSeq()
	for _, s := range list {
		seq.Append(NewLeaf(s))
	}
	return seq
}

func stringSliceFromNode(n *Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Seq))
	for _, c := range orderedSeq(n) {
		if c.Kind == KindLeaf {
			out = append(out, c.Leaf)
		}
	}
	return out
}

func stringSliceFromChild(n *Node, key string) []string {
	child, ok := n.Map[key]
	if !ok {
		return nil
	}
	return stringSliceFromNode(child)
}

func stringMapNode(m map[string]string) *Node {
	n := NewMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Set(k, NewLeaf(m[k]))
	}
	return n
}

func stringMapFromChild(n *Node, key string) map[string]string {
	child, ok := n.Map[key]
	if !ok {
		return nil
	}
	out := map[string]string{}
	for k, v := range child.Map {
		if v.Kind == KindLeaf {
			out[k] = v.Leaf
		}
	}
	return out
}

// orderedSeq returns a sequence's children, skipping holes left by skipped
// (empty-leaf) elements during Walk/Reflect.
func orderedSeq(n *Node) []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Seq))
	for _, c := range n.Seq {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func leafOf(n *Node, key string) string {
	child, ok := n.Map[key]
	if !ok || child.Kind != KindLeaf {
		return ""
	}
	return child.Leaf
}
