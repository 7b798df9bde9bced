package topology

import "time"

// Auth carries an opaque authentication reference: a named mechanism plus
// an opaque key/value config map. The control plane never interprets its
// contents (§1 non-goal: no authentication mechanism implementation).
type Auth struct {
	Name   string            `json:"name"`
	Config map[string]string `json:"config,omitempty"`
}

// Host is a reachable daemon endpoint.
type Host struct {
	Name string `json:"name"`
	Addr string `json:"addr"`
	Port string `json:"port"`
	Xprt string `json:"xprt"` // transport tag, default "sock"
	Auth Auth   `json:"auth"`
}

// AggregatorState is the daemon-reported lifecycle state of one aggregator.
type AggregatorState string

const (
	AggregatorStopped AggregatorState = "stopped"
	AggregatorRunning AggregatorState = "running"
	AggregatorReady   AggregatorState = "ready"
	AggregatorError   AggregatorState = "error"
)

// Aggregator is one member of an AggregatorGroup.
type Aggregator struct {
	Name  string
	Host  string // Host key
	State AggregatorState
}

// AggregatorGroup is a named load-balancing cohort of aggregator daemons at
// one tier.
type AggregatorGroup struct {
	Group       string
	Aggregators []Aggregator // declared order preserved; aggregator names unique within the group
}

// PluginConfig is one sampler plugin configuration within a SamplerSpec.
type PluginConfig struct {
	Name     string
	Interval string // "<interval>[:<offset>]", default "1.0s:0ms"
	Params   map[string]string
}

// SamplerSpec is a group of sampler daemons sharing a plugin configuration,
// keyed by the raw range-notation `names` spec so the group identity
// survives even when two specs expand to overlapping hosts (§9 Open
// Question: ambiguous, last write wins — see DESIGN.md).
type SamplerSpec struct {
	NamesSpec string // the raw, unexpanded names spec; preserved as the map key
	Hosts     []string // expanded host names
	Plugins   []PluginConfig
}

// ProducerType distinguishes a pull source's connection initiation mode.
type ProducerType string

const (
	ProducerActive  ProducerType = "active"
	ProducerPassive ProducerType = "passive"
)

// Producer is a pull source that an aggregator group will connect to.
type Producer struct {
	Name      string
	Host      string // Host key
	Group     string // target aggregator group
	Type      ProducerType
	Reconnect string // interval string
	Updaters  []string
}

// UpdaterSet matches metric sets by regex against a field.
type UpdaterSet struct {
	Regex string
	Field string // "inst" or "schema"
}

// UpdaterProducerMatch matches producers eligible for this updater's
// schedule by regex.
type UpdaterProducerMatch struct {
	Regex string
}

// Updater is a pull schedule applied by an aggregator group.
type Updater struct {
	Name      string // unique within Group
	Group     string
	Interval  string
	Sets      []UpdaterSet
	Producers []UpdaterProducerMatch
	Auto      string // mutually exclusive with Push
	Push      string
}

// StorePlugin is the storage plugin reference of a Store.
type StorePlugin struct {
	Name   string
	Config map[string]string
}

// Store is a storage policy executed by an aggregator group.
type Store struct {
	Name      string // unique within Group
	Group     string
	Container string
	Schema    string
	Plugin    StorePlugin
}

// DesiredState is the immutable snapshot of the entire entity graph. It is
// mutated only by replacing it wholesale through the KV projection (§3).
type DesiredState struct {
	Hosts              map[string]Host
	AggregatorsByGroup map[string]AggregatorGroup
	SamplersByKey      map[string]SamplerSpec
	ProducersByGroup   map[string][]Producer
	UpdatersByGroup    map[string][]Updater
	StoresByGroup      map[string][]Store
	LastUpdated        time.Time
}
