/*
Package store implements the flat key/value projection of the topology
entity graph (§4.D), the Datastore client boundary to the external
consensus-backed configuration store (§1, §6), and a small local mirror of
the last pushed DesiredState.

The projection is two independent, testable pieces:

  - Walk: a Node tree (the tagged variant described in §9 — Map, Seq, or
    Leaf) to a flat, ordered list of key/value pairs.
  - Reflect: the inverse, rebuilding a Node tree from a flat key range by
    classifying each path segment as a sequence index (all-digit) or a
    mapping key (anything else), deciding a new container's kind by looking
    one segment ahead.

graph.go converts between the concrete topology.DesiredState and the
generic Node tree, so Walk/Reflect never need to know about hosts,
aggregators, or producers directly — only about maps, sequences, and leaf
strings.

Datastore itself is an interface (datastore.go): the consensus algorithm
behind it is out of scope (§1 non-goal). The default implementation
(etcd.go) speaks to an etcd-compatible cluster, since etcd's own
Put/Range/DeleteRange/Watch verbs map directly onto this package's needs.
*/
package store
