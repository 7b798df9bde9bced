/*
Package topology expands a declarative cluster description into the
in-memory entity graph consumed by the rest of the control plane: hosts,
aggregator groups, sampler specs, producers, updaters, and stores.

It has three small, independent pieces that are used together but tested in
isolation:

  - Expand: range-notation name expansion ("orion-[01-08]-[10001-10128]").
  - ParseInterval: "<float><unit>" to integer microseconds.
  - Model: validation and cross-expansion of the six description sections
    into the entity graph (types.go).

None of the three resolve cross-references between sections (a producer's
target group, an updater's producer-regex) — those are evaluated
server-side by the aggregator daemon, not here.
*/
package topology
