/*
Package reconcile implements the reconciliation loop (§4.F): the part of
the control plane that polls aggregator liveness, load-balances producers
across ready aggregators within each group, and drives every aggregator
and sampler toward the current DesiredState over its Communicator.

One Pass does, in order: health sweep, rebalance decision, per-group load
balance, sampler bring-up, producer fan-out, updater apply, store apply,
producer start/stop. Every step is idempotent; a failing peer is skipped
for the remainder of the pass rather than aborting it.
*/
package reconcile
