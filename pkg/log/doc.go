/*
Package log provides structured logging for the control plane using zerolog.

The package wraps zerolog to give every component (topology loader,
reconciler, controller, communicator transports) a JSON-structured,
component-scoped logger with a single global configuration point.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	recLog := log.WithComponent("reconciler")
	recLog.Info().Str("group", "agg-l1").Msg("rebalance triggered")

	aggLog := log.WithAggregator("agg-l1", "agg-01")
	aggLog.Warn().Msg("daemon_status unreachable, marking stopped")

# Context loggers

  - WithComponent: tags a logger with a component name (topology, store,
    communicator, reconcile, controller)
  - WithHost: tags a logger with a host name
  - WithGroup: tags a logger with an aggregator group name
  - WithAggregator: tags a logger with both group and aggregator name

# Conventions

Peer-command failures are logged at Warn by the reconciler, naming the verb
that failed and the aggregator, host, or entity it was issued for (§7).
Benign codes (EBUSY, EEXIST) are absorbed inside pkg/communicator and
produce no log line, since they are expected on every idempotent repeat
pass. Fatal is reserved
for configuration errors discovered before any partial write occurs.
*/
package log
