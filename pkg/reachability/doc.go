// Package reachability provides a cheap TCP reachability probe with
// flap-debounced status tracking, used as a pre-check before the
// reconciler attempts a full Communicator RPC round trip against an
// aggregator or sampler host. A dead host fails the TCP dial in
// milliseconds; skipping straight to it avoids waiting out the
// Communicator's own connect/call timeout on every pass.
package reachability
