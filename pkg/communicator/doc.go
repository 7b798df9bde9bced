/*
Package communicator abstracts the RPC channel to one aggregator or sampler
daemon (§4.E). Communicator is the interface the Reconciler drives; sock.go
and grpc.go are two transport implementations selected by a Host's xprt tag.

The wire protocol on either transport is out of scope — this package never
encodes or decodes the daemon's actual configuration-command payloads, only
carries verb/argument pairs across a connection and reports back an error
code plus an optional result. Benign codes (EBUSY, EEXIST) are absorbed by
errors.go so idempotent verbs never surface a false failure to the caller.
*/
package communicator
