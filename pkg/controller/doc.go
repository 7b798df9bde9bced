/*
Package controller implements the two entry points of §4.G: configure-once
(load a description, push it to the datastore, exit) and monitor-forever
(load the current DesiredState, optionally spawn aggregator daemons, open
a Communicator per peer, and run the reconciliation loop).

The Controller owns the current DesiredState and the long-lived
Communicator set; the Reconciler in pkg/reconcile only borrows them for
the duration of one pass (§3). A single mutex serializes the tick loop
against the datastore watch handler so no two passes, and no pass and a
handler, ever run concurrently (§5).
*/
package controller
