package reconcile

import "sync"

// ChangeKind distinguishes what woke the reconciler.
type ChangeKind string

const (
	// ChangeTick is the regular 1 Hz wakeup (§4.G.5).
	ChangeTick ChangeKind = "tick"
	// ChangeDatastore marks a datastore watch event since the last pass.
	ChangeDatastore ChangeKind = "datastore"
)

// Change is one item on the reconciler's notification queue. ID carries the
// triggering datastore event's correlation ID (empty for a tick) so a
// single change can be traced from the watch callback to the pass it woke.
type Change struct {
	Kind ChangeKind
	ID   string
}

// Queue is the single-consumer change-notification channel that decouples
// the datastore watch goroutine from the reconciler loop itself (§5: a
// watch callback runs on its own task). The Controller's 1 Hz ticker does
// not go through the queue; its loop selects on the ticker directly.
// Narrowed from the teacher's pkg/events broker,
// which fans out to many subscribers, down to exactly one: the
// reconciler's own run loop.
type Queue struct {
	mu      sync.Mutex
	pending bool
	ch      chan Change
}

// NewQueue returns a ready-to-use queue with a small buffer so a burst of
// datastore events coalesces into a single pending notification rather
// than blocking the watch goroutine.
func NewQueue() *Queue {
	return &Queue{ch: make(chan Change, 1)}
}

// Notify enqueues a change. If a notification is already pending, this is
// a no-op: the reconciler only needs to know that *something* changed
// since its last pass, not how many times.
func (q *Queue) Notify(c Change) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending {
		return
	}
	q.pending = true
	q.ch <- c
}

// C returns the channel the reconciler selects on.
func (q *Queue) C() <-chan Change {
	return q.ch
}

// Ack clears the pending flag after the reconciler has drained a change,
// allowing the next Notify to enqueue again.
func (q *Queue) Ack() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = false
}
