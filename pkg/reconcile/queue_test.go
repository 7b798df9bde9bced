package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueCoalescesBurstsIntoOnePendingNotification(t *testing.T) {
	q := NewQueue()
	q.Notify(Change{Kind: ChangeDatastore})
	q.Notify(Change{Kind: ChangeDatastore})
	q.Notify(Change{Kind: ChangeDatastore})

	assert.Len(t, q.C(), 1)
}

func TestQueueAckAllowsNextNotify(t *testing.T) {
	q := NewQueue()
	q.Notify(Change{Kind: ChangeTick})
	<-q.C()
	q.Ack()

	q.Notify(Change{Kind: ChangeTick})
	assert.Len(t, q.C(), 1)
}
