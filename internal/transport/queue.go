package transport

import "sync"

// SendQueue is a bounded FIFO of delivery records awaiting transmission.
// When full it evicts the oldest un-sent entry rather than rejecting the
// newcomer: counters are cumulative, so a fresher snapshot always carries
// at least the information the evicted one did.
type SendQueue struct {
	mu   sync.Mutex
	data []*DeliveryRecord
	cap  int
}

func NewSendQueue(capacity int) *SendQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &SendQueue{
		data: make([]*DeliveryRecord, 0, capacity),
		cap:  capacity,
	}
}

// Push appends a record, returning the evicted oldest entry when the queue
// was full (nil otherwise). The caller counts the drop.
func (q *SendQueue) Push(rec *DeliveryRecord) (dropped *DeliveryRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		dropped = q.data[0]
		q.data = append(q.data[:0], q.data[1:]...)
	}
	q.data = append(q.data, rec)
	return dropped
}

// Pop removes and returns the oldest record, or nil when empty.
func (q *SendQueue) Pop() *DeliveryRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	rec := q.data[0]
	q.data = append(q.data[:0], q.data[1:]...)
	return rec
}

func (q *SendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}
