package queue

// Option configures an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of buffered events.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithOnDrop is called with every event the queue refuses. It runs on the
// publisher's goroutine and must not block.
func WithOnDrop(fn func(Event)) Option {
	return func(q *InMemoryQueue) {
		q.onDrop = fn
	}
}
