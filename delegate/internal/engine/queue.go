package engine

// uniqueQueue is a FIFO that admits each element at most once over its
// whole lifetime. Both the region builder and the driver drain one:
// re-pushing an already-seen element is a no-op, which is what makes
// their fixed-point loops terminate.
type uniqueQueue[T comparable] struct {
	items []T
	seen  map[T]bool
}

func newUniqueQueue[T comparable]() *uniqueQueue[T] {
	return &uniqueQueue[T]{seen: make(map[T]bool)}
}

// push enqueues v unless it was ever enqueued before. Returns whether
// v was admitted.
func (q *uniqueQueue[T]) push(v T) bool {
	if q.seen[v] {
		return false
	}
	q.seen[v] = true
	q.items = append(q.items, v)
	return true
}

func (q *uniqueQueue[T]) pop() T {
	v := q.items[0]
	q.items = q.items[1:]
	return v
}

func (q *uniqueQueue[T]) empty() bool { return len(q.items) == 0 }
