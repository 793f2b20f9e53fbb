package telemetry

// Ring is a fixed-capacity FIFO that overwrites its oldest item when full.
// It is not safe for concurrent use; Collector guards it.
type Ring[T any] struct {
	items []T
	head  int
	size  int
}

// NewRing creates a ring holding at most capacity items (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Add appends item, evicting the oldest when full.
func (r *Ring[T]) Add(item T) {
	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// Items returns the contents oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, 0, r.size)
	start := (r.head - r.size + len(r.items)) % len(r.items)
	for i := 0; i < r.size; i++ {
		out = append(out, r.items[(start+i)%len(r.items)])
	}
	return out
}

// Len returns the number of items held.
func (r *Ring[T]) Len() int {
	return r.size
}
