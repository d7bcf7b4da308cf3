package sampling

import "iter"

// Reservoir keeps a uniform sample of at most k items from a stream of unknown length
// (Algorithm R). Memory use is O(k) regardless of how many items are offered.
type Reservoir[T any] struct {
	k     int
	seen  int
	items []T
	rng   RandomSource
}

// NewReservoir returns an empty reservoir of capacity k. A non-positive k yields a
// reservoir that never keeps anything.
func NewReservoir[T any](k int, rng RandomSource) *Reservoir[T] {
	if k < 0 {
		k = 0
	}
	return &Reservoir[T]{k: k, rng: rng, items: make([]T, 0, min(k, 64))}
}

// Offer presents the next qualifying item. The i-th item (0-indexed) is kept directly
// while i < k; afterwards j is drawn from [0, i] and the item replaces slot j if j < k.
func (r *Reservoir[T]) Offer(item T) {
	i := r.seen
	r.seen++
	if r.k == 0 {
		return
	}
	if i < r.k {
		r.items = append(r.items, item)
		return
	}
	if j := r.rng.IntN(i + 1); j < r.k {
		r.items[j] = item
	}
}

// Seen returns the number of items offered so far.
func (r *Reservoir[T]) Seen() int { return r.seen }

// Items returns the current sample. The slice is owned by the reservoir.
func (r *Reservoir[T]) Items() []T { return r.items }

// SampleSeq draws up to k items uniformly from seq in a single pass. When keep is
// non-nil, only items for which it returns true take part in the draw. Every
// qualifying item ends up in the result with probability k/n, where n is the
// number of qualifying items; with n <= k all of them are returned.
func SampleSeq[T any](rng RandomSource, seq iter.Seq[T], k int, keep func(T) bool) []T {
	r := NewReservoir[T](k, rng)
	for item := range seq {
		if keep != nil && !keep(item) {
			continue
		}
		r.Offer(item)
	}
	return r.Items()
}
