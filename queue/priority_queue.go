// Package queue provides a generic min-priority queue used to drive k-way merges
package queue

// Priority queue based on
// https://golang.org/pkg/container/heap/#example__priorityQueue
// with the sift operations inlined so Push and Pop do not box values into interfaces.

// PriorityQueue is a binary min-heap ordered by cmpFunc.
// The element with the smallest key (cmpFunc < 0 against every other) is at the top.
type PriorityQueue[E any] struct {
	items   []E
	cmpFunc func(E, E) int
}

// NewPriorityQueue creates a new heap based PriorityQueue using cmpFunc as the comparison function.
// cmpFunc returns a negative number when a sorts before b, as cmp.Compare does.
func NewPriorityQueue[E any](cmpFunc func(E, E) int) *PriorityQueue[E] {
	return &PriorityQueue[E]{
		items:   make([]E, 0),
		cmpFunc: cmpFunc,
	}
}

// WithCapacity preallocates room for n items
func (pq *PriorityQueue[E]) WithCapacity(n int) *PriorityQueue[E] {
	if cap(pq.items) < n {
		items := make([]E, len(pq.items), n)
		copy(items, pq.items)
		pq.items = items
	}
	return pq
}

// Len returns the number of items in the queue
func (pq *PriorityQueue[E]) Len() int {
	return len(pq.items)
}

// Push adds x to the queue
func (pq *PriorityQueue[E]) Push(x E) {
	pq.items = append(pq.items, x)
	pq.up(len(pq.items) - 1)
}

// Pop removes and returns the smallest item in the queue
func (pq *PriorityQueue[E]) Pop() E {
	n := len(pq.items) - 1
	pq.items[0], pq.items[n] = pq.items[n], pq.items[0]
	pq.down(0, n)
	x := pq.items[n]
	var zero E
	pq.items[n] = zero
	pq.items = pq.items[:n]
	return x
}

// Peek returns the smallest item in the queue without removing it
func (pq *PriorityQueue[E]) Peek() E {
	return pq.items[0]
}

// PeekUpdate restores the heap order after the top item's key changed.
// It is equivalent to Pop followed by Push of the same item, without the extra sifts.
func (pq *PriorityQueue[E]) PeekUpdate() {
	pq.down(0, len(pq.items))
}

func (pq *PriorityQueue[E]) less(i, j int) bool {
	return pq.cmpFunc(pq.items[i], pq.items[j]) < 0
}

func (pq *PriorityQueue[E]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !pq.less(j, i) {
			break
		}
		pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
		j = i
	}
}

func (pq *PriorityQueue[E]) down(i0, n int) {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 { // j1 < 0 after int overflow
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && pq.less(j2, j1) {
			j = j2 // = 2*i + 2  // right child
		}
		if !pq.less(j, i) {
			break
		}
		pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
		i = j
	}
}
