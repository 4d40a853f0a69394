// Package pqueue implements a best-first priority queue of pending
// subtrees, keyed by a lower-bound distance, used only by
// k-NN search.
//
// Two variants sit behind the same Queue interface: List, with O(n) insert
// and O(1) pop, suited to small queues, and BinaryHeap, an array-backed
// min-heap for larger fan-outs. The tree package's k-NN search uses
// BinaryHeap.
package pqueue

import "github.com/arboretum-go/arboretum/page"

// Candidate is one pending subtree: the page to visit, a lower bound on the
// distance from the query to any object in it, and its covering radius.
type Candidate struct {
	PageID     page.ID
	LowerBound float64
	Radius     float64
}

// Queue is the contract both implementations satisfy.
type Queue interface {
	Push(c Candidate)
	// Pop removes and returns the candidate with the smallest LowerBound.
	// ok is false when the queue is empty.
	Pop() (Candidate, bool)
	// Peek returns the smallest-LowerBound candidate without removing it.
	Peek() (Candidate, bool)
	Len() int
}

// List is the list-based variant: insert is O(n) (keeps the slice sorted by
// LowerBound so Pop and Peek are O(1)).
type List struct {
	items []Candidate
}

// NewList constructs an empty list-based queue.
func NewList() *List { return &List{} }

func (q *List) Push(c Candidate) {
	i := 0
	for i < len(q.items) && q.items[i].LowerBound <= c.LowerBound {
		i++
	}
	q.items = append(q.items, Candidate{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = c
}

func (q *List) Pop() (Candidate, bool) {
	if len(q.items) == 0 {
		return Candidate{}, false
	}
	c := q.items[0]
	q.items = q.items[1:]
	return c, true
}

func (q *List) Peek() (Candidate, bool) {
	if len(q.items) == 0 {
		return Candidate{}, false
	}
	return q.items[0], true
}

func (q *List) Len() int { return len(q.items) }

// BinaryHeap is a classic array-backed min-heap keyed on LowerBound, for
// workloads where the queue grows large enough that List's O(n) insert
// becomes the bottleneck.
type BinaryHeap struct {
	items []Candidate
}

// NewBinaryHeap constructs an empty heap-based queue.
func NewBinaryHeap() *BinaryHeap { return &BinaryHeap{} }

func (h *BinaryHeap) Push(c Candidate) {
	h.items = append(h.items, c)
	h.siftUp(len(h.items) - 1)
}

func (h *BinaryHeap) Pop() (Candidate, bool) {
	if len(h.items) == 0 {
		return Candidate{}, false
	}
	top := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return top, true
}

func (h *BinaryHeap) Peek() (Candidate, bool) {
	if len(h.items) == 0 {
		return Candidate{}, false
	}
	return h.items[0], true
}

func (h *BinaryHeap) Len() int { return len(h.items) }

func (h *BinaryHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[parent].LowerBound <= h.items[i].LowerBound {
			break
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *BinaryHeap) siftDown(i int) {
	n := len(h.items)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && h.items[left].LowerBound < h.items[smallest].LowerBound {
			smallest = left
		}
		if right < n && h.items[right].LowerBound < h.items[smallest].LowerBound {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
