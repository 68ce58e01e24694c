package frontier

import (
	"container/heap"

	"site-freezer/pkg/models"
)

// queueItem wraps a work item for the heap.
type queueItem struct {
	workItem *models.WorkItem
	priority int // Lower value pops first; link depth keeps the crawl breadth-first
	index    int // Heap bookkeeping
}

// itemHeap implements heap.Interface.
type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	return h[i].priority < h[j].priority
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

// Push adds an element to the heap.
func (h *itemHeap) Push(x any) {
	n := len(*h)
	item := x.(*queueItem)
	item.index = n
	*h = append(*h, item)
}

// Pop removes and returns the lowest-depth element from the heap.
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

var _ heap.Interface = (*itemHeap)(nil)
