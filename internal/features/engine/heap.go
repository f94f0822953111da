package engine

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// dispatchItem is one armed ActionExecution waiting for its eligible time.
type dispatchItem struct {
	executionID primitive.ObjectID
	actionIndex int
	eligibleAt  time.Time
	seq         uint64 // arrival order, breaks eligibleAt ties
}

func (i dispatchItem) key() string {
	return i.executionID.Hex() + ":" + strconv.Itoa(i.actionIndex)
}

// dispatchHeap is a min-heap on eligibleAt. When delays tie, the recorded
// arrival order (scheduling order, which preserves action order) wins.
type dispatchHeap []dispatchItem

func (h dispatchHeap) Len() int { return len(h) }

func (h dispatchHeap) Less(i, j int) bool {
	if h[i].eligibleAt.Equal(h[j].eligibleAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].eligibleAt.Before(h[j].eligibleAt)
}

func (h dispatchHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *dispatchHeap) Push(x interface{}) {
	*h = append(*h, x.(dispatchItem))
}

func (h *dispatchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
