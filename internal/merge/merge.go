// Package merge combines per-segment ranked result sets into one
// shard-wide top-K list (spec §4.6), using a bounded min-heap so the
// working set never exceeds the result limit regardless of how many
// segments feed in.
package merge

import (
	"container/heap"

	"github.com/kestrelsearch/shardquery/internal/ranker"
)

// MaxResults is the shard-wide cap on merged results (spec §4.6).
const MaxResults = 10

// Merge k-way merges segmentResults (one slice per local segment, each
// already sorted score-descending by ranker.Run) into a single list of at
// most limit results, sorted score-descending. Ties favor the lower
// DocID, so merge order is deterministic across repeated runs over the
// same segment set.
func Merge(segmentResults [][]ranker.Result, limit int) []ranker.Result {
	if limit <= 0 {
		limit = MaxResults
	}
	h := &resultHeap{}
	heap.Init(h)
	for _, results := range segmentResults {
		for _, r := range results {
			heap.Push(h, r)
			if h.Len() > limit {
				heap.Pop(h)
			}
		}
	}
	out := make([]ranker.Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(ranker.Result)
	}
	return out
}

// resultHeap is a min-heap on Score (ties broken toward the higher
// DocID), so the weakest candidate sits at the root and is what Pop
// evicts once the heap exceeds the limit.
type resultHeap []ranker.Result

func (h resultHeap) Len() int { return len(h) }

func (h resultHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x interface{}) {
	*h = append(*h, x.(ranker.Result))
}

func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
