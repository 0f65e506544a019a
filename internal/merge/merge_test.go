package merge

import (
	"testing"

	"github.com/kestrelsearch/shardquery/internal/ranker"
)

func TestMergeBoundsToLimit(t *testing.T) {
	var segs [][]ranker.Result
	for s := 0; s < 3; s++ {
		var results []ranker.Result
		for i := 0; i < 8; i++ {
			results = append(results, ranker.Result{
				DocID: uint32(s*100 + i),
				Score: float64(i) + float64(s)*0.01,
			})
		}
		segs = append(segs, results)
	}

	merged := Merge(segs, 10)
	if len(merged) != 10 {
		t.Fatalf("got %d results, want 10", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Score > merged[i-1].Score {
			t.Fatalf("results not score-descending at index %d", i)
		}
	}
}

func TestMergeKeepsHighestScores(t *testing.T) {
	segs := [][]ranker.Result{
		{{DocID: 1, Score: 0.9}, {DocID: 2, Score: 0.1}},
		{{DocID: 3, Score: 0.5}},
	}
	merged := Merge(segs, 2)
	if len(merged) != 2 {
		t.Fatalf("got %d results, want 2", len(merged))
	}
	if merged[0].DocID != 1 || merged[1].DocID != 3 {
		t.Fatalf("got %+v, want doc1 then doc3 (doc2's 0.1 should be evicted)", merged)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	if got := Merge(nil, 10); len(got) != 0 {
		t.Fatalf("got %d results for empty input, want 0", len(got))
	}
}

func TestMergeDefaultsLimitWhenNonPositive(t *testing.T) {
	var results []ranker.Result
	for i := 0; i < 15; i++ {
		results = append(results, ranker.Result{DocID: uint32(i), Score: float64(i)})
	}
	merged := Merge([][]ranker.Result{results}, 0)
	if len(merged) != MaxResults {
		t.Fatalf("got %d results, want default limit %d", len(merged), MaxResults)
	}
}
