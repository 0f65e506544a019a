package ranker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelsearch/shardquery/internal/codec"
	"github.com/kestrelsearch/shardquery/internal/isr"
	"github.com/kestrelsearch/shardquery/internal/segment"
)

func openFixture(t *testing.T, w *segment.Writer) *segment.Segment {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.seg")
	if err := os.WriteFile(path, w.Build(8), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	seg, err := segment.Open(path, nil, false)
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	t.Cleanup(func() { seg.Close() })
	return seg
}

func wordAt(w *segment.Writer, stem string, loc uint32, flags uint8) {
	w.AddPost(stem, loc, flags)
}

func TestRunRejectsOverlongTitle(t *testing.T) {
	w := segment.NewWriter()
	// doc0: a good match for "cat", bold, short title -> should rank.
	wordAt(w, "cat", 5, codec.FlagBold)
	w.AddDocument(segment.Attributes{
		URL: "https://good.example/", Title: "Cats", WordCount: 500,
		URLLength: 20, TitleLength: 4, Start: 1, End: 10, English: true, TLD: segment.TLDCom,
	})
	// doc1: also matches "cat" but title is too long -> must be rejected.
	wordAt(w, "cat", 15, codec.FlagBold)
	w.AddDocument(segment.Attributes{
		URL: "https://bad.example/", Title: "A Very Long Title That Exceeds The Forty Character Budget By A Lot",
		WordCount: 500, URLLength: 20, TitleLength: 50, Start: 11, End: 20, English: true, TLD: segment.TLDCom,
	})

	seg := openFixture(t, w)
	root, err := isr.NewWord(seg, "cat")
	if err != nil {
		t.Fatalf("NewWord: %v", err)
	}
	terms := Terms{Words: []*isr.Word{root}, Synonym: []bool{false}, QueryStems: []string{"cat"}}

	results, _ := Run(root, seg, terms, 10, Params{Workers: 2, MaxDocs: 100})
	for _, r := range results {
		if r.DocID == 1 {
			t.Fatalf("doc1 with titleLength=50 should have been rejected, got %+v", r)
		}
	}
}

func TestRunBoundsResultCount(t *testing.T) {
	w := segment.NewWriter()
	for i := uint32(0); i < 20; i++ {
		loc := i*10 + 1
		wordAt(w, "cat", loc, codec.FlagBold|codec.FlagHeading)
		w.AddDocument(segment.Attributes{
			URL: "https://good.example/cat", Title: "Cat", WordCount: 400,
			URLLength: 24, TitleLength: 3, Start: loc, End: loc + 8, English: true, TLD: segment.TLDOrg,
		})
	}

	seg := openFixture(t, w)
	root, err := isr.NewWord(seg, "cat")
	if err != nil {
		t.Fatalf("NewWord: %v", err)
	}
	terms := Terms{Words: []*isr.Word{root}, Synonym: []bool{false}, QueryStems: []string{"cat"}}

	results, _ := Run(root, seg, terms, 10, Params{Workers: 4, MaxDocs: 100})
	if len(results) > 10 {
		t.Fatalf("got %d results, want <= 10", len(results))
	}
	seen := make(map[uint32]bool)
	for i, r := range results {
		if seen[r.DocID] {
			t.Fatalf("docID %d appears twice in results", r.DocID)
		}
		seen[r.DocID] = true
		if i > 0 && r.Score > results[i-1].Score {
			t.Fatalf("results not score-descending at index %d", i)
		}
	}
}

func TestRunNoMatchesYieldsNoResults(t *testing.T) {
	w := segment.NewWriter()
	wordAt(w, "dog", 1, 0)
	w.AddDocument(segment.Attributes{
		URL: "https://x.example/", Title: "Dogs", WordCount: 300,
		URLLength: 18, TitleLength: 4, Start: 1, End: 10, English: true, TLD: segment.TLDCom,
	})

	seg := openFixture(t, w)
	root, err := isr.NewWord(seg, "cat")
	if err != nil {
		t.Fatalf("NewWord: %v", err)
	}
	terms := Terms{Words: []*isr.Word{root}, Synonym: []bool{false}, QueryStems: []string{"cat"}}

	results, _ := Run(root, seg, terms, 10, Params{Workers: 2, MaxDocs: 100})
	if len(results) != 0 {
		t.Fatalf("got %d results for a term absent from the segment, want 0", len(results))
	}
}
