package ranker

import (
	"testing"

	"github.com/kestrelsearch/shardquery/internal/codec"
	"github.com/kestrelsearch/shardquery/internal/isr"
	"github.com/kestrelsearch/shardquery/internal/segment"
)

// TestRunSynonymRescue drives a candidate through the full retry path spec
// §4.5.2 describes: the primary term list alone scores below
// dynamicCutoff, but filtering down to just the synonym-marked term and
// re-scoring pushes the combined score back over the cutoff, so the
// document survives instead of being dropped. "cat" is the query term and
// never appears in the title; "feline" is its synonym, absent from the
// body's phrase neighborhood but present densely enough (body and title)
// to carry the retry on its own once occurrencesInDoc hands the retry
// fresh, unconsumed cursors for the same Word pointers the primary pass
// already scanned.
func TestRunSynonymRescue(t *testing.T) {
	w := segment.NewWriter()
	wordAt(w, "cat", 150, 0)
	wordAt(w, "feline", 200, codec.FlagBold|codec.FlagHeading)
	wordAt(w, "feline", 205, codec.FlagBold|codec.FlagHeading)
	wordAt(w, "feline", 210, codec.FlagBold|codec.FlagHeading)
	wordAt(w, "@feline", 220, codec.FlagBold|codec.FlagHeading)
	wordAt(w, "@feline", 225, codec.FlagBold|codec.FlagHeading)
	w.AddDocument(segment.Attributes{
		URL: "https://example.org/page", Title: "Pets", WordCount: 100,
		URLLength: 24, TitleLength: 4, Start: 1, End: 300, English: true, TLD: segment.TLDOrg,
	})

	seg := openFixture(t, w)

	root, err := isr.NewWord(seg, "cat")
	if err != nil {
		t.Fatalf("NewWord(cat): %v", err)
	}
	feline, err := isr.NewWord(seg, "feline")
	if err != nil {
		t.Fatalf("NewWord(feline): %v", err)
	}
	terms := Terms{
		Words:      []*isr.Word{root, feline},
		Synonym:    []bool{false, true},
		QueryStems: []string{"cat", "feline"},
	}

	results, processed := Run(root, seg, terms, 10, Params{Workers: 1, MaxDocs: 10})
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	if len(results) != 1 {
		t.Fatalf("results = %v, want exactly one rescued document", results)
	}
	if results[0].DocID != 0 {
		t.Fatalf("got DocID %d, want 0", results[0].DocID)
	}
	if results[0].Score <= 0 {
		t.Fatalf("rescued document scored %v, want > 0", results[0].Score)
	}
}

// TestScoreDocumentSynonymRescueNeedsRestoredCursors isolates the same
// scenario at the scoreDocument level (no worker pool, no cloning) so the
// retry's dependence on occurrencesInDoc restoring its cursor is explicit:
// bodyTerms and titleTerms are the very same *isr.Word pointers passed to
// the first extractDynamic call and then, via filterSynonyms, to the
// retry's. If occurrencesInDoc left "feline"/"@feline" positioned past the
// document's end after the first pass, the retry would see zero
// occurrences and dyn would only ever fall (0.6*dyn < dyn), never rescuing.
func TestScoreDocumentSynonymRescueNeedsRestoredCursors(t *testing.T) {
	w := segment.NewWriter()
	wordAt(w, "cat", 150, 0)
	wordAt(w, "feline", 200, codec.FlagBold|codec.FlagHeading)
	wordAt(w, "feline", 205, codec.FlagBold|codec.FlagHeading)
	wordAt(w, "feline", 210, codec.FlagBold|codec.FlagHeading)
	wordAt(w, "@feline", 220, codec.FlagBold|codec.FlagHeading)
	wordAt(w, "@feline", 225, codec.FlagBold|codec.FlagHeading)
	attrs := segment.Attributes{
		URL: "https://example.org/page", Title: "Pets", WordCount: 100,
		URLLength: 24, TitleLength: 4, Start: 1, End: 300, English: true, TLD: segment.TLDOrg,
	}
	w.AddDocument(attrs)

	seg := openFixture(t, w)

	cat, err := isr.NewWord(seg, "cat")
	if err != nil {
		t.Fatalf("NewWord(cat): %v", err)
	}
	feline, err := isr.NewWord(seg, "feline")
	if err != nil {
		t.Fatalf("NewWord(feline): %v", err)
	}
	felineTitle, err := isr.NewWord(seg, "@feline")
	if err != nil {
		t.Fatalf("NewWord(@feline): %v", err)
	}

	terms := Terms{
		Words:      []*isr.Word{cat, feline},
		Synonym:    []bool{false, true},
		QueryStems: []string{"cat", "feline"},
	}
	bodyTerms := []*isr.Word{cat, feline}
	titleTerms := []*isr.Word{nil, felineTitle}

	score, ok := scoreDocument(attrs.Start, attrs.End, attrs, bodyTerms, titleTerms, terms)
	if !ok {
		t.Fatal("scoreDocument rejected the document; the synonym retry should have rescued it")
	}
	if score <= 0 {
		t.Fatalf("rescued score = %v, want > 0", score)
	}
}
