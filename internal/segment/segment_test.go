package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrelsearch/shardquery/internal/codec"
)

func writeFixture(t *testing.T, w *Writer, bucketCount uint32) *Segment {
	t.Helper()
	img := w.Build(bucketCount)
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.seg")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	seg, err := Open(path, nil, false)
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	t.Cleanup(func() { seg.Close() })
	return seg
}

func TestURLAndAttributesRoundTrip(t *testing.T) {
	w := NewWriter()
	w.AddDocument(Attributes{
		URL: "https://example.com/a", Title: "Example Page",
		WordCount: 10, URLLength: 3, TitleLength: 2,
		Start: 1, End: 20, English: true, TLD: TLDCom,
	})
	w.AddDocument(Attributes{
		URL: "https://example.org/b", Title: "Other",
		WordCount: 5, URLLength: 3, TitleLength: 1,
		Start: 21, End: 30, English: false, TLD: TLDOrg,
	})

	seg := writeFixture(t, w, 4)

	url, err := seg.URL(0)
	if err != nil || url != "https://example.com/a" {
		t.Fatalf("URL(0) = %q, %v", url, err)
	}
	attrs, err := seg.Attributes(1)
	if err != nil {
		t.Fatalf("Attributes(1): %v", err)
	}
	if attrs.Title != "Other" || attrs.TLD != TLDOrg || attrs.English {
		t.Fatalf("Attributes(1) = %+v", attrs)
	}
	if seg.DocCount() != 2 {
		t.Fatalf("DocCount() = %d, want 2", seg.DocCount())
	}
}

func TestLookupTermRoundTrip(t *testing.T) {
	w := NewWriter()
	w.AddDocument(Attributes{URL: "u", Title: "t", Start: 1, End: 100})
	w.AddPost("gopher", 5, codec.FlagBold)
	w.AddPost("gopher", 42, 0)
	w.AddPost("@gopher", 3, codec.FlagHeading)
	w.AddPost("badger", 7, 0)

	seg := writeFixture(t, w, 8)

	pl, ok, err := seg.LookupTerm("gopher")
	if err != nil || !ok {
		t.Fatalf("LookupTerm(gopher) ok=%v err=%v", ok, err)
	}
	if pl.PostCount != 2 {
		t.Fatalf("PostCount = %d, want 2", pl.PostCount)
	}
	post, _, n := codec.DecodeWordPost(pl.Data, 0)
	if n == 0 || post.Location != 5 || post.Flags != codec.FlagBold {
		t.Fatalf("first post = %+v n=%d", post, n)
	}

	titlePl, ok, err := seg.LookupTerm("@gopher")
	if err != nil || !ok || titlePl.PostCount != 1 {
		t.Fatalf("LookupTerm(@gopher) ok=%v err=%v pl=%+v", ok, err, titlePl)
	}

	_, ok, err = seg.LookupTerm("missing")
	if err != nil || ok {
		t.Fatalf("LookupTerm(missing) ok=%v err=%v, want ok=false", ok, err)
	}
}

func TestLookupTermHashCollisionChain(t *testing.T) {
	w := NewWriter()
	w.AddDocument(Attributes{URL: "u", Title: "t", Start: 1, End: 10})
	terms := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}
	for i, term := range terms {
		w.AddPost(term, uint32(i+1), 0)
	}
	// A single bucket forces every term into one hash chain.
	seg := writeFixture(t, w, 1)

	for i, term := range terms {
		pl, ok, err := seg.LookupTerm(term)
		if err != nil || !ok {
			t.Fatalf("LookupTerm(%q) ok=%v err=%v", term, ok, err)
		}
		post, _, n := codec.DecodeWordPost(pl.Data, 0)
		if n == 0 || post.Location != uint32(i+1) {
			t.Fatalf("LookupTerm(%q) post=%+v, want location %d", term, post, i+1)
		}
	}
}

func TestDocEndListRoundTrip(t *testing.T) {
	w := NewWriter()
	w.AddDocument(Attributes{URL: "a", Title: "a", Start: 1, End: 10})
	w.AddDocument(Attributes{URL: "b", Title: "b", Start: 11, End: 25})
	w.AddDocument(Attributes{URL: "c", Title: "c", Start: 26, End: 30})

	seg := writeFixture(t, w, 4)
	pl := seg.DocEndList()
	if pl.PostCount != 3 {
		t.Fatalf("PostCount = %d, want 3", pl.PostCount)
	}

	offset := 0
	var prevEnd uint32
	wantEnds := []uint32{10, 25, 30}
	for i, wantEnd := range wantEnds {
		post, newEnd, n := codec.DecodeDocPost(pl.Data[offset:], prevEnd)
		if n == 0 {
			t.Fatalf("doc %d: truncated", i)
		}
		if post.End != wantEnd || post.DocID != uint32(i) {
			t.Fatalf("doc %d = %+v, want End=%d DocID=%d", i, post, wantEnd, i)
		}
		prevEnd = newEnd
		offset += n
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.seg")
	if err := os.WriteFile(path, make([]byte, HeaderSize+4), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Open(path, nil, false); err == nil {
		t.Fatalf("expected Open to reject a file with zeroed header")
	}
}
