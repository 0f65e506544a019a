package isr

import (
	"github.com/kestrelsearch/shardquery/internal/codec"
	"github.com/kestrelsearch/shardquery/internal/segment"
)

// Word iterates one term's word posting list. It carries a private Doc
// cursor used only to resolve the document containing the current
// Location; that cursor advances monotonically in step with the word's own
// Locations, so reusing one instance across calls stays correct and cheap.
type Word struct {
	stem      string
	synonym   bool
	data      []byte
	skipTable []codec.SkipEntry
	postCount int
	doc       *Doc

	pos     int
	prevLoc uint32
	cur     codec.WordPost
	state   cursorState
}

// NewWord builds a Word iterator over stem's posting list in seg, primed
// at the first post. If stem is absent from the segment's dictionary the
// returned iterator is empty (NoSuchTerm is not an error, per spec §7): it
// simply never matches.
func NewWord(seg *segment.Segment, stem string) (*Word, error) {
	pl, ok, err := seg.LookupTerm(stem)
	if err != nil {
		return nil, err
	}
	w := &Word{stem: stem, doc: NewDoc(seg)}
	if ok {
		w.data = pl.Data
		w.skipTable = pl.SkipTable
		w.postCount = pl.PostCount
	}
	w.NextInternal()
	return w, nil
}

// Stem returns the term this leaf matches.
func (w *Word) Stem() string { return w.stem }

// IsSynonym reports whether this leaf was collected from a SynOr's right
// (synonym) subtree.
func (w *Word) IsSynonym() bool { return w.synonym }

func wordToPost(p codec.WordPost) Post {
	return Post{Start: p.Location, End: p.Location, Flags: p.Flags}
}

func (w *Word) NextInternal() (Post, bool) {
	if w.state == stateDone {
		return Post{}, false
	}
	post, newLoc, n := codec.DecodeWordPost(w.data[w.pos:], w.prevLoc)
	if n == 0 {
		w.state = stateDone
		return Post{}, false
	}
	w.pos += n
	w.prevLoc = newLoc
	w.cur = post
	w.state = statePositioned
	return wordToPost(post), true
}

// Seek returns the first post whose Location is >= target.
func (w *Word) Seek(target uint32) (Post, bool) {
	if w.state == stateDone {
		return Post{}, false
	}
	if w.state == statePositioned && w.cur.Location >= target {
		return wordToPost(w.cur), true
	}

	entry := codec.FindSkip(w.skipTable, target)
	if w.state == stateBefore || entry.Offset > uint32(w.pos) {
		w.pos = int(entry.Offset)
		w.prevLoc = entry.Location
	}

	for {
		post, newLoc, n := codec.DecodeWordPost(w.data[w.pos:], w.prevLoc)
		if n == 0 {
			w.state = stateDone
			return Post{}, false
		}
		w.pos += n
		w.prevLoc = newLoc
		w.cur = post
		w.state = statePositioned
		if post.Location >= target {
			return wordToPost(post), true
		}
	}
}

// Next advances past the document containing the current Location and
// returns the next match at document granularity.
func (w *Word) Next() (Post, bool) {
	if w.state != statePositioned {
		return Post{}, false
	}
	d, ok := w.doc.Seek(w.cur.Location)
	if !ok {
		w.state = stateDone
		return Post{}, false
	}
	return w.Seek(d.End + 1)
}

func (w *Word) CurrentPost() (Post, bool) {
	if w.state != statePositioned {
		return Post{}, false
	}
	return wordToPost(w.cur), true
}

// CurrentDoc resolves the document containing the current Location.
func (w *Word) CurrentDoc() (Post, bool) {
	if w.state != statePositioned {
		return Post{}, false
	}
	return w.doc.Seek(w.cur.Location)
}

// WordSnapshot captures a Word's cursor position, for callers that must
// scan ahead and then leave the cursor exactly where they found it.
type WordSnapshot struct {
	pos     int
	prevLoc uint32
	cur     codec.WordPost
	state   cursorState
}

// Snapshot captures the current cursor position.
func (w *Word) Snapshot() WordSnapshot {
	return WordSnapshot{pos: w.pos, prevLoc: w.prevLoc, cur: w.cur, state: w.state}
}

// Restore resets the cursor to a position captured by Snapshot. It does
// not touch the private Doc cursor, which Seek/NextInternal never advance.
func (w *Word) Restore(s WordSnapshot) {
	w.pos = s.pos
	w.prevLoc = s.prevLoc
	w.cur = s.cur
	w.state = s.state
}

func (w *Word) StartLocation() uint32 { return w.cur.Location }
func (w *Word) EndLocation() uint32   { return w.cur.Location }
func (w *Word) PostCount() int        { return w.postCount }

func (w *Word) CollectTerms(seen map[string]bool, synonym bool, out *[]*Word) {
	if seen[w.stem] {
		return
	}
	seen[w.stem] = true
	w.synonym = w.synonym || synonym
	*out = append(*out, w)
}

// Clone returns an independent Word cursor over the same underlying
// posting bytes, reset to the first post. Workers in the ranker's pool
// clone the flattened term list so each has private cursor state (spec
// §4.5.3's safety rule).
func (w *Word) Clone() *Word {
	c := &Word{
		stem:      w.stem,
		synonym:   w.synonym,
		data:      w.data,
		skipTable: w.skipTable,
		postCount: w.postCount,
		doc:       &Doc{data: w.doc.data, skipTable: w.doc.skipTable, postCount: w.doc.postCount},
	}
	c.doc.NextInternal()
	c.NextInternal()
	return c
}
