package isr

import (
	"github.com/kestrelsearch/shardquery/internal/codec"
	"github.com/kestrelsearch/shardquery/internal/segment"
)

// Doc iterates a segment's single doc-end posting list. It is both a
// first-class node (used as the query tree's implicit document root) and
// the private cursor every Word leaf carries to resolve "which document
// contains this location".
type Doc struct {
	data      []byte
	skipTable []codec.SkipEntry
	postCount int

	pos     int
	prevEnd uint32
	cur     codec.DocumentPost
	state   cursorState
}

// NewDoc builds a Doc iterator over a segment's doc-end list, primed at
// the first document.
func NewDoc(seg *segment.Segment) *Doc {
	pl := seg.DocEndList()
	d := &Doc{data: pl.Data, skipTable: pl.SkipTable, postCount: pl.PostCount}
	d.NextInternal()
	return d
}

func toPost(p codec.DocumentPost) Post {
	return Post{Start: p.Start, End: p.End, DocID: p.DocID}
}

func (d *Doc) NextInternal() (Post, bool) {
	if d.state == stateDone {
		return Post{}, false
	}
	post, newEnd, n := codec.DecodeDocPost(d.data[d.pos:], d.prevEnd)
	if n == 0 {
		d.state = stateDone
		return Post{}, false
	}
	d.pos += n
	d.prevEnd = newEnd
	d.cur = post
	d.state = statePositioned
	return toPost(post), true
}

// Seek returns the first document whose end Location is >= target.
func (d *Doc) Seek(target uint32) (Post, bool) {
	if d.state == stateDone {
		return Post{}, false
	}
	if d.state == statePositioned && d.cur.End >= target {
		return toPost(d.cur), true
	}

	entry := codec.FindSkip(d.skipTable, target)
	if d.state == stateBefore || entry.Offset > uint32(d.pos) {
		d.pos = int(entry.Offset)
		d.prevEnd = entry.Location
	}

	for {
		post, newEnd, n := codec.DecodeDocPost(d.data[d.pos:], d.prevEnd)
		if n == 0 {
			d.state = stateDone
			return Post{}, false
		}
		d.pos += n
		d.prevEnd = newEnd
		d.cur = post
		d.state = statePositioned
		if post.End >= target {
			return toPost(post), true
		}
	}
}

// Next advances past the current document; for the doc-end list itself
// this is identical to seeking one past its own end.
func (d *Doc) Next() (Post, bool) {
	if d.state != statePositioned {
		return Post{}, false
	}
	return d.Seek(d.cur.End + 1)
}

func (d *Doc) CurrentPost() (Post, bool) {
	if d.state != statePositioned {
		return Post{}, false
	}
	return toPost(d.cur), true
}

func (d *Doc) CurrentDoc() (Post, bool) { return d.CurrentPost() }

func (d *Doc) StartLocation() uint32 { return d.cur.Start }
func (d *Doc) EndLocation() uint32   { return d.cur.End }
func (d *Doc) PostCount() int        { return d.postCount }

func (d *Doc) CollectTerms(seen map[string]bool, synonym bool, out *[]*Word) {}
