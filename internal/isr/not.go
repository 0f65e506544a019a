package isr

// Not (the "Container" node) matches documents where included has a post
// whose document range does not also contain a post from excluded (spec
// §4.3.6).
type Not struct {
	included, excluded Iterator
	cur                Post
	state              cursorState
}

func NewNot(included, excluded Iterator) *Not {
	n := &Not{included: included, excluded: excluded}
	n.advanceToMatch()
	return n
}

// advanceToMatch walks included forward until its current document has no
// excluded post inside [doc.Start, doc.End), or included is exhausted.
func (n *Not) advanceToMatch() (Post, bool) {
	for {
		cur, ok := n.included.CurrentPost()
		if !ok {
			n.state = stateDone
			return Post{}, false
		}
		doc, ok := n.included.CurrentDoc()
		if !ok {
			n.state = stateDone
			return Post{}, false
		}
		n.excluded.Seek(doc.Start)
		if ex, ok := n.excluded.CurrentPost(); ok && ex.Start >= doc.Start && ex.Start < doc.End {
			if _, ok := n.included.Next(); !ok {
				n.state = stateDone
				return Post{}, false
			}
			continue
		}
		n.cur = cur
		n.state = statePositioned
		return cur, true
	}
}

func (n *Not) Next() (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	if _, ok := n.included.Next(); !ok {
		n.state = stateDone
		return Post{}, false
	}
	return n.advanceToMatch()
}

func (n *Not) NextInternal() (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	if _, ok := n.included.NextInternal(); !ok {
		n.state = stateDone
		return Post{}, false
	}
	return n.advanceToMatch()
}

func (n *Not) Seek(target uint32) (Post, bool) {
	if n.state == statePositioned && n.cur.Start >= target {
		return n.cur, true
	}
	if n.state == stateDone {
		return Post{}, false
	}
	if _, ok := n.included.Seek(target); !ok {
		n.state = stateDone
		return Post{}, false
	}
	return n.advanceToMatch()
}

func (n *Not) CurrentPost() (Post, bool) {
	if n.state != statePositioned {
		return Post{}, false
	}
	return n.cur, true
}

func (n *Not) CurrentDoc() (Post, bool) { return n.included.CurrentDoc() }

func (n *Not) StartLocation() uint32 { return n.included.StartLocation() }
func (n *Not) EndLocation() uint32   { return n.included.EndLocation() }
func (n *Not) PostCount() int        { return n.included.PostCount() }

// CollectTerms only descends into included: the excluded subtree's terms
// never participate in ranking, matching the original's collectTerms which
// walks isr1 alone.
func (n *Not) CollectTerms(seen map[string]bool, synonym bool, out *[]*Word) {
	n.included.CollectTerms(seen, synonym, out)
}
