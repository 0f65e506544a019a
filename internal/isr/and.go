package isr

// And matches documents where both children have a post within the same
// document range (spec §4.3.3).
type And struct {
	a, b  Iterator
	cur   Post
	state cursorState
}

func NewAnd(a, b Iterator) *And {
	n := &And{a: a, b: b}
	n.advanceToMatch()
	return n
}

// advanceToMatch runs the loop described in spec §4.3.3 until both
// children agree on a document, or one is exhausted.
func (n *And) advanceToMatch() (Post, bool) {
	for {
		l, lok := n.a.CurrentPost()
		r, rok := n.b.CurrentPost()
		if !lok || !rok {
			n.state = stateDone
			return Post{}, false
		}

		if l.Start <= r.Start {
			doc, ok := n.b.CurrentDoc()
			if !ok {
				n.state = stateDone
				return Post{}, false
			}
			if l.Start >= doc.Start && l.Start <= doc.End && r.Start <= doc.End {
				n.cur = l
				n.state = statePositioned
				return l, true
			}
			if _, ok := n.a.Seek(doc.Start); !ok {
				n.state = stateDone
				return Post{}, false
			}
		} else {
			doc, ok := n.a.CurrentDoc()
			if !ok {
				n.state = stateDone
				return Post{}, false
			}
			if r.Start >= doc.Start && r.Start <= doc.End && l.Start <= doc.End {
				n.cur = r
				n.state = statePositioned
				return r, true
			}
			if _, ok := n.b.Seek(doc.Start); !ok {
				n.state = stateDone
				return Post{}, false
			}
		}
	}
}

// NextInternal advances whichever child currently holds the smaller
// current-post start (ties favor the left child), then re-runs
// advance-to-match. This is the single "advance which child" rule spec
// §9(a) asks for.
func (n *And) NextInternal() (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	l, lok := n.a.CurrentPost()
	r, rok := n.b.CurrentPost()
	if !lok || !rok {
		n.state = stateDone
		return Post{}, false
	}
	if l.Start <= r.Start {
		if _, ok := n.a.NextInternal(); !ok {
			n.state = stateDone
			return Post{}, false
		}
	} else {
		if _, ok := n.b.NextInternal(); !ok {
			n.state = stateDone
			return Post{}, false
		}
	}
	return n.advanceToMatch()
}

func (n *And) Next() (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	if _, ok := n.a.Next(); !ok {
		n.state = stateDone
		return Post{}, false
	}
	if _, ok := n.b.Next(); !ok {
		n.state = stateDone
		return Post{}, false
	}
	return n.advanceToMatch()
}

func (n *And) Seek(target uint32) (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	if n.state == statePositioned && n.cur.Start >= target {
		return n.cur, true
	}
	if _, ok := n.a.Seek(target); !ok {
		n.state = stateDone
		return Post{}, false
	}
	if _, ok := n.b.Seek(target); !ok {
		n.state = stateDone
		return Post{}, false
	}
	return n.advanceToMatch()
}

func (n *And) CurrentPost() (Post, bool) {
	if n.state != statePositioned {
		return Post{}, false
	}
	return n.cur, true
}

func (n *And) CurrentDoc() (Post, bool) {
	if n.state != statePositioned {
		return Post{}, false
	}
	return n.a.CurrentDoc()
}

func (n *And) StartLocation() uint32 { return min32(n.a.StartLocation(), n.b.StartLocation()) }
func (n *And) EndLocation() uint32   { return max32(n.a.EndLocation(), n.b.EndLocation()) }
func (n *And) PostCount() int        { return min(n.a.PostCount(), n.b.PostCount()) }

func (n *And) CollectTerms(seen map[string]bool, synonym bool, out *[]*Word) {
	n.a.CollectTerms(seen, synonym, out)
	n.b.CollectTerms(seen, synonym, out)
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
