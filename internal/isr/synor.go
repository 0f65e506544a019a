package isr

// SynOr is a weighted union between an original term subtree (left) and a
// synonym subtree (right), sampling documents from each side in the ratio
// advanceRight:advanceLeft (spec §4.3.5).
type SynOr struct {
	left, right               Iterator
	advanceLeft, advanceRight uint32
	nearest                   nearestSide
	state                     cursorState
}

// NewSynOr builds a SynOr node. advanceRight and advanceLeft come off the
// wire in that order (spec §6.1's SynOrExpr); rpc.StepTermSynonym (1) and
// rpc.StepTermOriginal (2) are the defaults for callers constructing a
// query programmatically rather than from the wire grammar.
func NewSynOr(left, right Iterator, advanceRight, advanceLeft uint32) *SynOr {
	n := &SynOr{left: left, right: right, advanceRight: advanceRight, advanceLeft: advanceLeft}
	n.findNearest()
	return n
}

func (n *SynOr) findNearest() (Post, bool) {
	l, lok := n.left.CurrentPost()
	r, rok := n.right.CurrentPost()
	switch {
	case !lok && !rok:
		n.nearest = nearestNone
		n.state = stateDone
		return Post{}, false
	case !rok, lok && l.Start <= r.Start:
		n.nearest = nearestLeft
		n.state = statePositioned
		return l, true
	default:
		n.nearest = nearestRight
		n.state = statePositioned
		return r, true
	}
}

// NextInternal advances the nearer side by its own advance count: the left
// (original) side advanceLeft times, the right (synonym) side
// advanceRight times.
func (n *SynOr) NextInternal() (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	if n.nearest == nearestLeft {
		for i := uint32(0); i < n.advanceLeft; i++ {
			if _, ok := n.left.NextInternal(); !ok {
				break
			}
		}
	} else {
		for i := uint32(0); i < n.advanceRight; i++ {
			if _, ok := n.right.NextInternal(); !ok {
				break
			}
		}
	}
	return n.findNearest()
}

// Next seeks both sides past the current document, then advances the
// *other* side max(advance-1, 0) more times so that, across the query,
// documents are sampled from left and right in the advanceRight:advanceLeft
// ratio (spec §9(c)).
func (n *SynOr) Next() (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	var doc Post
	var ok bool
	if n.nearest == nearestLeft {
		doc, ok = n.left.CurrentDoc()
	} else {
		doc, ok = n.right.CurrentDoc()
	}
	if !ok {
		n.state = stateDone
		return Post{}, false
	}
	n.left.Seek(doc.End + 1)
	n.right.Seek(doc.End + 1)

	if n.nearest == nearestLeft {
		for i := uint32(0); i < subOne(n.advanceRight); i++ {
			if _, ok := n.right.Next(); !ok {
				break
			}
		}
	} else {
		for i := uint32(0); i < subOne(n.advanceLeft); i++ {
			if _, ok := n.left.Next(); !ok {
				break
			}
		}
	}
	return n.findNearest()
}

func subOne(v uint32) uint32 {
	if v == 0 {
		return 0
	}
	return v - 1
}

func (n *SynOr) Seek(target uint32) (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	n.left.Seek(target)
	n.right.Seek(target)
	return n.findNearest()
}

func (n *SynOr) CurrentPost() (Post, bool) {
	if n.state != statePositioned {
		return Post{}, false
	}
	if n.nearest == nearestLeft {
		return n.left.CurrentPost()
	}
	return n.right.CurrentPost()
}

func (n *SynOr) CurrentDoc() (Post, bool) {
	if n.state != statePositioned {
		return Post{}, false
	}
	if n.nearest == nearestLeft {
		return n.left.CurrentDoc()
	}
	return n.right.CurrentDoc()
}

func (n *SynOr) StartLocation() uint32 {
	return min32(n.left.StartLocation(), n.right.StartLocation())
}
func (n *SynOr) EndLocation() uint32 { return max32(n.left.EndLocation(), n.right.EndLocation()) }
func (n *SynOr) PostCount() int      { return n.left.PostCount() + n.right.PostCount() }

// CollectTerms marks every term under the right subtree as a synonym,
// regardless of whether it is otherwise nested under another SynOr's
// right subtree (in which case synonym is already true and stays true).
func (n *SynOr) CollectTerms(seen map[string]bool, synonym bool, out *[]*Word) {
	n.left.CollectTerms(seen, synonym, out)
	n.right.CollectTerms(seen, true, out)
}
