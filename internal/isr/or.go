package isr

type nearestSide int

const (
	nearestNone nearestSide = iota
	nearestLeft
	nearestRight
)

// Or is the union of two children, always positioned at whichever child
// currently holds the earlier post (spec §4.3.4).
type Or struct {
	a, b    Iterator
	nearest nearestSide
	state   cursorState
}

func NewOr(a, b Iterator) *Or {
	n := &Or{a: a, b: b}
	n.findNearest()
	return n
}

// findNearest picks the child with the smaller current start, ties
// favoring the left child, and updates n.state accordingly.
func (n *Or) findNearest() (Post, bool) {
	l, lok := n.a.CurrentPost()
	r, rok := n.b.CurrentPost()
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

func (n *Or) NextInternal() (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	if n.nearest == nearestLeft {
		n.a.NextInternal()
	} else {
		n.b.NextInternal()
	}
	return n.findNearest()
}

func (n *Or) Next() (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	var doc Post
	var ok bool
	if n.nearest == nearestLeft {
		doc, ok = n.a.CurrentDoc()
	} else {
		doc, ok = n.b.CurrentDoc()
	}
	if !ok {
		n.state = stateDone
		return Post{}, false
	}
	n.a.Seek(doc.End + 1)
	n.b.Seek(doc.End + 1)
	return n.findNearest()
}

func (n *Or) Seek(target uint32) (Post, bool) {
	if n.state == stateDone {
		return Post{}, false
	}
	n.a.Seek(target)
	n.b.Seek(target)
	return n.findNearest()
}

func (n *Or) CurrentPost() (Post, bool) {
	if n.state != statePositioned {
		return Post{}, false
	}
	if n.nearest == nearestLeft {
		return n.a.CurrentPost()
	}
	return n.b.CurrentPost()
}

func (n *Or) CurrentDoc() (Post, bool) {
	if n.state != statePositioned {
		return Post{}, false
	}
	if n.nearest == nearestLeft {
		return n.a.CurrentDoc()
	}
	return n.b.CurrentDoc()
}

func (n *Or) StartLocation() uint32 { return min32(n.a.StartLocation(), n.b.StartLocation()) }
func (n *Or) EndLocation() uint32   { return max32(n.a.EndLocation(), n.b.EndLocation()) }
func (n *Or) PostCount() int        { return n.a.PostCount() + n.b.PostCount() }

func (n *Or) CollectTerms(seen map[string]bool, synonym bool, out *[]*Word) {
	n.a.CollectTerms(seen, synonym, out)
	n.b.CollectTerms(seen, synonym, out)
}
