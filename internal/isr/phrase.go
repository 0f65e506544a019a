package isr

// Phrase matches an ordered, consecutive sequence of word occurrences
// (spec §4.3.7): terms[i] must land at exactly base+i for every i.
type Phrase struct {
	terms []*Word
	cur   Post
	state cursorState
}

func NewPhrase(terms []*Word) *Phrase {
	p := &Phrase{terms: terms}
	p.advanceToMatch()
	return p
}

func (p *Phrase) advanceToMatch() (Post, bool) {
	if len(p.terms) == 0 {
		p.state = stateDone
		return Post{}, false
	}
	for {
		first, ok := p.terms[0].CurrentPost()
		if !ok {
			p.state = stateDone
			return Post{}, false
		}
		base := first.Start

		match := true
		for i := 1; i < len(p.terms); i++ {
			expected := base + uint32(i)
			post, ok := p.terms[i].Seek(expected)
			if !ok || post.Start != expected {
				if _, ok := p.terms[0].Seek(base + 1); !ok {
					p.state = stateDone
					return Post{}, false
				}
				match = false
				break
			}
		}
		if match {
			p.cur = first
			p.state = statePositioned
			return first, true
		}
	}
}

func (p *Phrase) NextInternal() (Post, bool) {
	if p.state != statePositioned {
		return Post{}, false
	}
	return p.Seek(p.cur.Start + 1)
}

func (p *Phrase) Next() (Post, bool) {
	if p.state != statePositioned {
		return Post{}, false
	}
	doc, ok := p.terms[0].CurrentDoc()
	if !ok {
		p.state = stateDone
		return Post{}, false
	}
	return p.Seek(doc.End + 1)
}

func (p *Phrase) Seek(target uint32) (Post, bool) {
	if p.state == statePositioned && p.cur.Start >= target {
		return p.cur, true
	}
	if p.state == stateDone {
		return Post{}, false
	}
	if _, ok := p.terms[0].Seek(target); !ok {
		p.state = stateDone
		return Post{}, false
	}
	return p.advanceToMatch()
}

func (p *Phrase) CurrentPost() (Post, bool) {
	if p.state != statePositioned {
		return Post{}, false
	}
	return p.cur, true
}

func (p *Phrase) CurrentDoc() (Post, bool) {
	if p.state != statePositioned {
		return Post{}, false
	}
	return p.terms[0].CurrentDoc()
}

func (p *Phrase) StartLocation() uint32 { return p.terms[0].StartLocation() }
func (p *Phrase) EndLocation() uint32   { return p.terms[len(p.terms)-1].EndLocation() }
func (p *Phrase) PostCount() int        { return p.terms[0].PostCount() }

func (p *Phrase) CollectTerms(seen map[string]bool, synonym bool, out *[]*Word) {
	for _, t := range p.terms {
		t.CollectTerms(seen, synonym, out)
	}
}
