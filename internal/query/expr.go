// Package query deserializes the binary prefix query grammar (spec §6.1)
// into an expression tree, then binds that tree to a segment to produce an
// ISR iterator tree ready for ranking.
package query

import (
	"github.com/kestrelsearch/shardquery/internal/isr"
	"github.com/kestrelsearch/shardquery/internal/segment"
)

// Expr is one node of a parsed, segment-independent query tree. The same
// Expr tree is bound against every local segment a shard holds.
type Expr interface {
	Bind(seg *segment.Segment) (isr.Iterator, error)
}

type WordExpr struct {
	Stem string
}

func (e *WordExpr) Bind(seg *segment.Segment) (isr.Iterator, error) {
	return isr.NewWord(seg, e.Stem)
}

type PhraseExpr struct {
	Stems []string
}

func (e *PhraseExpr) Bind(seg *segment.Segment) (isr.Iterator, error) {
	words := make([]*isr.Word, len(e.Stems))
	for i, stem := range e.Stems {
		w, err := isr.NewWord(seg, stem)
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return isr.NewPhrase(words), nil
}

type AndExpr struct {
	Left, Right Expr
}

func (e *AndExpr) Bind(seg *segment.Segment) (isr.Iterator, error) {
	l, err := e.Left.Bind(seg)
	if err != nil {
		return nil, err
	}
	r, err := e.Right.Bind(seg)
	if err != nil {
		return nil, err
	}
	return isr.NewAnd(l, r), nil
}

type OrExpr struct {
	Left, Right Expr
}

func (e *OrExpr) Bind(seg *segment.Segment) (isr.Iterator, error) {
	l, err := e.Left.Bind(seg)
	if err != nil {
		return nil, err
	}
	r, err := e.Right.Bind(seg)
	if err != nil {
		return nil, err
	}
	return isr.NewOr(l, r), nil
}

// SynOrExpr is the weighted synonym union; AdvanceRight and AdvanceLeft
// come off the wire in that order (spec §6.1).
type SynOrExpr struct {
	Left, Right               Expr
	AdvanceRight, AdvanceLeft uint32
}

func (e *SynOrExpr) Bind(seg *segment.Segment) (isr.Iterator, error) {
	l, err := e.Left.Bind(seg)
	if err != nil {
		return nil, err
	}
	r, err := e.Right.Bind(seg)
	if err != nil {
		return nil, err
	}
	return isr.NewSynOr(l, r, e.AdvanceRight, e.AdvanceLeft), nil
}

// NotExpr's Excluded operand is bound as the Container's excluded child
// (spec §9(b)'s "reserved slot" reading, required for scenario S4).
type NotExpr struct {
	Included, Excluded Expr
}

func (e *NotExpr) Bind(seg *segment.Segment) (isr.Iterator, error) {
	i, err := e.Included.Bind(seg)
	if err != nil {
		return nil, err
	}
	x, err := e.Excluded.Bind(seg)
	if err != nil {
		return nil, err
	}
	return isr.NewNot(i, x), nil
}
