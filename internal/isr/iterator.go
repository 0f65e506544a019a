// Package isr implements the positional-iterator ("index stream reader")
// tree that every query expression compiles into: Word and Doc leaves over
// a single segment, and And, Or, SynOr, Not, Phrase combinators over them.
package isr

// Post is the uniform cursor position every iterator reports. For a Word
// leaf, Start and End both equal the matched Location; for a Doc leaf (or
// any composite node reporting a document-level match) Start/End/DocID
// describe the document range.
type Post struct {
	Start uint32
	End   uint32
	DocID uint32
	Flags uint8
}

// Iterator is the capability set every ISR node exposes (spec §4.3).
type Iterator interface {
	// Next advances past the current document and returns the next match
	// at document granularity.
	Next() (Post, bool)
	// NextInternal advances one underlying posting step, used by the
	// ranker to enumerate occurrences within a single document.
	NextInternal() (Post, bool)
	// Seek returns the first match with start Location >= target. It is
	// idempotent: seeking to a target at or behind the current position
	// leaves the cursor untouched.
	Seek(target uint32) (Post, bool)
	CurrentPost() (Post, bool)
	CurrentDoc() (Post, bool)
	StartLocation() uint32
	EndLocation() uint32
	PostCount() int
	// CollectTerms appends every distinct leaf Word reachable under this
	// node to out, skipping stems already present in seen. synonym marks
	// every collected Word as a synonym term (propagated by SynOr's right
	// subtree).
	CollectTerms(seen map[string]bool, synonym bool, out *[]*Word)
}

type cursorState int

const (
	stateBefore cursorState = iota
	statePositioned
	stateDone
)
