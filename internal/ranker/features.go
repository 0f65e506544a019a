package ranker

import (
	"github.com/kestrelsearch/shardquery/internal/codec"
	"github.com/kestrelsearch/shardquery/internal/isr"
)

// occurrence is one query-term hit inside a candidate document's range.
type occurrence struct {
	loc   uint32
	flags uint8
}

// occurrencesInDoc enumerates every occurrence of term within [start, end]
// via seek + next_internal, per spec §4.5.1. A nil term (left by a failed
// title-term lookup in buildTitleTerms) yields no occurrences. The scan
// leaves term's cursor exactly where it found it: Seek never rewinds (spec
// §4.3.1), so without restoring, a second call over the same document
// (the synonym retry in score.go re-extracts over the same body/title
// Words) would find the cursor already past end and report zero
// occurrences every time.
func occurrencesInDoc(term *isr.Word, start, end uint32) []occurrence {
	if term == nil {
		return nil
	}
	snap := term.Snapshot()
	defer term.Restore(snap)

	var out []occurrence
	post, ok := term.Seek(start)
	for ok && post.Start <= end {
		out = append(out, occurrence{loc: post.Start, flags: post.Flags})
		post, ok = term.NextInternal()
	}
	return out
}

// dynamicFeatures is the set of per-term-list counters spec §4.5.1 names.
type dynamicFeatures struct {
	exactPhraseCount  int
	orderedCount      int
	closeCount        int
	doubleCount       int
	tripleCount       int
	boldHeadingCount  int
	topPositionSpans  int
	firstSpanPosition uint32
	hasSpans          bool
	termFrequencies   []float64 // occurrence count / wordCount, per term
}

// extractDynamic runs the span-enumeration algorithm of spec §4.5.1 over
// terms restricted to the document range [start, end]. wordCount scales
// occurrence counts into frequencies for the freq-tier scoring step.
func extractDynamic(terms []*isr.Word, start, end uint32, wordCount uint32) dynamicFeatures {
	var f dynamicFeatures
	if len(terms) == 0 {
		return f
	}

	perTerm := make([][]occurrence, len(terms))
	for i, t := range terms {
		perTerm[i] = occurrencesInDoc(t, start, end)
	}

	f.termFrequencies = make([]float64, len(terms))
	if wordCount > 0 {
		for i, occs := range perTerm {
			f.termFrequencies[i] = float64(len(occs)) / float64(wordCount)
		}
	}

	rarest := -1
	for i, occs := range perTerm {
		if len(occs) == 0 {
			continue
		}
		if rarest == -1 || len(occs) < len(perTerm[rarest]) {
			rarest = i
		}
	}
	if rarest == -1 {
		return f
	}

	for _, base := range perTerm[rarest] {
		if !f.hasSpans {
			f.hasSpans = true
			f.firstSpanPosition = base.loc
		}

		matchedCount := 1
		exact := true
		ordered := true
		closeMatch := true
		boldHeading := base.flags&(codec.FlagBold|codec.FlagHeading) != 0
		lastMatchedLoc := base.loc

		for i, occs := range perTerm {
			if i == rarest {
				continue
			}
			offset := i - rarest
			expected := int64(base.loc) + int64(offset)
			if len(occs) == 0 {
				exact = false
				ordered = false
				closeMatch = false
				continue
			}
			closest, diff := nearest(occs, expected)
			if diff > CloseThreshold {
				exact = false
				ordered = false
				closeMatch = false
				continue
			}
			matchedCount++
			if closest.flags&(codec.FlagBold|codec.FlagHeading) != 0 {
				boldHeading = true
			}
			if int64(closest.loc) != expected {
				exact = false
			}
			if closest.loc <= lastMatchedLoc {
				ordered = false
			}
			lastMatchedLoc = closest.loc
		}

		if exact {
			f.exactPhraseCount++
		}
		if ordered {
			f.orderedCount++
		}
		if closeMatch {
			f.closeCount++
		}
		if matchedCount >= 2 {
			f.doubleCount++
		}
		if matchedCount >= 3 {
			f.tripleCount++
		}
		if boldHeading {
			f.boldHeadingCount++
		}
		if base.loc <= TopPositionThreshold {
			f.topPositionSpans++
		}
	}

	return f
}

// nearest returns the occurrence in occs closest to expected and the
// absolute distance, in Location units, from that occurrence to expected.
func nearest(occs []occurrence, expected int64) (occurrence, int64) {
	best := occs[0]
	bestDiff := abs64(int64(best.loc) - expected)
	for _, o := range occs[1:] {
		d := abs64(int64(o.loc) - expected)
		if d < bestDiff {
			best = o
			bestDiff = d
		}
	}
	return best, bestDiff
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
