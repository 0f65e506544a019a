// Package ranker scores candidate documents a bound ISR tree produces,
// combining static document features with dynamic span features measured
// against the query's terms (spec §4.5). A fixed worker pool claims
// candidates off one shared root cursor and maintains a bounded top-K
// buffer, mirroring the teacher's sharded-executor fan-out shape adapted to
// a single in-process cursor instead of a map of remote shards.
package ranker

import (
	"sort"
	"strings"
	"sync"

	"github.com/kestrelsearch/shardquery/internal/isr"
	"github.com/kestrelsearch/shardquery/internal/segment"
)

// Bounds, in spec §4.5.1/§4.5.3.
const (
	CloseThreshold       = 10
	TopPositionThreshold = 100
	DefaultWorkers       = 14
	DefaultMaxDocs       = 100
)

// Result is one scored candidate, ready for merge and wire framing.
type Result struct {
	DocID uint32
	URL   string
	Title string
	Score float64
}

// Params configures one ranking pass over a single segment.
type Params struct {
	Workers int // size of the scoring pool; DefaultWorkers if <= 0
	MaxDocs int // processed_docs cutoff; DefaultMaxDocs if <= 0
}

// Terms is the flattened, deduplicated leaf list a query tree collects
// (spec §4.3.8), plus the per-term synonym flag SynOr's right subtree
// marks. QueryStems preserves term order as collected, used for the
// "non-leading term" isUtilityQuery check and for forming expected
// positional offsets between spans.
type Terms struct {
	Words      []*isr.Word
	Synonym    []bool
	QueryStems []string
}

// Run ranks every candidate document root produces, returning at most
// maxResults results sorted score-descending, plus the total number of
// candidates claimed off root (which may exceed len(results), since most
// candidates are scored and then dropped by the top-K cutoff). root is
// shared across all workers and claimed under one mutex; terms' Words are
// cloned once per worker so each has private cursor state (spec §4.5.3's
// safety rule).
func Run(root isr.Iterator, seg *segment.Segment, terms Terms, maxResults int, params Params) ([]Result, int) {
	workers := params.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	maxDocs := params.MaxDocs
	if maxDocs <= 0 {
		maxDocs = DefaultMaxDocs
	}

	titleWords := buildTitleTerms(seg, terms.QueryStems)

	claim := newClaimer(root, maxDocs)
	top := newTopK(maxResults)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		bodyClones := cloneWords(terms.Words)
		titleClones := cloneWords(titleWords)
		wg.Add(1)
		go func() {
			defer wg.Done()
			workerLoop(seg, claim, top, bodyClones, titleClones, terms)
		}()
	}
	wg.Wait()

	return top.sorted(), claim.claimed()
}

func workerLoop(seg *segment.Segment, claim *claimer, top *topK, bodyTerms, titleTerms []*isr.Word, terms Terms) {
	for {
		cand, ok := claim.next()
		if !ok {
			return
		}
		attrs, err := seg.Attributes(cand.DocID)
		if err != nil {
			continue
		}
		score, ok := scoreDocument(cand.Start, cand.End, attrs, bodyTerms, titleTerms, terms)
		if !ok {
			continue
		}
		top.insert(Result{DocID: cand.DocID, URL: attrs.URL, Title: attrs.Title, Score: score})
	}
}

// buildTitleTerms looks up each query stem's title-indexed counterpart
// ("@"+stem, per the writer's title-prefix convention). A lookup error
// (corrupt chain) leaves a nil entry; an absent title term gets an empty
// Word that never matches. Both count as zero occurrences downstream.
func buildTitleTerms(seg *segment.Segment, stems []string) []*isr.Word {
	out := make([]*isr.Word, len(stems))
	for i, stem := range stems {
		w, err := isr.NewWord(seg, "@"+stem)
		if err != nil {
			continue
		}
		out[i] = w
	}
	return out
}

func cloneWords(words []*isr.Word) []*isr.Word {
	out := make([]*isr.Word, len(words))
	for i, w := range words {
		if w == nil {
			continue
		}
		out[i] = w.Clone()
	}
	return out
}

var utilityURLMarkers = []string{"privacy", "terms", "404", "error", "policy", "legal"}

var utilityQueryWords = map[string]bool{
	"privacy": true, "terms": true, "policy": true, "legal": true,
	"contact": true, "about": true, "cookies": true,
}

func isUtilityPage(url string) bool {
	lower := strings.ToLower(url)
	for _, m := range utilityURLMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// isUtilityQuery reports whether any non-leading term in stems is a
// utility-page marker (spec §4.5.2).
func isUtilityQuery(stems []string) bool {
	for i, s := range stems {
		if i == 0 {
			continue
		}
		if utilityQueryWords[strings.ToLower(s)] {
			return true
		}
	}
	return false
}

func hasURLMatch(url string, stems []string) bool {
	lower := strings.ToLower(url)
	for _, s := range stems {
		if s == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// topK maintains a score-descending buffer bounded to k entries via
// insertion sort, dropping anything below the current Kth score (spec
// §4.5.3 step 3).
type topK struct {
	mu      sync.Mutex
	k       int
	results []Result
}

func newTopK(k int) *topK {
	if k <= 0 {
		k = 1
	}
	return &topK{k: k}
}

func (t *topK) insert(r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.results) >= t.k && r.Score <= t.results[len(t.results)-1].Score {
		return
	}
	i := sort.Search(len(t.results), func(i int) bool { return t.results[i].Score < r.Score })
	t.results = append(t.results, Result{})
	copy(t.results[i+1:], t.results[i:])
	t.results[i] = r
	if len(t.results) > t.k {
		t.results = t.results[:t.k]
	}
}

func (t *topK) sorted() []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Result, len(t.results))
	copy(out, t.results)
	return out
}

// claimer serializes access to the shared root cursor, bounding the total
// number of candidates handed out to maxDocs and detecting the
// non-strictly-increasing-start condition spec §4.5.3 calls out as a
// cursor malfunction.
type claimer struct {
	mu        sync.Mutex
	root      isr.Iterator
	maxDocs   int
	processed int
	lastStart uint32
	primed    bool
	done      bool
}

func newClaimer(root isr.Iterator, maxDocs int) *claimer {
	return &claimer{root: root, maxDocs: maxDocs}
}

// claimed returns the total number of candidates handed out so far.
func (c *claimer) claimed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processed
}

// next advances the root cursor (skipping the advance on the very first
// call, since construction already primes every ISR node at its first
// match) and reads back the claimed document via CurrentDoc — not via
// Next's own return value, which for several node types (Word, And) is a
// sub-document-granularity post and carries no reliable DocID.
func (c *claimer) next() (isr.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done || c.processed >= c.maxDocs {
		return isr.Post{}, false
	}

	if c.primed {
		if _, ok := c.root.Next(); !ok {
			c.done = true
			return isr.Post{}, false
		}
	}
	c.primed = true

	doc, ok := c.root.CurrentDoc()
	if !ok {
		c.done = true
		return isr.Post{}, false
	}
	if c.processed > 0 && doc.Start <= c.lastStart {
		c.done = true
		return isr.Post{}, false
	}
	c.lastStart = doc.Start
	c.processed++
	return doc, true
}
