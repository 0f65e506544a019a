// Package shard owns one shard process's segment set and its query-serving
// accept loop: a directory of memory-mapped .bin segments, one TCP
// listener, and per-connection pipelines that parse, bind, rank, and merge
// a single query before closing the connection.
package shard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kestrelsearch/shardquery/internal/cache"
	"github.com/kestrelsearch/shardquery/internal/isr"
	"github.com/kestrelsearch/shardquery/internal/merge"
	"github.com/kestrelsearch/shardquery/internal/query"
	"github.com/kestrelsearch/shardquery/internal/ranker"
	"github.com/kestrelsearch/shardquery/internal/rpc"
	"github.com/kestrelsearch/shardquery/internal/segment"
	apperrors "github.com/kestrelsearch/shardquery/pkg/errors"
	"github.com/kestrelsearch/shardquery/pkg/logger"
	"github.com/kestrelsearch/shardquery/pkg/metrics"
)

// MaxRankedDocs bounds the cumulative candidate count ranked across all of
// a shard's local segments for one query (spec §4.7).
const MaxRankedDocs = 200

// Set owns every segment this shard has opened, in open order.
type Set struct {
	mu       sync.RWMutex
	segments []*segment.Segment
	logger   *slog.Logger
}

// DiscoverSegmentPaths lists every regular file under dir with a .bin
// suffix, sorted by file name. The distinction between "no .bin files
// found" and "every .bin file failed to open" (spec §6.4 exit codes 3 and
// 4) is only visible to a caller that enumerates paths itself before
// calling OpenSet.
func DiscoverSegmentPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("enumerating segment directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// OpenSet opens every path as a segment, pinning pages under budget. A
// segment that fails to open (corrupt header, bad magic) is logged and
// skipped; it does not abort the scan. ErrNoSegments is returned if
// nothing opened successfully.
func OpenSet(paths []string, budget *segment.MlockBudget, madvise bool, m *metrics.Metrics) (*Set, error) {
	log := logger.WithComponent("shard-set")
	set := &Set{logger: log}
	for _, path := range paths {
		seg, err := segment.Open(path, budget, madvise)
		if err != nil {
			log.Error("segment open failed", "path", path, "error", err)
			if m != nil {
				m.SegmentOpenFailures.Inc()
			}
			continue
		}
		if !seg.Locked() && m != nil {
			m.MlockFailuresTotal.Inc()
		}
		set.segments = append(set.segments, seg)
		log.Info("segment opened", "path", path, "docs", seg.DocCount(), "locked", seg.Locked())
	}

	if len(set.segments) == 0 {
		return nil, apperrors.ErrNoSegments
	}
	if m != nil {
		m.SegmentsLoaded.Set(float64(len(set.segments)))
	}
	return set, nil
}

// Segments returns a snapshot of the currently open segment list.
func (s *Set) Segments() []*segment.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*segment.Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Close closes every open segment, collecting the first error encountered.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, seg := range s.segments {
		if err := seg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Server is one shard process's query-serving surface: a segment set plus
// the ranker pool parameters applied to each bound query.
type Server struct {
	Set      *Set
	Params   ranker.Params
	Cache    *cache.ResultCache
	Metrics  *metrics.Metrics
	listener net.Listener
}

// NewServer wires a segment set into a server. Serve must be called to
// actually start accepting connections.
func NewServer(set *Set, params ranker.Params, resultCache *cache.ResultCache, m *metrics.Metrics) *Server {
	return &Server{Set: set, Params: params, Cache: resultCache, Metrics: m}
}

// Serve runs the accept loop until ctx is cancelled or the listener fails.
// Each accepted connection is handled on its own goroutine and always
// closed before that goroutine returns, per spec §4.7's single-query-per-
// connection model.
func (srv *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv.listener = ln
	log := logger.WithComponent("shard-server")
	log.Info("accept loop started", "addr", addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		if srv.Metrics != nil {
			srv.Metrics.ActiveConnections.Inc()
		}
		go func() {
			defer wg.Done()
			defer conn.Close()
			if srv.Metrics != nil {
				defer srv.Metrics.ActiveConnections.Dec()
			}
			srv.handleConn(conn)
		}()
	}
}

// handleConn runs exactly one query through the full pipeline: parse,
// bind per segment, collect leaf terms, rank each local segment
// sequentially (bounded cumulatively by MaxRankedDocs), merge, and write
// the framed result set. Any malformed-input or I/O error just drops the
// connection; it never propagates to other clients (spec §7).
func (srv *Server) handleConn(conn net.Conn) {
	start := time.Now()
	log := logger.WithComponent("shard-conn")

	queryBytes, expr, err := readAndParseQuery(conn)
	if err != nil {
		log.Warn("query rejected", "error", err, "remote", conn.RemoteAddr())
		srv.recordOutcome("malformed", time.Since(start))
		return
	}

	var results []rpc.Result
	if srv.Cache != nil {
		var cached bool
		results, cached, err = srv.Cache.GetOrCompute(context.Background(), queryBytes, func() ([]rpc.Result, error) {
			return srv.rankAndMerge(expr)
		})
		if srv.Metrics != nil {
			if cached {
				srv.Metrics.CacheHitsTotal.Inc()
			} else {
				srv.Metrics.CacheMissesTotal.Inc()
			}
		}
	} else {
		results, err = srv.rankAndMerge(expr)
	}
	if err != nil {
		log.Error("ranking failed", "error", err)
		srv.recordOutcome("error", time.Since(start))
		return
	}

	if err := rpc.WriteResults(conn, results); err != nil {
		log.Warn("write failed", "error", err, "remote", conn.RemoteAddr())
	}
	srv.recordOutcome("ok", time.Since(start))
	if srv.Metrics != nil {
		srv.Metrics.ResultsReturned.Observe(float64(len(results)))
	}
}

func (srv *Server) recordOutcome(outcome string, elapsed time.Duration) {
	if srv.Metrics == nil {
		return
	}
	srv.Metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	srv.Metrics.QueryLatency.Observe(elapsed.Seconds())
}

// rankAndMerge binds expr against every open segment, ranks each with the
// remaining share of the cumulative MaxRankedDocs budget, and k-way merges
// the per-segment result sets.
func (srv *Server) rankAndMerge(expr query.Expr) ([]rpc.Result, error) {
	segments := srv.Set.Segments()
	var perSegment [][]ranker.Result
	budget := MaxRankedDocs

	for _, seg := range segments {
		if budget <= 0 {
			break
		}
		root, err := expr.Bind(seg)
		if err != nil {
			return nil, fmt.Errorf("binding query against %s: %w", seg.Path, err)
		}

		var terms ranker.Terms
		var leaves []*isr.Word
		seen := make(map[string]bool)
		root.CollectTerms(seen, false, &leaves)
		for _, w := range leaves {
			terms.Words = append(terms.Words, w)
			terms.Synonym = append(terms.Synonym, w.IsSynonym())
			terms.QueryStems = append(terms.QueryStems, w.Stem())
		}

		params := srv.Params
		if params.MaxDocs <= 0 || params.MaxDocs > budget {
			params.MaxDocs = budget
		}
		results, processed := ranker.Run(root, seg, terms, merge.MaxResults, params)
		budget -= processed
		if srv.Metrics != nil {
			srv.Metrics.DocsRankedTotal.Add(float64(processed))
		}
		perSegment = append(perSegment, results)
	}

	merged := merge.Merge(perSegment, merge.MaxResults)
	out := make([]rpc.Result, len(merged))
	for i, r := range merged {
		out[i] = rpc.Result{URL: r.URL, Title: r.Title, Score: r.Score}
	}
	return out, nil
}

// readAndParseQuery reads the full query message off conn (query.Parse
// consumes exactly one message, stopping at QUERY_END) and returns both
// the raw bytes (for cache keying) and the parsed expression tree.
func readAndParseQuery(conn net.Conn) ([]byte, query.Expr, error) {
	tr := &teeReader{r: conn}
	expr, err := query.Parse(tr)
	if err != nil {
		return nil, nil, err
	}
	return tr.buf, expr, nil
}

// teeReader records every byte query.Parse consumes so the raw message
// can be used as a cache key without re-reading the connection.
type teeReader struct {
	r   net.Conn
	buf []byte
}

func (t *teeReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.buf = append(t.buf, p[:n]...)
	}
	return n, err
}
