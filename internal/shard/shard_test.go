package shard

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelsearch/shardquery/internal/codec"
	"github.com/kestrelsearch/shardquery/internal/ranker"
	"github.com/kestrelsearch/shardquery/internal/rpc"
	"github.com/kestrelsearch/shardquery/internal/segment"
)

func writeFixtureSegment(t *testing.T, dir, name string) {
	t.Helper()
	w := segment.NewWriter()
	w.AddPost("cat", 5, codec.FlagBold)
	w.AddDocument(segment.Attributes{
		URL: "https://good.example/", Title: "Cats", WordCount: 400,
		URLLength: 20, TitleLength: 4, Start: 1, End: 10, English: true, TLD: segment.TLDCom,
	})
	if err := os.WriteFile(filepath.Join(dir, name), w.Build(8), 0o644); err != nil {
		t.Fatalf("writing fixture segment: %v", err)
	}
}

func TestDiscoverSegmentPathsFiltersBySuffix(t *testing.T) {
	dir := t.TempDir()
	writeFixtureSegment(t, dir, "a.bin")
	writeFixtureSegment(t, dir, "b.bin")
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not a segment"), 0o644); err != nil {
		t.Fatalf("writing non-segment file: %v", err)
	}

	paths, err := DiscoverSegmentPaths(dir)
	if err != nil {
		t.Fatalf("DiscoverSegmentPaths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2: %v", len(paths), paths)
	}
}

func TestDiscoverSegmentPathsEmptyDir(t *testing.T) {
	dir := t.TempDir()
	paths, err := DiscoverSegmentPaths(dir)
	if err != nil {
		t.Fatalf("DiscoverSegmentPaths: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("got %d paths in empty dir, want 0", len(paths))
	}
}

func TestOpenSetSkipsCorruptAndOpensRest(t *testing.T) {
	dir := t.TempDir()
	writeFixtureSegment(t, dir, "good.bin")
	if err := os.WriteFile(filepath.Join(dir, "bad.bin"), []byte("not a real segment"), 0o644); err != nil {
		t.Fatalf("writing corrupt segment: %v", err)
	}

	paths, err := DiscoverSegmentPaths(dir)
	if err != nil {
		t.Fatalf("DiscoverSegmentPaths: %v", err)
	}
	set, err := OpenSet(paths, nil, false, nil)
	if err != nil {
		t.Fatalf("OpenSet: %v", err)
	}
	defer set.Close()
	if len(set.Segments()) != 1 {
		t.Fatalf("got %d open segments, want 1 (corrupt one skipped)", len(set.Segments()))
	}
}

func TestOpenSetAllCorruptReturnsErrNoSegments(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.bin"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("writing corrupt segment: %v", err)
	}
	paths, err := DiscoverSegmentPaths(dir)
	if err != nil {
		t.Fatalf("DiscoverSegmentPaths: %v", err)
	}
	if _, err := OpenSet(paths, nil, false, nil); err == nil {
		t.Fatalf("expected an error when every segment is corrupt")
	}
}

func TestHandleConnAnswersOneQuery(t *testing.T) {
	dir := t.TempDir()
	writeFixtureSegment(t, dir, "seg.bin")
	paths, err := DiscoverSegmentPaths(dir)
	if err != nil {
		t.Fatalf("DiscoverSegmentPaths: %v", err)
	}
	set, err := OpenSet(paths, nil, false, nil)
	if err != nil {
		t.Fatalf("OpenSet: %v", err)
	}
	defer set.Close()

	srv := NewServer(set, ranker.Params{Workers: 2, MaxDocs: 100}, nil, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv.listener = ln

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				srv.handleConn(conn)
			}()
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	queryBytes := []byte{rpc.WORD_START, 'c', 'a', 't', rpc.PHRASE_END, rpc.QUERY_END}
	if _, err := conn.Write(queryBytes); err != nil {
		t.Fatalf("write query: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	results, err := rpc.ReadResults(conn)
	if err != nil {
		t.Fatalf("reading results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].URL != "https://good.example/" {
		t.Fatalf("got url %q, want the fixture's url", results[0].URL)
	}
}
