package rpc

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

// Result is one ranked document as reported to a client (spec §6.2).
type Result struct {
	URL   string
	Title string
	Score float64
}

// WriteResults serializes results onto w per spec §6.2:
//
//	uint32_be count
//	repeat count times: url '\n' title '\n' uint64_be ieee754(score)
//
// Results must already be score-descending; this function does not sort.
func WriteResults(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(results)))
	if _, err := bw.Write(countBuf[:]); err != nil {
		return err
	}
	for _, r := range results {
		if err := writeLine(bw, r.URL); err != nil {
			return err
		}
		if err := writeLine(bw, r.Title); err != nil {
			return err
		}
		var scoreBuf [8]byte
		binary.BigEndian.PutUint64(scoreBuf[:], math.Float64bits(r.Score))
		if _, err := bw.Write(scoreBuf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeLine(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

// ReadResults is the exact inverse of WriteResults, used by tests and any
// future client tooling to validate what a shard sent.
func ReadResults(r io.Reader) ([]Result, error) {
	br := bufio.NewReader(r)
	var countBuf [4]byte
	if _, err := io.ReadFull(br, countBuf[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(countBuf[:])

	results := make([]Result, count)
	for i := range results {
		url, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		title, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		var scoreBuf [8]byte
		if _, err := io.ReadFull(br, scoreBuf[:]); err != nil {
			return nil, err
		}
		results[i] = Result{
			URL:   url[:len(url)-1],
			Title: title[:len(title)-1],
			Score: math.Float64frombits(binary.BigEndian.Uint64(scoreBuf[:])),
		}
	}
	return results, nil
}
