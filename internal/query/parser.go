package query

import (
	"bufio"
	"encoding/binary"
	"io"

	apperrors "github.com/kestrelsearch/shardquery/pkg/errors"
	"github.com/kestrelsearch/shardquery/internal/rpc"
)

// Parse reads one query off r per spec §6.1: an Expr followed by
// QUERY_END. Any grammar violation or short read is reported as
// ErrMalformedQuery/ErrTruncatedStream so the caller can close the
// connection without disturbing other clients.
func Parse(r io.Reader) (Expr, error) {
	p := &parser{r: bufio.NewReader(r)}
	expr, err := p.expr()
	if err != nil {
		return nil, err
	}
	term, err := p.readByte()
	if err != nil {
		return nil, err
	}
	if term != rpc.QUERY_END {
		return nil, apperrors.New(apperrors.ErrMalformedQuery, "expected QUERY_END, got %q", term)
	}
	return expr, nil
}

type parser struct {
	r *bufio.Reader
}

func (p *parser) readByte() (byte, error) {
	b, err := p.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, apperrors.New(apperrors.ErrTruncatedStream, "unexpected end of query stream")
		}
		return 0, apperrors.New(apperrors.ErrTruncatedStream, "reading query stream: %v", err)
	}
	return b, nil
}

func (p *parser) readUint32BE() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(p.r, buf[:]); err != nil {
		return 0, apperrors.New(apperrors.ErrTruncatedStream, "reading uint32: %v", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// expr dispatches on the next operator byte per spec §6.1's Expr
// production.
func (p *parser) expr() (Expr, error) {
	b, err := p.readByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case rpc.AND:
		return p.binary(func(l, r Expr) Expr { return &AndExpr{Left: l, Right: r} })
	case rpc.OR:
		return p.binary(func(l, r Expr) Expr { return &OrExpr{Left: l, Right: r} })
	case rpc.OR_SYN:
		return p.synOr()
	case rpc.NOT:
		return p.not()
	case rpc.WORD_START:
		return p.word()
	case rpc.PHRASE_START:
		return p.phrase()
	default:
		return nil, apperrors.New(apperrors.ErrMalformedQuery, "unknown operator byte %q", b)
	}
}

func (p *parser) binary(build func(l, r Expr) Expr) (Expr, error) {
	l, err := p.expr()
	if err != nil {
		return nil, err
	}
	r, err := p.expr()
	if err != nil {
		return nil, err
	}
	return build(l, r), nil
}

func (p *parser) not() (Expr, error) {
	included, err := p.expr()
	if err != nil {
		return nil, err
	}
	excluded, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &NotExpr{Included: included, Excluded: excluded}, nil
}

func (p *parser) synOr() (Expr, error) {
	left, err := p.expr()
	if err != nil {
		return nil, err
	}
	right, err := p.expr()
	if err != nil {
		return nil, err
	}
	advanceRight, err := p.readUint32BE()
	if err != nil {
		return nil, err
	}
	if b, err := p.readByte(); err != nil {
		return nil, err
	} else if b != rpc.STEP_DELIM {
		return nil, apperrors.New(apperrors.ErrMalformedQuery, "expected STEP_DELIM after advanceRight, got %q", b)
	}
	advanceLeft, err := p.readUint32BE()
	if err != nil {
		return nil, err
	}
	if b, err := p.readByte(); err != nil {
		return nil, err
	} else if b != rpc.STEP_DELIM {
		return nil, apperrors.New(apperrors.ErrMalformedQuery, "expected STEP_DELIM after advanceLeft, got %q", b)
	}
	return &SynOrExpr{Left: left, Right: right, AdvanceRight: advanceRight, AdvanceLeft: advanceLeft}, nil
}

// readStem reads bytes until an unescaped byte found in stops, with '\'
// escaping exactly the next byte. It returns the stem and the
// stop byte actually consumed.
func (p *parser) readStem(stops string) (string, byte, error) {
	var buf []byte
	for {
		b, err := p.readByte()
		if err != nil {
			return "", 0, err
		}
		if b == rpc.ESCAPE {
			next, err := p.readByte()
			if err != nil {
				return "", 0, err
			}
			buf = append(buf, next)
			continue
		}
		for i := 0; i < len(stops); i++ {
			if b == stops[i] {
				return string(buf), b, nil
			}
		}
		buf = append(buf, b)
	}
}

func (p *parser) word() (Expr, error) {
	stem, _, err := p.readStem(">")
	if err != nil {
		return nil, err
	}
	if stem == "" {
		return nil, apperrors.New(apperrors.ErrMalformedQuery, "empty word stem")
	}
	return &WordExpr{Stem: stem}, nil
}

func (p *parser) phrase() (Expr, error) {
	var stems []string
	for {
		stem, stop, err := p.readStem("> ")
		if err != nil {
			return nil, err
		}
		if stem != "" {
			stems = append(stems, stem)
		}
		if stop == '>' {
			break
		}
	}
	if len(stems) == 0 {
		return nil, apperrors.New(apperrors.ErrMalformedQuery, "empty phrase")
	}
	return &PhraseExpr{Stems: stems}, nil
}
