// Package rpc defines the wire-level constants and framing primitives for
// the shard's binary query protocol (spec §6): a prefix byte-oriented
// query grammar on the way in, and a big-endian result framing on the way
// out. All multibyte integers on the wire are big-endian, independent of
// the segment files' native-endian on-disk layout.
package rpc

// Protocol holds the grammar's operator byte constants (spec §6.1), kept
// as one flat table rather than re-deriving byte values at each call site,
// mirroring the original query compiler's single Protocol namespace.
const (
	AND         = '&'
	OR          = '|'
	OR_SYN      = '/'
	NOT         = '-'
	WORD_START  = '{'
	PHRASE_START = '<'
	PHRASE_END  = '>'
	ESCAPE      = '\\'
	STEP_DELIM  = ';'
	QUERY_END   = '#'
)

// Default SynOr advance ratio when a caller builds a query tree
// programmatically instead of off the wire (the wire grammar always
// carries explicit advance values).
const (
	StepTermSynonym  = 1
	StepTermOriginal = 2
)
