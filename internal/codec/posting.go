package codec

// WordPost is one entry in a word posting list: a Location plus a bitfield
// of {bold, heading, large_font} flags (spec §3.3).
type WordPost struct {
	Location uint32
	Flags    uint8
}

const (
	FlagBold      uint8 = 1 << 0
	FlagHeading   uint8 = 1 << 1
	FlagLargeFont uint8 = 1 << 2
)

// DocumentPost is one entry in the doc-end posting list: a document's
// Location range and id.
type DocumentPost struct {
	Start uint32
	End   uint32
	DocID uint32
}

// EncodeWordPost appends one WordPost to buf as varint(post.Location -
// prevLoc) followed by a single flags byte.
func EncodeWordPost(buf []byte, prevLoc uint32, post WordPost) []byte {
	buf = AppendUvarint(buf, post.Location-prevLoc)
	return append(buf, post.Flags)
}

// DecodeWordPost is the exact inverse of EncodeWordPost: it decodes one
// WordPost starting at buf[0], returning the post, the updated "previous
// location" state, and the number of bytes consumed (0 on truncation).
func DecodeWordPost(buf []byte, prevLoc uint32) (WordPost, uint32, int) {
	delta, n := Uvarint(buf)
	if n <= 0 {
		return WordPost{}, prevLoc, 0
	}
	if n >= len(buf) {
		return WordPost{}, prevLoc, 0
	}
	loc := prevLoc + delta
	flags := buf[n]
	return WordPost{Location: loc, Flags: flags}, loc, n + 1
}

// EncodeDocPost appends one DocumentPost to buf as varint(post.Start -
// prevEnd), varint(post.End - post.Start), varint(post.DocID).
func EncodeDocPost(buf []byte, prevEnd uint32, post DocumentPost) []byte {
	buf = AppendUvarint(buf, post.Start-prevEnd)
	buf = AppendUvarint(buf, post.End-post.Start)
	buf = AppendUvarint(buf, post.DocID)
	return buf
}

// DecodeDocPost is the exact inverse of EncodeDocPost.
func DecodeDocPost(buf []byte, prevEnd uint32) (DocumentPost, uint32, int) {
	startDelta, n1 := Uvarint(buf)
	if n1 <= 0 {
		return DocumentPost{}, prevEnd, 0
	}
	rest := buf[n1:]
	span, n2 := Uvarint(rest)
	if n2 <= 0 {
		return DocumentPost{}, prevEnd, 0
	}
	rest = rest[n2:]
	docID, n3 := Uvarint(rest)
	if n3 <= 0 {
		return DocumentPost{}, prevEnd, 0
	}
	start := prevEnd + startDelta
	end := start + span
	total := n1 + n2 + n3
	return DocumentPost{Start: start, End: end, DocID: docID}, end, total
}
