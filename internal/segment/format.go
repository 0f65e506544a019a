// Package segment implements the memory-mapped, read-only on-disk segment
// format: a fixed header, a URL/attributes blob, a hash-bucket term
// dictionary blob, and a single doc-end posting list. Everything is
// native-endian since a segment never leaves the machine it was built on.
package segment

import (
	"github.com/kestrelsearch/shardquery/internal/codec"
	apperrors "github.com/kestrelsearch/shardquery/pkg/errors"
)

func errCorrupt(format string, args ...any) error {
	return apperrors.New(apperrors.ErrCorruptSegment, format, args...)
}

const (
	urlBlobMagic  uint32 = 0xDEADBEEF
	hashBlobMagic uint32 = 0xDEADBEEF
	blobVersion   uint32 = 1
)

// TLD is the enumeration tag stored per document.
type TLD uint8

const (
	TLDUnknown TLD = iota
	TLDGov
	TLDEdu
	TLDOrg
	TLDCom
	TLDNet
	TLDIO
	TLDInfo
	TLDBiz
	TLDXYZ
	TLDTop
	TLDUs
	TLDDev
)

// Header is the fixed-size segment header described in spec §3.5. It is
// computed at open time from the file's declared sizes, not read verbatim
// off disk in a single struct cast, since Go doesn't let us punch a struct
// straight onto an mmap'd byte slice without matching padding rules.
type Header struct {
	WordsInIndex     uint32
	DocumentsInIndex uint32
	LocationsInIndex uint32
	MaxLocation      uint32
	SizeOfURLs       uint32
	SizeOfHash       uint32

	urlBlobOffset  uint32
	hashBlobOffset uint32
	docEndOffset   uint32
}

// HeaderSize is the on-disk byte length of Header's fixed fields.
const HeaderSize = 6 * 4

// Attributes is one document's stored metadata (spec §3.2).
type Attributes struct {
	URL         string
	Title       string
	WordCount   uint32
	URLLength   uint32
	TitleLength uint32
	Start       uint32
	End         uint32
	English     bool
	TLD         TLD
}

// PostingList is a decoded handle onto one SerializedPostingList: the raw
// delta-encoded post bytes plus the skip table built over them. It does not
// copy the underlying bytes; they are a window into the segment's mmap.
type PostingList struct {
	Data      []byte
	PostCount int
	SkipTable []codec.SkipEntry
}

// serializedPostingList wire layout (spec §3.3):
//
//	total_bytes(4) | posting_data_bytes(4) | skip_count(4) | post_count(4)
//	SkipEntry[skip_count] (8 bytes each)
//	varint-delta encoded posts
//	padding to a 4-byte boundary
const postingListPrefixSize = 4 * 4

// parsePostingList decodes a SerializedPostingList starting at buf[0],
// returning the list and the total number of bytes it occupies (its declared
// total_bytes field, which already accounts for trailing padding).
func parsePostingList(buf []byte) (PostingList, uint32, error) {
	if len(buf) < postingListPrefixSize {
		return PostingList{}, 0, errCorrupt("posting list prefix truncated")
	}
	totalBytes := nativeUint32(buf[0:4])
	postingDataBytes := nativeUint32(buf[4:8])
	skipCount := nativeUint32(buf[8:12])
	postCount := nativeUint32(buf[12:16])

	if uint64(totalBytes) > uint64(len(buf)) {
		return PostingList{}, 0, errCorrupt("posting list declares more bytes than available")
	}

	skipBytes := int(skipCount) * 8
	dataStart := postingListPrefixSize + skipBytes
	dataEnd := dataStart + int(postingDataBytes)
	if dataEnd > len(buf) || dataEnd > int(totalBytes) {
		return PostingList{}, 0, errCorrupt("posting data longer than declared")
	}

	skipTable := make([]codec.SkipEntry, skipCount)
	for i := range skipTable {
		off := postingListPrefixSize + i*8
		skipTable[i] = codec.SkipEntry{
			Offset:   nativeUint32(buf[off : off+4]),
			Location: nativeUint32(buf[off+4 : off+8]),
		}
	}

	return PostingList{
		Data:      buf[dataStart:dataEnd],
		PostCount: int(postCount),
		SkipTable: skipTable,
	}, totalBytes, nil
}
