package segment

import (
	"github.com/kestrelsearch/shardquery/internal/codec"
)

// Writer builds segment files in memory for test fixtures. Segment
// construction from a crawl corpus is out of scope; Writer exists purely so
// the rest of this package (and the ISR/query/ranker layers above it) has
// small, exact binary fixtures to run against.
type Writer struct {
	docs  []docBuilder
	terms map[string][]codec.WordPost
}

type docBuilder struct {
	attrs Attributes
}

func NewWriter() *Writer {
	return &Writer{terms: make(map[string][]codec.WordPost)}
}

// AddDocument registers document id's attributes. Documents must be added
// in increasing id order with non-overlapping, increasing [Start, End]
// ranges, matching spec §3.2's invariant.
func (w *Writer) AddDocument(attrs Attributes) {
	w.docs = append(w.docs, docBuilder{attrs: attrs})
}

// AddPost appends one occurrence of stem (an already-lowercased term or
// title stem; title stems must carry the caller's '@' prefix) at location
// with the given flags. Posts for a stem must be added in increasing
// location order.
func (w *Writer) AddPost(stem string, location uint32, flags uint8) {
	w.terms[stem] = append(w.terms[stem], codec.WordPost{Location: location, Flags: flags})
}

// Build serializes the accumulated documents and postings into a segment
// image. bucketCount sizes the hash table backing the term dictionary.
func (w *Writer) Build(bucketCount uint32) []byte {
	if bucketCount == 0 {
		bucketCount = 1
	}

	var maxLocation uint32
	for _, d := range w.docs {
		if d.attrs.End > maxLocation {
			maxLocation = d.attrs.End
		}
	}
	for _, posts := range w.terms {
		for _, p := range posts {
			if p.Location > maxLocation {
				maxLocation = p.Location
			}
		}
	}

	urlBlob := buildURLBlob(w.docs)
	hashBlob := buildHashBlob(w.terms, bucketCount, maxLocation)
	docEnd := buildDocEndList(w.docs, maxLocation)

	header := make([]byte, HeaderSize)
	putNativeUint32(header[0:4], uint32(len(w.terms)))
	putNativeUint32(header[4:8], uint32(len(w.docs)))
	locationsInIndex := uint32(0)
	for _, posts := range w.terms {
		locationsInIndex += uint32(len(posts))
	}
	putNativeUint32(header[8:12], locationsInIndex)
	putNativeUint32(header[12:16], maxLocation)
	putNativeUint32(header[16:20], uint32(len(urlBlob)))
	putNativeUint32(header[20:24], uint32(len(hashBlob)))

	out := make([]byte, 0, len(header)+len(urlBlob)+len(hashBlob)+len(docEnd))
	out = append(out, header...)
	out = append(out, urlBlob...)
	out = append(out, hashBlob...)
	out = append(out, docEnd...)
	return out
}

func buildURLBlob(docs []docBuilder) []byte {
	var records []byte
	offsets := make([]uint32, len(docs))
	for i, d := range docs {
		offsets[i] = uint32(len(records))
		records = append(records, []byte(d.attrs.URL)...)
		records = append(records, 0)
		records = append(records, []byte(d.attrs.Title)...)
		records = append(records, 0)

		tail := make([]byte, 21)
		putNativeUint32(tail[0:4], d.attrs.WordCount)
		putNativeUint32(tail[4:8], d.attrs.URLLength)
		putNativeUint32(tail[8:12], d.attrs.TitleLength)
		putNativeUint32(tail[12:16], d.attrs.Start)
		putNativeUint32(tail[16:20], d.attrs.End)
		var flags byte
		if d.attrs.English {
			flags |= 0x01
		}
		flags |= byte(d.attrs.TLD) << 1
		tail[20] = flags
		records = append(records, tail...)
	}

	head := make([]byte, 16)
	putNativeUint32(head[0:4], urlBlobMagic)
	putNativeUint32(head[4:8], blobVersion)
	putNativeUint32(head[12:16], uint32(len(docs)))

	offArray := make([]byte, len(offsets)*4)
	for i, o := range offsets {
		putNativeUint32(offArray[i*4:i*4+4], o)
	}

	total := len(head) + len(offArray) + len(records)
	putNativeUint32(head[8:12], uint32(total))

	blob := make([]byte, 0, total)
	blob = append(blob, head...)
	blob = append(blob, offArray...)
	blob = append(blob, records...)
	return blob
}

func buildHashBlob(terms map[string][]codec.WordPost, bucketCount, maxLocation uint32) []byte {
	buckets := make([][]string, bucketCount)
	for stem := range terms {
		b := fnv1a32(stem) % bucketCount
		buckets[b] = append(buckets[b], stem)
	}

	var records []byte
	bucketOffsets := make([]uint32, bucketCount)
	for b := range buckets {
		keys := buckets[b]
		if len(keys) == 0 {
			bucketOffsets[b] = emptyBucket
			continue
		}
		bucketOffsets[b] = uint32(len(records))
		for i, stem := range keys {
			var next uint32 = emptyBucket
			pl := serializePostingWordList(terms[stem], maxLocation)

			recStart := len(records)
			rec := make([]byte, 8)
			putNativeUint32(rec[0:4], uint32(len(stem)))
			// next patched after we know where the following tuple lands.
			records = append(records, rec...)
			records = append(records, []byte(stem)...)
			records = append(records, pl...)

			if i+1 < len(keys) {
				next = uint32(len(records))
			}
			putNativeUint32(records[recStart+4:recStart+8], next)
		}
	}

	head := make([]byte, 16)
	putNativeUint32(head[0:4], hashBlobMagic)
	putNativeUint32(head[4:8], blobVersion)
	putNativeUint32(head[12:16], bucketCount)

	offArray := make([]byte, len(bucketOffsets)*4)
	for i, o := range bucketOffsets {
		putNativeUint32(offArray[i*4:i*4+4], o)
	}

	total := len(head) + len(offArray) + len(records)
	putNativeUint32(head[8:12], uint32(total))

	blob := make([]byte, 0, total)
	blob = append(blob, head...)
	blob = append(blob, offArray...)
	blob = append(blob, records...)
	return blob
}

func buildDocEndList(docs []docBuilder, maxLocation uint32) []byte {
	posts := make([]codec.DocumentPost, len(docs))
	for i, d := range docs {
		posts[i] = codec.DocumentPost{Start: d.attrs.Start, End: d.attrs.End, DocID: uint32(i)}
	}
	return serializeDocPostingList(posts, maxLocation)
}

// serializePostingWordList encodes posts as a SerializedPostingList of
// WordPost, including its skip table, per spec §3.3.
func serializePostingWordList(posts []codec.WordPost, maxLocation uint32) []byte {
	var data []byte
	var prev uint32
	for _, p := range posts {
		data = codec.EncodeWordPost(data, prev, p)
		prev = p.Location
	}
	table := codec.BuildWordSkipTable(data, len(posts), maxLocation)
	return assemblePostingList(data, table, len(posts))
}

func serializeDocPostingList(posts []codec.DocumentPost, maxLocation uint32) []byte {
	var data []byte
	var prevEnd uint32
	for _, p := range posts {
		data = codec.EncodeDocPost(data, prevEnd, p)
		prevEnd = p.End
	}
	table := codec.BuildDocSkipTable(data, len(posts), maxLocation)
	return assemblePostingList(data, table, len(posts))
}

func assemblePostingList(data []byte, table []codec.SkipEntry, postCount int) []byte {
	skipBytes := make([]byte, len(table)*8)
	for i, e := range table {
		putNativeUint32(skipBytes[i*8:i*8+4], e.Offset)
		putNativeUint32(skipBytes[i*8+4:i*8+8], e.Location)
	}

	body := postingListPrefixSize + len(skipBytes) + len(data)
	padding := (4 - body%4) % 4
	total := body + padding

	out := make([]byte, total)
	putNativeUint32(out[0:4], uint32(total))
	putNativeUint32(out[4:8], uint32(len(data)))
	putNativeUint32(out[8:12], uint32(len(table)))
	putNativeUint32(out[12:16], uint32(postCount))
	copy(out[postingListPrefixSize:], skipBytes)
	copy(out[postingListPrefixSize+len(skipBytes):], data)
	return out
}
