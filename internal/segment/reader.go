package segment

import (
	"fmt"
	"os"

	"github.com/kestrelsearch/shardquery/internal/codec"
)

// MlockBudget bounds how much of the process's memory budget Open is
// willing to mlock across all open segments; callers share one counter.
type MlockBudget struct {
	remaining int64
}

func NewMlockBudget(capBytes int64) *MlockBudget {
	return &MlockBudget{remaining: capBytes}
}

func (b *MlockBudget) reserve(n int64) bool {
	if b == nil || n > b.remaining {
		return false
	}
	b.remaining -= n
	return true
}

// Segment is an open, memory-mapped, read-only segment file. All accessors
// return slices or values backed directly by the mmap; they remain valid
// for the lifetime of the Segment.
type Segment struct {
	Path string

	file *os.File
	data []byte

	header Header

	urlOffsets []uint32 // url_count entries, relative to start of URLBlob records
	urlBlob    []byte   // records region of the URL blob

	bucketOffsets []uint32 // bucket_count entries, relative to start of HashBlob records
	hashRecords   []byte   // records region of the HashBlob

	docEnd PostingList

	locked bool
}

// Open maps path into memory, validates the header and blob magics, and
// returns a handle good for the segment's lifetime. madviseWillNeed is
// attempted only when madvise is true, and its result is ignored; mlock is
// attempted only while budget has room, and its outcome is reported through
// Locked. Neither is ever fatal here.
func Open(path string, budget *MlockBudget, madvise bool) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat segment: %w", err)
	}
	size := info.Size()
	if size < HeaderSize {
		f.Close()
		return nil, errCorrupt("file shorter than header: %d bytes", size)
	}

	data, err := mmapFile(f, int(size))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap segment: %w", err)
	}

	if madvise {
		madviseWillNeed(data)
	}
	locked := false
	if budget != nil && budget.reserve(size) {
		locked = mlockBestEffort(data)
	}

	s := &Segment{Path: path, file: f, data: data, locked: locked}
	if err := s.parse(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Locked reports whether this segment's pages were successfully pinned.
func (s *Segment) Locked() bool { return s.locked }

func (s *Segment) Close() error {
	if s.data != nil {
		munmapFile(s.data)
		s.data = nil
	}
	return s.file.Close()
}

func (s *Segment) Header() Header { return s.header }

func (s *Segment) parse() error {
	if len(s.data) < HeaderSize {
		return errCorrupt("truncated header")
	}
	h := Header{
		WordsInIndex:     nativeUint32(s.data[0:4]),
		DocumentsInIndex: nativeUint32(s.data[4:8]),
		LocationsInIndex: nativeUint32(s.data[8:12]),
		MaxLocation:      nativeUint32(s.data[12:16]),
		SizeOfURLs:       nativeUint32(s.data[16:20]),
		SizeOfHash:       nativeUint32(s.data[20:24]),
	}
	h.urlBlobOffset = HeaderSize
	h.hashBlobOffset = h.urlBlobOffset + h.SizeOfURLs
	h.docEndOffset = h.hashBlobOffset + h.SizeOfHash
	s.header = h

	if err := s.parseURLBlob(); err != nil {
		return err
	}
	if err := s.parseHashBlob(); err != nil {
		return err
	}
	return s.parseDocEnd()
}

// URL blob layout: magic(4) version(4) blob_size(4) url_count(4)
// offset[url_count](4 each) records...
func (s *Segment) parseURLBlob() error {
	start := int(s.header.urlBlobOffset)
	end := start + int(s.header.SizeOfURLs)
	if end > len(s.data) || start+16 > len(s.data) {
		return errCorrupt("url blob out of range")
	}
	blob := s.data[start:end]
	if nativeUint32(blob[0:4]) != urlBlobMagic {
		return errCorrupt("url blob bad magic")
	}
	if nativeUint32(blob[4:8]) != blobVersion {
		return errCorrupt("url blob bad version")
	}
	blobSize := nativeUint32(blob[8:12])
	if uint64(blobSize) > uint64(len(blob)) {
		return errCorrupt("url blob declares more bytes than available")
	}
	urlCount := nativeUint32(blob[12:16])

	offArrayStart := 16
	offArrayEnd := offArrayStart + int(urlCount)*4
	if offArrayEnd > len(blob) {
		return errCorrupt("url offset array truncated")
	}
	offsets := make([]uint32, urlCount)
	for i := range offsets {
		offsets[i] = nativeUint32(blob[offArrayStart+i*4 : offArrayStart+i*4+4])
	}
	s.urlOffsets = offsets
	s.urlBlob = blob[offArrayEnd:]
	return nil
}

// Hash blob layout: magic(4) version(4) blob_size(4) bucket_count(4)
// bucket_offset[bucket_count](4 each) chained SerialTuple records...
func (s *Segment) parseHashBlob() error {
	start := int(s.header.hashBlobOffset)
	end := start + int(s.header.SizeOfHash)
	if end > len(s.data) || start+16 > len(s.data) {
		return errCorrupt("hash blob out of range")
	}
	blob := s.data[start:end]
	if nativeUint32(blob[0:4]) != hashBlobMagic {
		return errCorrupt("hash blob bad magic")
	}
	if nativeUint32(blob[4:8]) != blobVersion {
		return errCorrupt("hash blob bad version")
	}
	blobSize := nativeUint32(blob[8:12])
	if uint64(blobSize) > uint64(len(blob)) {
		return errCorrupt("hash blob declares more bytes than available")
	}
	bucketCount := nativeUint32(blob[12:16])

	offArrayStart := 16
	offArrayEnd := offArrayStart + int(bucketCount)*4
	if offArrayEnd > len(blob) {
		return errCorrupt("bucket offset array truncated")
	}
	offsets := make([]uint32, bucketCount)
	for i := range offsets {
		offsets[i] = nativeUint32(blob[offArrayStart+i*4 : offArrayStart+i*4+4])
	}
	s.bucketOffsets = offsets
	s.hashRecords = blob[offArrayEnd:]
	return nil
}

func (s *Segment) parseDocEnd() error {
	start := int(s.header.docEndOffset)
	if start > len(s.data) {
		return errCorrupt("doc-end list out of range")
	}
	pl, _, err := parsePostingList(s.data[start:])
	if err != nil {
		return err
	}
	s.docEnd = pl
	return nil
}

// DocEndList returns the segment's single document posting list.
func (s *Segment) DocEndList() PostingList { return s.docEnd }

// serialTuple is one chained record in a hash bucket: a key string, the
// offset (relative to hashRecords) of the next tuple in the chain
// (emptyBucket means end of chain), and the embedded posting list for that
// key.
type serialTuple struct {
	key     string
	next    uint32
	posting PostingList
}

func (s *Segment) readTuple(offset uint32) (serialTuple, uint32, error) {
	buf := s.hashRecords[offset:]
	if len(buf) < 8 {
		return serialTuple{}, 0, errCorrupt("hash tuple truncated")
	}
	keyLen := nativeUint32(buf[0:4])
	next := nativeUint32(buf[4:8])
	keyStart := 8
	keyEnd := keyStart + int(keyLen)
	if keyEnd > len(buf) {
		return serialTuple{}, 0, errCorrupt("hash tuple key truncated")
	}
	key := string(buf[keyStart:keyEnd])
	pl, total, err := parsePostingList(buf[keyEnd:])
	if err != nil {
		return serialTuple{}, 0, err
	}
	_ = total
	return serialTuple{key: key, next: next, posting: pl}, offset + uint32(keyEnd) + total, nil
}

// emptyBucket marks a hash bucket with no chain, and a tuple with no
// successor. It is the largest uint32, so no real tuple can start there:
// a tuple occupies at least 8 bytes inside the records region.
const emptyBucket = ^uint32(0)

// LookupTerm resolves a term stem (title stems carry a leading '@') to its
// posting list via FNV-1a hashing into the bucket table, then a linear walk
// of the chain at that bucket. It returns ok=false, not an error, for a
// term simply absent from the segment.
func (s *Segment) LookupTerm(stem string) (PostingList, bool, error) {
	if len(s.bucketOffsets) == 0 {
		return PostingList{}, false, nil
	}
	h := fnv1a32(stem)
	bucket := h % uint32(len(s.bucketOffsets))
	offset := s.bucketOffsets[bucket]
	if offset == emptyBucket {
		return PostingList{}, false, nil
	}

	for {
		tuple, _, err := s.readTuple(offset)
		if err != nil {
			return PostingList{}, false, err
		}
		if tuple.key == stem {
			return tuple.posting, true, nil
		}
		if tuple.next == emptyBucket {
			return PostingList{}, false, nil
		}
		offset = tuple.next
	}
}

func fnv1a32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// urlRecord layout within the URL blob's records region, read relative to
// s.urlOffsets[id]: null-terminated URL, null-terminated title, then
// word_count(4) url_length(4) title_length(4) start(4) end(4) flags(1)
// where flags bit 0 is english and bits 1..4 hold the TLD tag.
func (s *Segment) urlRecord(id uint32) ([]byte, error) {
	if int(id) >= len(s.urlOffsets) {
		return nil, errCorrupt("document id %d out of range", id)
	}
	start := s.urlOffsets[id]
	if int(start) > len(s.urlBlob) {
		return nil, errCorrupt("document %d offset out of range", id)
	}
	return s.urlBlob[start:], nil
}

func readCString(buf []byte) (string, []byte, error) {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), buf[i+1:], nil
		}
	}
	return "", nil, errCorrupt("unterminated string in url blob")
}

// URL returns document id's URL string.
func (s *Segment) URL(id uint32) (string, error) {
	rec, err := s.urlRecord(id)
	if err != nil {
		return "", err
	}
	url, _, err := readCString(rec)
	return url, err
}

// Attributes resolves document id's full attribute record.
func (s *Segment) Attributes(id uint32) (Attributes, error) {
	rec, err := s.urlRecord(id)
	if err != nil {
		return Attributes{}, err
	}
	url, rest, err := readCString(rec)
	if err != nil {
		return Attributes{}, err
	}
	title, rest, err := readCString(rest)
	if err != nil {
		return Attributes{}, err
	}
	if len(rest) < 21 {
		return Attributes{}, errCorrupt("document %d attribute tail truncated", id)
	}
	wordCount := nativeUint32(rest[0:4])
	urlLength := nativeUint32(rest[4:8])
	titleLength := nativeUint32(rest[8:12])
	docStart := nativeUint32(rest[12:16])
	docEnd := nativeUint32(rest[16:20])
	flags := rest[20]

	return Attributes{
		URL:         url,
		Title:       title,
		WordCount:   wordCount,
		URLLength:   urlLength,
		TitleLength: titleLength,
		Start:       docStart,
		End:         docEnd,
		English:     flags&0x01 != 0,
		TLD:         TLD(flags >> 1),
	}, nil
}

// DocCount returns the number of documents the segment describes.
func (s *Segment) DocCount() uint32 { return s.header.DocumentsInIndex }

// DecodeSkip wraps codec.FindSkip for callers that only have a PostingList.
func DecodeSkip(pl PostingList, target uint32) (offset, location uint32) {
	e := codec.FindSkip(pl.SkipTable, target)
	return e.Offset, e.Location
}
