package codec

// SkipEntry is one (offset, location) pair letting a seek jump partway
// into a delta-encoded posting stream without decoding from the start.
// 8 bytes on the wire per spec §6.3 (two uint32s).
type SkipEntry struct {
	Offset   uint32
	Location uint32
}

// SkipCount returns the number of skip entries a posting list of postCount
// posts should carry: min(max(1, postCount/32), 256), per spec §3.3.
func SkipCount(postCount int) int {
	n := postCount / 32
	if n < 1 {
		n = 1
	}
	if n > 256 {
		n = 256
	}
	return n
}

func bucketOf(location, skipCount, maxLocation uint32) int {
	// bucket = post.loc * skip_count / (max_loc + 1), computed in 64 bits
	// to avoid overflow for locations near the top of the uint32 range.
	num := uint64(location) * uint64(skipCount)
	den := uint64(maxLocation) + 1
	return int(num / den)
}

// BuildWordSkipTable decodes the full posting stream once (maintaining the
// running "current location" exactly as a real Word iterator would) and
// buckets each post's pre-decode (offset, location) into skipCount equal
// slices of [0, maxLocation], per spec §4.1's skip-table build algorithm.
func BuildWordSkipTable(data []byte, postCount int, maxLocation uint32) []SkipEntry {
	skipCount := SkipCount(postCount)
	entries := make([]SkipEntry, skipCount)
	if postCount == 0 {
		return entries
	}

	offset := 0
	var curLoc uint32
	lastBucket := -1

	for i := 0; i < postCount; i++ {
		preOffset := uint32(offset)
		preLoc := curLoc

		post, newLoc, consumed := DecodeWordPost(data[offset:], curLoc)
		if consumed == 0 {
			break // truncated varint; caller surfaces ErrCorruptSegment
		}

		bucket := bucketOf(post.Location, uint32(skipCount), maxLocation)
		if bucket > lastBucket {
			fillBuckets(entries, lastBucket, bucket, preOffset, preLoc)
			lastBucket = bucket
		}

		offset += consumed
		curLoc = newLoc
	}

	fillBuckets(entries, lastBucket, skipCount-1, uint32(offset), curLoc)
	return entries
}

// BuildDocSkipTable is BuildWordSkipTable's analogue for the single
// doc-end posting list, bucketing on each DocumentPost's Start location.
func BuildDocSkipTable(data []byte, postCount int, maxLocation uint32) []SkipEntry {
	skipCount := SkipCount(postCount)
	entries := make([]SkipEntry, skipCount)
	if postCount == 0 {
		return entries
	}

	offset := 0
	var prevEnd uint32
	lastBucket := -1

	for i := 0; i < postCount; i++ {
		preOffset := uint32(offset)
		preLoc := prevEnd

		post, newEnd, consumed := DecodeDocPost(data[offset:], prevEnd)
		if consumed == 0 {
			break
		}

		bucket := bucketOf(post.Start, uint32(skipCount), maxLocation)
		if bucket > lastBucket {
			fillBuckets(entries, lastBucket, bucket, preOffset, preLoc)
			lastBucket = bucket
		}

		offset += consumed
		prevEnd = newEnd
	}

	fillBuckets(entries, lastBucket, skipCount-1, uint32(offset), prevEnd)
	return entries
}

// fillBuckets writes entry into every bucket index in (lastBucket, upTo]
// that exists in entries.
func fillBuckets(entries []SkipEntry, lastBucket, upTo int, offset, location uint32) {
	for b := lastBucket + 1; b <= upTo; b++ {
		if b < 0 || b >= len(entries) {
			continue
		}
		entries[b] = SkipEntry{Offset: offset, Location: location}
	}
}

// FindSkip returns the best skip entry to resume decoding from in order to
// reach target: the entry with the largest Location strictly less than
// target, or the zero entry if none qualifies (decode from the start).
func FindSkip(entries []SkipEntry, target uint32) SkipEntry {
	best := SkipEntry{}
	for _, e := range entries {
		if e.Location < target && e.Location >= best.Location {
			best = e
		}
	}
	return best
}
