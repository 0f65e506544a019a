package segment

import "encoding/binary"

// nativeUint32 and nativeUint64 read native-endian integers out of the
// segment's on-disk blobs, per spec §3.5 ("all integers are native-endian
// in the on-disk blob; segment is machine-local").
func nativeUint32(b []byte) uint32 {
	return binary.NativeEndian.Uint32(b)
}

func nativeUint64(b []byte) uint64 {
	return binary.NativeEndian.Uint64(b)
}

func putNativeUint32(b []byte, v uint32) {
	binary.NativeEndian.PutUint32(b, v)
}

func putNativeUint64(b []byte, v uint64) {
	binary.NativeEndian.PutUint64(b, v)
}
