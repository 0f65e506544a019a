//go:build unix

package segment

import (
	"os"

	"golang.org/x/sys/unix"
)

func mmapFile(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

func munmapFile(data []byte) error {
	return unix.Munmap(data)
}

// mlockBestEffort attempts to pin data into physical memory. Failure (most
// commonly RLIMIT_MEMLOCK) is not fatal: the segment still works, just
// without the pinning guarantee.
func mlockBestEffort(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	return unix.Mlock(data) == nil
}

func madviseWillNeed(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
}
