package snapshot

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is one mapped snapshot area. The engine maps it read-write;
// viewers map it read-only.
type Region struct {
	data      []byte
	maxLevels int
	writable  bool
}

func regionPath(dir, name string) string {
	return filepath.Join(dir, strings.TrimPrefix(name, "/"))
}

// Create opens (or creates) a region sized for maxLevels and maps it
// read-write. An existing region is resized; its sequence restarts at
// zero.
func Create(dir, name string, maxLevels int) (*Region, error) {
	if maxLevels < 1 {
		maxLevels = 1
	}
	size := regionBytes(maxLevels)
	path := regionPath(dir, name)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o660)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("snapshot: ftruncate %s: %w", path, err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	unix.Close(fd)
	if err != nil {
		return nil, fmt.Errorf("snapshot: mmap %s: %w", path, err)
	}

	r := &Region{data: data, maxLevels: maxLevels, writable: true}
	for i := range data {
		data[i] = 0
	}
	binary.LittleEndian.PutUint32(data[offMaxLevels:], uint32(maxLevels))
	return r, nil
}

// OpenRead maps an existing region read-only, sizing from the file.
func OpenRead(dir, name string) (*Region, error) {
	path := regionPath(dir, name)

	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("snapshot: fstat %s: %w", path, err)
	}
	if st.Size < int64(regionBytes(1)) {
		unix.Close(fd)
		return nil, fmt.Errorf("snapshot: region %s too small (%d bytes)", path, st.Size)
	}
	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_SHARED)
	unix.Close(fd)
	if err != nil {
		return nil, fmt.Errorf("snapshot: mmap %s: %w", path, err)
	}

	maxLevels := int(binary.LittleEndian.Uint32(data[offMaxLevels:]))
	if maxLevels < 1 || regionBytes(maxLevels) > len(data) {
		unix.Munmap(data)
		return nil, fmt.Errorf("snapshot: region %s has bad max_levels %d", path, maxLevels)
	}
	return &Region{data: data, maxLevels: maxLevels}, nil
}

func (r *Region) MaxLevels() int { return r.maxLevels }

func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	return unix.Munmap(data)
}

func (r *Region) seqAddr() *uint64 {
	return (*uint64)(unsafe.Pointer(&r.data[offSequence]))
}

func (r *Region) loadSeq() uint64 {
	return atomic.LoadUint64(r.seqAddr())
}

func (r *Region) storeSeq(v uint64) {
	atomic.StoreUint64(r.seqAddr(), v)
}
