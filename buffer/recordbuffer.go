// Package buffer implements the cyclic record buffer holding formatted
// records before they migrate to their output sink. Buffers are backed by
// plain memory or by a memory mapped file whose administrative trailer
// keeps the buffer recoverable after a crash.
package buffer

import (
	"os"
	"unicode/utf8"

	mmap "github.com/edsrzf/mmap-go"
)

const (
	// MinMemorySize is the floor for in-memory buffer allocations.
	MinMemorySize = 20
	// MinMappedSize is the floor for memory mapped buffer files.
	MinMappedSize = 48
	// MinIndexSize is the floor for the record index capacity.
	MinIndexSize = 4

	// in-memory buffers reserve space at the tail for encoding boundary
	// overflow; mapped buffers reserve the administrative trailer
	memReserve  = 4
	adminSize   = 32
	offsetWidth = 14
)

// RecordBuffer is a contiguous byte region holding records in circular
// layout, indexed by a fixed capacity vector of byte offsets.
type RecordBuffer struct {
	data        []byte
	mm          mmap.MMap
	file        *os.File
	contentSize int
	maxRecLen   int

	index    []int
	idxHead  int
	count    int
	oldest   int
	insert   int
	extra    int
}

// NewMemory creates an in-memory buffer of at least MinMemorySize bytes.
// The last four bytes of the allocation are reserved for encoding boundary
// overflow.
func NewMemory(size, indexSize, maxRecLen int) *RecordBuffer {
	if size < MinMemorySize {
		size = MinMemorySize
	}
	if indexSize < MinIndexSize {
		indexSize = MinIndexSize
	}
	b := &RecordBuffer{
		data:        make([]byte, size),
		contentSize: size - memReserve,
		index:       make([]int, indexSize),
	}
	b.maxRecLen = clampRecLen(maxRecLen, b.contentSize)
	return b
}

// NewMapped creates or opens a file of at least MinMappedSize bytes and
// memory maps it read-write. When an existing file is opened, the buffer
// state is recovered from the administrative trailer.
func NewMapped(path string, size, indexSize, maxRecLen int, create bool) (*RecordBuffer, error) {
	if size < MinMappedSize {
		size = MinMappedSize
	}
	if indexSize < MinIndexSize {
		indexSize = MinIndexSize
	}
	b := &RecordBuffer{
		contentSize: size - adminSize,
		index:       make([]int, indexSize),
	}
	b.maxRecLen = clampRecLen(maxRecLen, b.contentSize)
	if err := b.mapFile(path, size, create); err != nil {
		return nil, err
	}
	return b, nil
}

func clampRecLen(maxRecLen, contentSize int) int {
	if maxRecLen <= 0 || maxRecLen > contentSize {
		return contentSize
	}
	return maxRecLen
}

func (b *RecordBuffer) mapFile(path string, size int, create bool) error {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	existing := !create && fi.Size() == int64(size)
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return err
	}
	mapped, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return err
	}
	b.file = f
	b.mm = mapped
	b.data = mapped
	if existing {
		b.recover()
	} else {
		b.updateAdminData()
	}
	return nil
}

// Reopen swaps the backing file while preserving the buffer parameters.
// Used during rollover of memory mapped resources.
func (b *RecordBuffer) Reopen(path string, create bool) error {
	size := b.contentSize + adminSize
	b.Close()
	b.reset()
	return b.mapFile(path, size, create)
}

// MaxRecLen returns the record truncation threshold.
func (b *RecordBuffer) MaxRecLen() int { return b.maxRecLen }

// ContentSize returns the usable content area size.
func (b *RecordBuffer) ContentSize() int { return b.contentSize }

// IsEmpty reports whether no record is stored.
func (b *RecordBuffer) IsEmpty() bool { return b.count == 0 }

// Count returns the number of stored records.
func (b *RecordBuffer) Count() int { return b.count }

func (b *RecordBuffer) usedBytes() int {
	if b.count == 0 {
		return 0
	}
	if b.insert > b.oldest {
		return b.insert - b.oldest
	}
	return b.contentSize - b.oldest + b.insert
}

func (b *RecordBuffer) freeBytes() int { return b.contentSize - b.usedBytes() }

// CanLosslessHold reports whether the given number of bytes fits without
// evicting stored records.
func (b *RecordBuffer) CanLosslessHold(n int) bool {
	if n > b.maxRecLen {
		n = b.maxRecLen
	}
	return n <= b.freeBytes() && b.count < len(b.index)
}

// Write stores one record. Records longer than the maximum record length
// are truncated at a character boundary; when the free space is exhausted,
// the oldest records are evicted one by one until the new record fits.
func (b *RecordBuffer) Write(rec []byte) {
	rec = truncateAtBoundary(rec, b.maxRecLen)
	need := len(rec)
	if need == 0 {
		return
	}
	for b.count > 0 && (b.freeBytes() < need || b.count == len(b.index)) {
		b.evictOldest()
	}
	start := b.insert
	gap := b.contentSize - b.insert
	if need <= gap {
		copy(b.data[b.insert:], rec)
		b.insert += need
		if b.insert == b.contentSize {
			b.insert = 0
			b.extra = 0
		}
	} else {
		s := splitPos(rec, gap)
		copy(b.data[b.insert:], rec[:s])
		b.extra = s - gap
		copy(b.data, rec[s:])
		b.insert = need - s
	}
	b.index[(b.idxHead+b.count)%len(b.index)] = start
	if b.count == 0 {
		b.oldest = start
	}
	b.count++
	if b.mm != nil {
		b.updateAdminData()
	}
}

func (b *RecordBuffer) evictOldest() {
	old := b.index[b.idxHead]
	b.idxHead = (b.idxHead + 1) % len(b.index)
	b.count--
	if b.count == 0 {
		b.oldest, b.insert, b.extra = 0, 0, 0
		return
	}
	b.oldest = b.index[b.idxHead]
	if b.oldest < old {
		// the evicted record crossed the tail boundary
		b.extra = 0
	}
}

// truncateAtBoundary cuts the record to at most max bytes, scanning
// backwards so no encoded character is split.
func truncateAtBoundary(rec []byte, max int) []byte {
	if len(rec) <= max {
		return rec
	}
	i := max
	for i > 0 && !utf8.RuneStart(rec[i]) {
		i--
	}
	return rec[:i]
}

// splitPos chooses the split position for a record wrapping at the tail
// boundary: the character boundary nearest to the gap, biased forward so
// the first part may spill up to three bytes past the logical tail.
func splitPos(rec []byte, gap int) int {
	if gap >= len(rec) {
		return len(rec)
	}
	fwd := gap
	for fwd < len(rec) && !utf8.RuneStart(rec[fwd]) {
		fwd++
	}
	if fwd-gap <= 3 {
		return fwd
	}
	back := gap
	for back > 0 && !utf8.RuneStart(rec[back]) {
		back--
	}
	return back
}

// Chunk returns the raw byte regions currently in use: index 0 is the
// chunk starting at the oldest record, index 1 the wrapped-around tail
// chunk if the contents wrap. Enables reading without copying.
func (b *RecordBuffer) Chunk(i int) []byte {
	if b.count == 0 {
		return nil
	}
	wrapped := b.insert <= b.oldest && b.insert > 0
	switch i {
	case 0:
		if b.insert > b.oldest {
			return b.data[b.oldest:b.insert]
		}
		return b.data[b.oldest : b.contentSize+b.extra]
	case 1:
		if wrapped {
			return b.data[:b.insert]
		}
	}
	return nil
}

// Record is one stored record, in two slices when it wraps at the tail
// boundary.
type Record struct {
	First  []byte
	Second []byte
}

// Bytes returns the record contents as one contiguous slice, copying only
// when the record wraps.
func (r Record) Bytes() []byte {
	if r.Second == nil {
		return r.First
	}
	out := make([]byte, 0, len(r.First)+len(r.Second))
	out = append(out, r.First...)
	return append(out, r.Second...)
}

// Records returns all stored records in FIFO order.
func (b *RecordBuffer) Records() []Record {
	recs := make([]Record, 0, b.count)
	for i := 0; i < b.count; i++ {
		start := b.index[(b.idxHead+i)%len(b.index)]
		next := b.insert
		if i+1 < b.count {
			next = b.index[(b.idxHead+i+1)%len(b.index)]
		}
		if next > start {
			recs = append(recs, Record{First: b.data[start:next]})
		} else {
			recs = append(recs, Record{
				First:  b.data[start : b.contentSize+b.extra],
				Second: b.data[:next],
			})
		}
	}
	return recs
}

// Clear resets the buffer to its freshly constructed state.
func (b *RecordBuffer) Clear() {
	b.reset()
	if b.mm != nil {
		b.updateAdminData()
	}
}

func (b *RecordBuffer) reset() {
	b.idxHead, b.count = 0, 0
	b.oldest, b.insert, b.extra = 0, 0, 0
}

// Close flushes and releases a memory mapping; in-memory buffers only drop
// their contents.
func (b *RecordBuffer) Close() {
	if b.mm != nil {
		b.updateAdminData()
		b.mm.Flush()
		b.mm.Unmap()
		b.mm = nil
		b.data = nil
	}
	if b.file != nil {
		b.file.Close()
		b.file = nil
	}
}

// updateAdminData persists the administrative offsets into the trailer of a
// mapped buffer: 3 pad bytes, one extra-byte count, then oldest and insert
// offset as 14 character ASCII numbers.
func (b *RecordBuffer) updateAdminData() {
	if b.mm == nil {
		return
	}
	// the three pad bytes double as spill room for a wrapping record's
	// encoding boundary overflow and must stay untouched here
	t := b.data[b.contentSize:]
	t[3] = byte('0' + b.extra)
	writeASCIIOffset(t[4:4+offsetWidth], b.oldest)
	writeASCIIOffset(t[4+offsetWidth:4+2*offsetWidth], b.insert)
}

func writeASCIIOffset(dst []byte, v int) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte('0' + v%10)
		v /= 10
	}
}

func readASCIIOffset(src []byte) int {
	v := 0
	for _, c := range src {
		if c < '0' || c > '9' {
			return 0
		}
		v = v*10 + int(c-'0')
	}
	return v
}

// recover rebuilds the buffer state of an existing mapped file from its
// administrative trailer. The record index is reconstructed by splitting
// the content area at line terminators; surplus records beyond the index
// capacity are dropped oldest first.
func (b *RecordBuffer) recover() {
	t := b.data[b.contentSize:]
	if t[3] >= '0' && t[3] <= '3' {
		b.extra = int(t[3] - '0')
	}
	b.oldest = readASCIIOffset(t[4 : 4+offsetWidth])
	b.insert = readASCIIOffset(t[4+offsetWidth : 4+2*offsetWidth])
	if b.oldest >= b.contentSize || b.insert >= b.contentSize {
		b.reset()
		b.updateAdminData()
		return
	}
	if b.oldest == 0 && b.insert == 0 && b.extra == 0 {
		return
	}

	var offs []int
	pos := b.oldest
	offs = append(offs, pos)
	for pos != b.insert {
		c := b.data[pos]
		pos++
		if pos == b.contentSize+b.extra {
			pos = 0
		}
		if c == '\n' && pos != b.insert {
			offs = append(offs, pos)
		}
	}
	for len(offs) > len(b.index) {
		offs = offs[1:]
	}
	b.idxHead = 0
	b.count = len(offs)
	copy(b.index, offs)
	b.oldest = offs[0]
}
