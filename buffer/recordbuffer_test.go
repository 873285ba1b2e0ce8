package buffer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contents(b *RecordBuffer) []string {
	var out []string
	for _, r := range b.Records() {
		out = append(out, string(r.Bytes()))
	}
	return out
}

func TestMemoryFifoOrder(t *testing.T) {
	b := NewMemory(68, 8, 16) // content 64
	b.Write([]byte("first"))
	b.Write([]byte("second"))
	b.Write([]byte("third"))
	assert.Equal(t, []string{"first", "second", "third"}, contents(b))
	assert.Equal(t, 3, b.Count())
}

func TestMemoryTruncation(t *testing.T) {
	b := NewMemory(68, 8, 8) // content 64, max record 8
	b.Write([]byte("12345678901234"))
	assert.Equal(t, []string{"12345678"}, contents(b))

	// truncation never splits a character
	b.Clear()
	b.Write([]byte("1234567é")) // é starts at byte 7, would be split at 8
	assert.Equal(t, []string{"1234567"}, contents(b))
}

func TestMemoryEviction(t *testing.T) {
	b := NewMemory(20, 8, 16) // content 16
	b.Write([]byte("aaaaaaaa"))
	b.Write([]byte("bbbbbbbb"))
	// full now; the next write evicts the oldest record
	b.Write([]byte("cccc"))
	got := contents(b)
	assert.NotContains(t, got, "aaaaaaaa")
	assert.Equal(t, "cccc", got[len(got)-1])
	assert.LessOrEqual(t, usedOf(b), b.ContentSize())
}

func usedOf(b *RecordBuffer) int { return b.usedBytes() }

func TestIndexCapacityEviction(t *testing.T) {
	b := NewMemory(1028, 4, 64) // content 1024, only 4 index entries
	for _, s := range []string{"r1", "r2", "r3", "r4", "r5"} {
		b.Write([]byte(s))
	}
	// plenty of byte space, but the index bounds the record count
	assert.Equal(t, []string{"r2", "r3", "r4", "r5"}, contents(b))
}

func TestOversizeRecordReplacesContents(t *testing.T) {
	b := NewMemory(24, 8, 0) // content 20, max record = content
	b.Write([]byte("aaaa"))
	b.Write([]byte("bbbb"))
	b.Write([]byte(strings.Repeat("x", 30)))
	got := contents(b)
	require.Len(t, got, 1)
	assert.Equal(t, strings.Repeat("x", 20), got[0])
}

func TestWrapAround(t *testing.T) {
	b := NewMemory(44, 8, 16) // content 40
	for i := 0; i < 4; i++ {
		b.Write([]byte("12345678"))
	}
	// 32 of 40 bytes used; the next record evicts the oldest and wraps
	b.Write([]byte("abcdefghij"))

	assert.Equal(t, []string{"12345678", "12345678", "12345678", "abcdefghij"},
		contents(b))

	// the newest record is split across the tail boundary
	recs := b.Records()
	require.Len(t, recs, 4)
	last := recs[3]
	assert.NotNil(t, last.Second, "newest record should wrap at the tail")
	assert.Equal(t, "abcdefgh", string(last.First))
	assert.Equal(t, "ij", string(last.Second))
}

func TestWrapKeepsMultiByteIntact(t *testing.T) {
	b := NewMemory(44, 8, 20) // content 40
	for i := 0; i < 4; i++ {
		b.Write([]byte("12345678"))
	}
	// 2-byte é lands across the tail boundary; the split spills forward
	b.Write([]byte("1234567é89"))

	recs := b.Records()
	last := recs[len(recs)-1]
	assert.Equal(t, "1234567é89", string(last.Bytes()))
	assert.Equal(t, "1234567é", string(last.First))
}

func TestChunks(t *testing.T) {
	b := NewMemory(44, 8, 16) // content 40
	assert.Nil(t, b.Chunk(0))

	b.Write([]byte("aaaa"))
	b.Write([]byte("bbbb"))
	assert.Equal(t, "aaaabbbb", string(b.Chunk(0)))
	assert.Nil(t, b.Chunk(1))

	for i := 0; i < 3; i++ {
		b.Write([]byte("cccccccc"))
	}
	b.Write([]byte("dddddddddd")) // wraps
	c0, c1 := b.Chunk(0), b.Chunk(1)
	require.NotNil(t, c0)
	require.NotNil(t, c1)
	joined := string(c0) + string(c1)
	assert.Contains(t, joined, "dddddddddd")
}

func TestClearIdempotent(t *testing.T) {
	b := NewMemory(44, 8, 16)
	b.Write([]byte("aaaa"))
	b.Write([]byte("bbbb"))
	b.Clear()
	assert.True(t, b.IsEmpty())
	assert.Equal(t, 0, b.Count())
	assert.Nil(t, b.Chunk(0))

	b.Write([]byte("cccc"))
	assert.Equal(t, []string{"cccc"}, contents(b))
}

func TestMinimumSizes(t *testing.T) {
	b := NewMemory(1, 1, 1)
	assert.Equal(t, MinMemorySize-4, b.ContentSize())
}

func TestMappedBasics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.mm")
	b, err := NewMapped(path, 96, 8, 32, true) // content 64
	require.NoError(t, err)
	defer b.Close()

	b.Write([]byte("first\n"))
	b.Write([]byte("second\n"))
	assert.Equal(t, []string{"first\n", "second\n"}, contents(b))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(96), fi.Size())
}

func TestMappedAdminTrailer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.mm")
	b, err := NewMapped(path, 96, 8, 32, true) // content 64
	require.NoError(t, err)
	b.Write([]byte("abcdef\n"))
	b.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	trailer := data[64:]
	assert.Equal(t, byte('0'), trailer[3])
	assert.Equal(t, "00000000000000", string(trailer[4:18]))
	assert.Equal(t, "00000000000007", string(trailer[18:32]))
}

func TestMappedRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.mm")
	b, err := NewMapped(path, 96, 8, 32, true)
	require.NoError(t, err)
	b.Write([]byte("aaaa\n"))
	b.Write([]byte("bbbb\n"))
	b.Close()

	// reopening without create recovers the stored records
	b2, err := NewMapped(path, 96, 8, 32, false)
	require.NoError(t, err)
	defer b2.Close()
	assert.Equal(t, []string{"aaaa\n", "bbbb\n"}, contents(b2))
}

func TestMappedReopen(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "one.mm")
	second := filepath.Join(dir, "two.mm")

	b, err := NewMapped(first, 96, 8, 32, true)
	require.NoError(t, err)
	b.Write([]byte("data\n"))

	require.NoError(t, b.Reopen(second, true))
	assert.True(t, b.IsEmpty())
	b.Write([]byte("fresh\n"))
	assert.Equal(t, []string{"fresh\n"}, contents(b))
	b.Close()

	_, err = os.Stat(second)
	assert.NoError(t, err)
}
