// Package config maps the parsed configuration document onto the strongly
// typed domain entities of the library: system and server properties, buffer
// and rollover policies, output formats, resource descriptors and mode
// change descriptors. Violations are accumulated as diagnostics; reading
// always yields a usable configuration.
package config

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/spf13/cast"

	"github.com/coaly-project/coaly/datetime"
)

// Buffer flush conditions, combined into a bit mask on the buffer policy.
const (
	FlushOnError uint32 = 1 << iota
	FlushOnWarning
	FlushOnFull
	FlushOnRollover
	FlushOnExit
)

// FlushConditionFromName resolves a flush condition name from the
// configuration file.
func FlushConditionFromName(s string) (uint32, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return FlushOnError, true
	case "warning":
		return FlushOnWarning, true
	case "full":
		return FlushOnFull, true
	case "rollover":
		return FlushOnRollover, true
	case "exit":
		return FlushOnExit, true
	}
	return 0, false
}

// Limits for buffer policy attributes.
const (
	MinBufferContentSize = 4 * 1024
	MaxBufferContentSize = 4 * 1024 * 1024 * 1024
	MinBufferIndexSize   = 4
	MaxBufferIndexSize   = 1 << 24

	DefaultBufferContentSize = 32 * 1024
	DefaultBufferIndexSize   = 256
	DefaultMaxRecordLength   = 4 * 1024
)

// BufferPolicy governs the record buffer of buffered resources.
type BufferPolicy struct {
	Name            string
	ContentSize     int64
	IndexSize       int
	FlushConditions uint32
	MaxRecordLength int
}

// DefaultBufferPolicy returns the built-in policy: 32 KiB content, 256
// index entries, flush on error and exit.
func DefaultBufferPolicy() *BufferPolicy {
	return &BufferPolicy{
		ContentSize:     DefaultBufferContentSize,
		IndexSize:       DefaultBufferIndexSize,
		FlushConditions: FlushOnError | FlushOnExit,
		MaxRecordLength: DefaultMaxRecordLength,
	}
}

// Compression selects the rollover archive algorithm.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionBzip2
	CompressionGzip
	CompressionLzma
	CompressionZip
)

func (c Compression) String() string {
	switch c {
	case CompressionBzip2:
		return "bzip2"
	case CompressionGzip:
		return "gzip"
	case CompressionLzma:
		return "lzma"
	case CompressionZip:
		return "zip"
	}
	return "none"
}

// Ext returns the file name extension of archives produced with the
// algorithm, including the leading dot. None compresses to a plain rename
// and contributes no extension.
func (c Compression) Ext() string {
	switch c {
	case CompressionBzip2:
		return ".bz2"
	case CompressionGzip:
		return ".gz"
	case CompressionLzma:
		if runtime.GOOS == "windows" {
			return ".7z"
		}
		return ".xz"
	case CompressionZip:
		return ".zip"
	}
	return ""
}

// CompressionFromName resolves an algorithm name from the configuration
// file. The empty string denotes no compression.
func CompressionFromName(s string) (Compression, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, true
	case "bzip2", "bz2":
		return CompressionBzip2, true
	case "gzip", "gz":
		return CompressionGzip, true
	case "lzma", "xz":
		return CompressionLzma, true
	case "zip":
		return CompressionZip, true
	}
	return CompressionNone, false
}

// RolloverCondKind discriminates the rollover condition forms.
type RolloverCondKind int

const (
	RolloverNever RolloverCondKind = iota
	RolloverSizeReached
	RolloverTimeElapsed
)

// RolloverCondition is the trigger for file rollover.
type RolloverCondition struct {
	Kind     RolloverCondKind
	Size     int64
	Interval datetime.Interval
}

// Limits for rollover policy attributes.
const (
	MinKeepCount     = 1
	MaxKeepCount     = 255
	DefaultKeepCount = 9
)

// RolloverPolicy governs archival of file based resources.
type RolloverPolicy struct {
	Name        string
	Condition   RolloverCondition
	KeepCount   int
	Compression Compression
}

// DefaultRolloverPolicy returns the built-in policy: no rollover, keep
// count 9, no compression.
func DefaultRolloverPolicy() *RolloverPolicy {
	return &RolloverPolicy{
		Condition: RolloverCondition{Kind: RolloverNever},
		KeepCount: DefaultKeepCount,
	}
}

var (
	sizeCondPattern     = regexp.MustCompile(`^\s*size\s*>\s*([0-9]+\s*[kmg]?)\s*$`)
	intervalCondPattern = regexp.MustCompile(`^\s*every(\s+[0-9]+)?\s+(second|minute|hour|day|week|month)s?\s*$`)
	anchoredCondPattern = regexp.MustCompile(`^\s*every(\s+[0-9]+)?\s+(hour|day|week|month)s?\s+at\s+(.+?)\s*$`)
)

// ParseRolloverCondition parses the condition string of a rollover policy:
// "never", "size > n[k|m|g]", "every [n] unit" or "every [n] unit at
// moment".
func ParseRolloverCondition(s string) (RolloverCondition, bool) {
	cond := strings.ToLower(strings.TrimSpace(s))
	if cond == "" || cond == "never" {
		return RolloverCondition{Kind: RolloverNever}, true
	}
	if m := sizeCondPattern.FindStringSubmatch(cond); m != nil {
		size, ok := parseSizeStr(m[1])
		if !ok {
			return RolloverCondition{}, false
		}
		return RolloverCondition{Kind: RolloverSizeReached, Size: size}, true
	}
	if m := anchoredCondPattern.FindStringSubmatch(cond); m != nil {
		span, ok := parseSpan(m[1], m[2])
		if !ok {
			return RolloverCondition{}, false
		}
		anchor, ok := datetime.ParseAnchor(m[3], span.Unit)
		if !ok {
			return RolloverCondition{}, false
		}
		return RolloverCondition{
			Kind:     RolloverTimeElapsed,
			Interval: datetime.Anchored(span, anchor),
		}, true
	}
	if m := intervalCondPattern.FindStringSubmatch(cond); m != nil {
		span, ok := parseSpan(m[1], m[2])
		if !ok {
			return RolloverCondition{}, false
		}
		return RolloverCondition{
			Kind:     RolloverTimeElapsed,
			Interval: datetime.Unanchored(span),
		}, true
	}
	return RolloverCondition{}, false
}

func parseSpan(countStr, unitStr string) (datetime.TimeSpan, bool) {
	count := 1
	if c := strings.TrimSpace(countStr); c != "" {
		v, err := cast.ToIntE(c)
		if err != nil || v < 1 {
			return datetime.TimeSpan{}, false
		}
		count = v
	}
	unit, ok := datetime.UnitFromName(unitStr)
	if !ok {
		return datetime.TimeSpan{}, false
	}
	return datetime.TimeSpan{Unit: unit, Count: count}, true
}

// parseSizeStr parses a byte count with optional k, m or g suffix.
func parseSizeStr(s string) (int64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "k"):
		mult = 1024
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	case strings.HasSuffix(s, "m"):
		mult = 1024 * 1024
		s = strings.TrimSpace(strings.TrimSuffix(s, "m"))
	case strings.HasSuffix(s, "g"):
		mult = 1024 * 1024 * 1024
		s = strings.TrimSpace(strings.TrimSuffix(s, "g"))
	}
	v, err := cast.ToInt64E(s)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * mult, true
}
