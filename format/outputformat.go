package format

import (
	"github.com/coaly-project/coaly/record"
)

// OutputFormat associates record levels and triggers with the format
// specification rendering matching records. Resources hold a cloned output
// format that is specialized per originator and thread.
type OutputFormat struct {
	entries   []FormatEntry
	dtFormats DateTimeFormats
	fallback  *Spec
}

// FormatEntry maps a level and trigger mask to a specification.
type FormatEntry struct {
	Levels   uint32
	Triggers uint32
	Spec     *Spec
}

// DefaultSpecSource is the format applied when no configured entry matches.
const DefaultSpecSource = "$Date $Time $LevelId $Message"

// NewOutputFormat creates an output format from its entries. Lookup walks
// the entries in order and takes the first match; records matching no entry
// render with the default specification.
func NewOutputFormat(entries []FormatEntry, df DateTimeFormats) *OutputFormat {
	return &OutputFormat{
		entries:   entries,
		dtFormats: df,
		fallback:  ParseSpec(DefaultSpecSource),
	}
}

// DefaultOutputFormat returns the built-in format covering all levels and
// triggers.
func DefaultOutputFormat() *OutputFormat {
	return NewOutputFormat([]FormatEntry{{
		Levels:   record.AllLevels,
		Triggers: record.AllTriggers,
		Spec:     ParseSpec(DefaultSpecSource),
	}}, DefaultDateTimeFormats())
}

// Entries exposes the mapping, mainly for configuration dumps.
func (of *OutputFormat) Entries() []FormatEntry { return of.entries }

// DateTimeFormats returns the date and time patterns of this format.
func (of *OutputFormat) DateTimeFormats() DateTimeFormats { return of.dtFormats }

// Clone returns an independent copy with cloned specifications.
func (of *OutputFormat) Clone() *OutputFormat {
	c := &OutputFormat{
		entries:   make([]FormatEntry, len(of.entries)),
		dtFormats: of.dtFormats,
		fallback:  of.fallback.Clone(),
	}
	for i, e := range of.entries {
		c.entries[i] = FormatEntry{Levels: e.Levels, Triggers: e.Triggers, Spec: e.Spec.Clone()}
	}
	return c
}

// SpecFor returns the specification for a level and trigger.
func (of *OutputFormat) SpecFor(lvl record.Level, trg record.Trigger) *Spec {
	for _, e := range of.entries {
		if lvl.In(e.Levels) && trg.In(e.Triggers) {
			return e.Spec
		}
	}
	return of.fallback
}

// OptimizeForOriginator folds originator variables in every entry.
func (of *OutputFormat) OptimizeForOriginator(o *record.Originator) *OutputFormat {
	c := &OutputFormat{
		entries:   make([]FormatEntry, len(of.entries)),
		dtFormats: of.dtFormats,
		fallback:  of.fallback.OptimizeForOriginator(o),
	}
	for i, e := range of.entries {
		c.entries[i] = FormatEntry{
			Levels: e.Levels, Triggers: e.Triggers,
			Spec: e.Spec.OptimizeForOriginator(o),
		}
	}
	return c
}

// OptimizeForThread folds thread variables in every entry.
func (of *OutputFormat) OptimizeForThread(threadID uint64, threadName string) *OutputFormat {
	c := &OutputFormat{
		entries:   make([]FormatEntry, len(of.entries)),
		dtFormats: of.dtFormats,
		fallback:  of.fallback.OptimizeForThread(threadID, threadName),
	}
	for i, e := range of.entries {
		c.entries[i] = FormatEntry{
			Levels: e.Levels, Triggers: e.Triggers,
			Spec: e.Spec.OptimizeForThread(threadID, threadName),
		}
	}
	return c
}

// Append renders the record with the matching specification, appending the
// platform line terminator.
func (of *OutputFormat) Append(buf []byte, rec *record.Data, o *record.Originator) []byte {
	sp := of.SpecFor(rec.Level, rec.Trigger)
	buf = sp.Append(buf, rec, o, of.dtFormats)
	return append(buf, lineTerminator...)
}
