// Package format implements the placeholder variable format specifications
// used for record output and file names, including the optimization passes
// folding originator and thread dependent variables into literals.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/coaly-project/coaly/record"
)

// VarID identifies a placeholder variable.
type VarID int

const (
	VarNone VarID = iota
	VarAppID
	VarAppName
	VarHostName
	VarIPAddress
	VarProcessID
	VarProcessName
	VarThreadID
	VarThreadName
	VarEnv
	VarDate
	VarTime
	VarTimeStamp
	VarLevel
	VarLevelID
	VarMessage
	VarSourceFileName
	VarPureSourceFileName
	VarSourceLineNr
	VarObserverName
	VarObserverValue
)

// variable names, ordered so that a prefix never precedes its extension;
// matching walks the list and takes the first hit, giving longest match
var varNames = []struct {
	name string
	id   VarID
}{
	{"AppId", VarAppID},
	{"AppName", VarAppName},
	{"HostName", VarHostName},
	{"IpAddress", VarIPAddress},
	{"ProcessName", VarProcessName},
	{"ProcessId", VarProcessID},
	{"ThreadName", VarThreadName},
	{"ThreadId", VarThreadID},
	{"TimeStamp", VarTimeStamp},
	{"Time", VarTime},
	{"DateTime", VarTimeStamp},
	{"Date", VarDate},
	{"LevelId", VarLevelID},
	{"Level", VarLevel},
	{"Message", VarMessage},
	{"PureSourceFileName", VarPureSourceFileName},
	{"SourceFileName", VarSourceFileName},
	{"SourceLineNr", VarSourceLineNr},
	{"ObserverName", VarObserverName},
	{"ObserverValue", VarObserverValue},
}

// Item is one element of a format specification: either a literal or a
// placeholder variable. Env variables carry the referenced name.
type Item struct {
	Literal string
	Var     VarID
	EnvName string
}

// IsLiteral reports whether the item is plain text.
func (it Item) IsLiteral() bool { return it.Var == VarNone }

// Spec is an ordered sequence of literals and placeholder variables.
type Spec struct {
	items []Item
}

// ParseSpec parses a format string. A '$' introduces a variable reference,
// matched longest first against the known set; unrecognized sequences revert
// to literal text.
func ParseSpec(s string) *Spec {
	sp := &Spec{}
	var lit strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '$' {
			lit.WriteByte(s[i])
			i++
			continue
		}
		rest := s[i+1:]
		if strings.HasPrefix(rest, "Env[") {
			if end := strings.IndexByte(rest, ']'); end > 4 {
				sp.flushLiteral(&lit)
				sp.items = append(sp.items, Item{Var: VarEnv, EnvName: rest[4:end]})
				i += 1 + end + 1
				continue
			}
		}
		matched := false
		for _, vn := range varNames {
			if strings.HasPrefix(rest, vn.name) {
				sp.flushLiteral(&lit)
				sp.items = append(sp.items, Item{Var: vn.id})
				i += 1 + len(vn.name)
				matched = true
				break
			}
		}
		if !matched {
			lit.WriteByte('$')
			i++
		}
	}
	sp.flushLiteral(&lit)
	return sp
}

func (sp *Spec) flushLiteral(lit *strings.Builder) {
	if lit.Len() > 0 {
		sp.items = append(sp.items, Item{Literal: lit.String()})
		lit.Reset()
	}
}

// Items exposes the parsed sequence.
func (sp *Spec) Items() []Item { return sp.items }

// Clone returns an independent copy.
func (sp *Spec) Clone() *Spec {
	c := &Spec{items: make([]Item, len(sp.items))}
	copy(c.items, sp.items)
	return c
}

// String reassembles the specification source form.
func (sp *Spec) String() string {
	var sb strings.Builder
	for _, it := range sp.items {
		if it.IsLiteral() {
			sb.WriteString(it.Literal)
			continue
		}
		sb.WriteByte('$')
		if it.Var == VarEnv {
			sb.WriteString("Env[")
			sb.WriteString(it.EnvName)
			sb.WriteByte(']')
			continue
		}
		for _, vn := range varNames {
			if vn.id == it.Var {
				sb.WriteString(vn.name)
				break
			}
		}
	}
	return sb.String()
}

// IsThreadSpecific reports whether thread dependent variables remain.
func (sp *Spec) IsThreadSpecific() bool {
	for _, it := range sp.items {
		if it.Var == VarThreadID || it.Var == VarThreadName {
			return true
		}
	}
	return false
}

// IsOriginatorSpecific reports whether originator dependent variables
// remain.
func (sp *Spec) IsOriginatorSpecific() bool {
	for _, it := range sp.items {
		switch it.Var {
		case VarAppID, VarAppName, VarHostName, VarIPAddress,
			VarProcessID, VarProcessName, VarEnv:
			return true
		}
	}
	return false
}

// OptimizeForOriginator substitutes all originator dependent variables and
// coalesces neighboring literals.
func (sp *Spec) OptimizeForOriginator(o *record.Originator) *Spec {
	out := &Spec{}
	for _, it := range sp.items {
		switch it.Var {
		case VarAppID:
			out.appendLiteral(strconv.FormatUint(uint64(o.AppID), 10))
		case VarAppName:
			out.appendLiteral(o.AppName)
		case VarHostName:
			out.appendLiteral(o.HostName)
		case VarIPAddress:
			out.appendLiteral(o.IPAddress)
		case VarProcessID:
			out.appendLiteral(strconv.FormatUint(uint64(o.ProcessID), 10))
		case VarProcessName:
			out.appendLiteral(o.ProcessName)
		case VarEnv:
			v, _ := o.EnvValue(it.EnvName)
			out.appendLiteral(v)
		default:
			out.appendItem(it)
		}
	}
	return out
}

// OptimizeForThread substitutes the thread dependent variables and coalesces
// neighboring literals.
func (sp *Spec) OptimizeForThread(threadID uint64, threadName string) *Spec {
	out := &Spec{}
	for _, it := range sp.items {
		switch it.Var {
		case VarThreadID:
			out.appendLiteral(strconv.FormatUint(threadID, 10))
		case VarThreadName:
			out.appendLiteral(threadName)
		default:
			out.appendItem(it)
		}
	}
	return out
}

// Optimize combines both passes for the hot path.
func (sp *Spec) Optimize(o *record.Originator, threadID uint64, threadName string) *Spec {
	return sp.OptimizeForOriginator(o).OptimizeForThread(threadID, threadName)
}

func (sp *Spec) appendLiteral(s string) {
	n := len(sp.items)
	if n > 0 && sp.items[n-1].IsLiteral() {
		sp.items[n-1].Literal += s
		return
	}
	sp.items = append(sp.items, Item{Literal: s})
}

func (sp *Spec) appendItem(it Item) {
	if it.IsLiteral() {
		sp.appendLiteral(it.Literal)
		return
	}
	sp.items = append(sp.items, it)
}

// DateTimeFormats holds the strftime style patterns for the date, time and
// timestamp variables in record output.
type DateTimeFormats struct {
	Date      string
	Time      string
	Timestamp string
}

// DefaultDateTimeFormats returns the built-in patterns.
func DefaultDateTimeFormats() DateTimeFormats {
	return DateTimeFormats{Date: "%d.%m.%Y", Time: "%H:%M:%S", Timestamp: "%d.%m.%Y %H:%M:%S"}
}

// File names always render date and time variables with these fixed
// patterns, regardless of the configured record formats.
const (
	fileDatePattern      = "%Y%m%d"
	fileTimePattern      = "%H%M%S"
	fileTimestampPattern = "%Y%m%d%H%M%S"
)

// Append renders the record through the specification, appending to buf.
// Originator variables not yet optimized away resolve against o; a nil o
// renders them empty.
func (sp *Spec) Append(buf []byte, rec *record.Data, o *record.Originator,
	df DateTimeFormats) []byte {
	for _, it := range sp.items {
		if it.IsLiteral() {
			buf = append(buf, it.Literal...)
			continue
		}
		switch it.Var {
		case VarDate:
			buf = appendStrftime(buf, df.Date, rec.Time)
		case VarTime:
			buf = appendStrftime(buf, df.Time, rec.Time)
		case VarTimeStamp:
			buf = appendStrftime(buf, df.Timestamp, rec.Time)
		case VarLevel:
			buf = append(buf, rec.Level.String()...)
		case VarLevelID:
			buf = append(buf, rec.Level.ID())
		case VarMessage:
			buf = append(buf, rec.Message...)
		case VarSourceFileName:
			buf = append(buf, rec.SourceFile...)
		case VarPureSourceFileName:
			buf = append(buf, rec.PureSourceFileName()...)
		case VarSourceLineNr:
			buf = strconv.AppendInt(buf, int64(rec.LineNr), 10)
		case VarThreadID:
			buf = strconv.AppendUint(buf, rec.ThreadID, 10)
		case VarThreadName:
			buf = append(buf, rec.ThreadName...)
		case VarObserverName:
			buf = append(buf, rec.ObserverName...)
		case VarObserverValue:
			buf = append(buf, rec.ObserverValue...)
		case VarAppID:
			if o != nil {
				buf = strconv.AppendUint(buf, uint64(o.AppID), 10)
			}
		case VarAppName:
			if o != nil {
				buf = append(buf, o.AppName...)
			}
		case VarHostName:
			if o != nil {
				buf = append(buf, o.HostName...)
			}
		case VarIPAddress:
			if o != nil {
				buf = append(buf, o.IPAddress...)
			}
		case VarProcessID:
			if o != nil {
				buf = strconv.AppendUint(buf, uint64(o.ProcessID), 10)
			}
		case VarProcessName:
			if o != nil {
				buf = append(buf, o.ProcessName...)
			}
		case VarEnv:
			if o != nil {
				v, _ := o.EnvValue(it.EnvName)
				buf = append(buf, v...)
			}
		}
	}
	return buf
}

// FileName renders the specification as a file name at creation time. Date
// and time variables use their fixed file name patterns; variables that
// cannot appear in a file name render empty.
func (sp *Spec) FileName(now time.Time) string {
	var buf []byte
	for _, it := range sp.items {
		if it.IsLiteral() {
			buf = append(buf, it.Literal...)
			continue
		}
		switch it.Var {
		case VarDate:
			buf = appendStrftime(buf, fileDatePattern, now)
		case VarTime:
			buf = appendStrftime(buf, fileTimePattern, now)
		case VarTimeStamp:
			buf = appendStrftime(buf, fileTimestampPattern, now)
		}
	}
	return string(buf)
}

// IsDateTimeSpecific reports whether the file name changes with the
// creation moment.
func (sp *Spec) IsDateTimeSpecific() bool {
	for _, it := range sp.items {
		switch it.Var {
		case VarDate, VarTime, VarTimeStamp:
			return true
		}
	}
	return false
}

// FindPattern builds the regular expression source matching all files
// associated with the specification: the active file and its rollover
// archives, with optional sequence number and compression extension. Each
// date or time variable contributes a digit group of its rendered length.
func (sp *Spec) FindPattern(comprExt string) string {
	var sb strings.Builder
	sb.WriteString("^")
	for _, it := range sp.items {
		if it.IsLiteral() {
			sb.WriteString(regexpQuote(it.Literal))
			continue
		}
		switch it.Var {
		case VarDate:
			sb.WriteString(`\d{8}`)
		case VarTime:
			sb.WriteString(`\d{6}`)
		case VarTimeStamp:
			sb.WriteString(`\d{14}`)
		}
	}
	sb.WriteString(`(\.\d+)?`)
	if comprExt != "" {
		sb.WriteString("(" + regexpQuote(comprExt) + ")?")
	}
	sb.WriteString("$")
	return sb.String()
}

func regexpQuote(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
