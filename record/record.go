package record

import (
	"bytes"
	"errors"
	"strconv"
	"time"
)

// Data is the payload of a single log or trace record, as supplied by the
// caller side of the library. Originator information is attached externally.
type Data struct {
	Level         Level
	Trigger       Trigger
	Time          time.Time
	ThreadID      uint64
	ThreadName    string
	SourceFile    string
	LineNr        int
	Message       string
	ObserverName  string
	ObserverValue string
}

// PureSourceFileName returns the file name without directory part.
func (d *Data) PureSourceFileName() string {
	f := d.SourceFile
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '/' || f[i] == '\\' {
			return f[i+1:]
		}
	}
	return f
}

// Wire form: fields separated by ASCII unit separator, record terminated by
// a line feed. Used by remote proxy resources forwarding unformatted records.
const fieldSep = 0x1f

// AppendSerialized appends the record in wire form to buf and returns the
// extended buffer.
func (d *Data) AppendSerialized(buf []byte) []byte {
	buf = strconv.AppendInt(buf, int64(d.Level), 10)
	buf = append(buf, fieldSep)
	buf = strconv.AppendUint(buf, uint64(d.Trigger), 10)
	buf = append(buf, fieldSep)
	buf = strconv.AppendInt(buf, d.Time.UnixMicro(), 10)
	buf = append(buf, fieldSep)
	buf = strconv.AppendUint(buf, d.ThreadID, 10)
	buf = append(buf, fieldSep)
	buf = append(buf, d.ThreadName...)
	buf = append(buf, fieldSep)
	buf = append(buf, d.SourceFile...)
	buf = append(buf, fieldSep)
	buf = strconv.AppendInt(buf, int64(d.LineNr), 10)
	buf = append(buf, fieldSep)
	buf = append(buf, d.ObserverName...)
	buf = append(buf, fieldSep)
	buf = append(buf, d.ObserverValue...)
	buf = append(buf, fieldSep)
	buf = append(buf, d.Message...)
	buf = append(buf, '\n')
	return buf
}

// ParseData parses one record in wire form, as produced by AppendSerialized.
// A trailing line feed is accepted and ignored.
func ParseData(b []byte) (*Data, error) {
	b = bytes.TrimSuffix(b, []byte{'\n'})
	parts := bytes.SplitN(b, []byte{fieldSep}, 10)
	if len(parts) != 10 {
		return nil, errors.New("malformed serialized record")
	}
	lvl, err := strconv.ParseInt(string(parts[0]), 10, 32)
	if err != nil || lvl < 0 || lvl >= levelCount {
		return nil, errors.New("malformed record level")
	}
	trg, err := strconv.ParseUint(string(parts[1]), 10, 32)
	if err != nil {
		return nil, errors.New("malformed record trigger")
	}
	usec, err := strconv.ParseInt(string(parts[2]), 10, 64)
	if err != nil {
		return nil, errors.New("malformed record timestamp")
	}
	tid, err := strconv.ParseUint(string(parts[3]), 10, 64)
	if err != nil {
		return nil, errors.New("malformed thread id")
	}
	lnr, err := strconv.ParseInt(string(parts[6]), 10, 32)
	if err != nil {
		return nil, errors.New("malformed line number")
	}
	return &Data{
		Level:         Level(lvl),
		Trigger:       Trigger(trg),
		Time:          time.UnixMicro(usec),
		ThreadID:      tid,
		ThreadName:    string(parts[4]),
		SourceFile:    string(parts[5]),
		LineNr:        int(lnr),
		ObserverName:  string(parts[7]),
		ObserverValue: string(parts[8]),
		Message:       string(parts[9]),
	}, nil
}
