// Package output implements the runtime side of the library: physical
// output resources with buffering and flush policies, file rollover with
// archival and compression, and the inventory routing records from threads
// and originators to their resources.
package output

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/coaly-project/coaly/buffer"
	"github.com/coaly-project/coaly/config"
	"github.com/coaly-project/coaly/diag"
	"github.com/coaly-project/coaly/format"
	"github.com/coaly-project/coaly/record"
)

// RemoteSink is the transport behind syslog and network resources. The
// transports themselves are external collaborators; the library only
// defines the capability surface it writes to.
type RemoteSink interface {
	io.WriteCloser
	// WantsSerializedRecords selects the wire form over formatted text.
	WantsSerializedRecords() bool
}

// RemoteSinkFactory creates the transport for a syslog or network resource.
// Integrations install one via SetRemoteSinkFactory; without a factory such
// resources fail creation.
type RemoteSinkFactory func(kind config.ResourceKind, remote, local *url.URL,
	facility int) (RemoteSink, error)

var (
	remoteFactoryMu sync.Mutex
	remoteFactory   RemoteSinkFactory
)

// SetRemoteSinkFactory installs the transport factory for syslog and
// network resources.
func SetRemoteSinkFactory(f RemoteSinkFactory) {
	remoteFactoryMu.Lock()
	remoteFactory = f
	remoteFactoryMu.Unlock()
}

func remoteSinkFor(rd *config.ResourceDesc) (RemoteSink, error) {
	remoteFactoryMu.Lock()
	f := remoteFactory
	remoteFactoryMu.Unlock()
	if f == nil {
		return nil, os.ErrNotExist
	}
	return f(rd.Kind, rd.RemoteURL, rd.LocalURL, rd.Facility)
}

// Resource owns exactly one physical sink together with its buffer policy,
// optional record buffer and rollover metadata. Many interfaces share a
// resource; every write or flush runs under its critical section.
type Resource struct {
	mu sync.Mutex

	kind   config.ResourceKind
	levels uint32
	orig   *record.Originator

	outFormat *format.OutputFormat
	bufPolicy *config.BufferPolicy
	buf       *buffer.RecordBuffer

	// file kinds
	dir      string
	fallback string
	nameSpec *format.Spec
	curPath  string
	file     *os.File
	written  int64
	fileSize int64

	rovrPolicy  *config.RolloverPolicy
	findPattern *regexp.Regexp
	nextRovr    time.Time

	console io.Writer
	remote  RemoteSink

	remoteURL *url.URL
	localURL  *url.URL
	facility  int

	template bool
	closed   bool
}

// newResource builds a resource from its descriptor. File resources whose
// name specification still contains thread variables become templates: no
// physical file exists until a thread specializes them.
func newResource(cfg *config.Configuration, rd *config.ResourceDesc,
	orig *record.Originator, now time.Time) (*Resource, *diag.Diagnostic) {
	r := &Resource{
		kind:      rd.Kind,
		levels:    rd.Levels,
		orig:      orig,
		outFormat: cfg.OutputFormatFor(rd.OutputFormat).OptimizeForOriginator(orig),
		dir:       cfg.System.OutputPath,
		fallback:  cfg.System.FallbackPath,
		fileSize:  rd.FileSize,
		remoteURL: rd.RemoteURL,
		localURL:  rd.LocalURL,
		facility:  rd.Facility,
	}
	if rd.UsesBuffer() && rd.Kind != config.MemoryMappedFile {
		r.bufPolicy = cfg.BufferPolicyFor(rd.BufferPolicy)
	}
	if rd.Kind.IsFileBased() {
		r.nameSpec = format.ParseSpec(rd.FileNameSpec).OptimizeForOriginator(orig)
		pol := cfg.RolloverPolicyFor(rd.RolloverPolicy)
		if pol.Condition.Kind != config.RolloverNever {
			r.rovrPolicy = pol
		}
		if r.nameSpec.IsThreadSpecific() {
			r.template = true
			return r, nil
		}
		if r.rovrPolicy != nil {
			r.findPattern = regexp.MustCompile(
				r.nameSpec.FindPattern(r.rovrPolicy.Compression.Ext()))
		}
	}
	if derr := r.open(now); derr != nil {
		return nil, derr
	}
	return r, nil
}

// specialize clones a template resource for one thread and opens its
// physical sink.
func (r *Resource) specialize(threadID uint64, threadName string,
	now time.Time) (*Resource, *diag.Diagnostic) {
	s := &Resource{
		kind:       r.kind,
		levels:     r.levels,
		orig:       r.orig,
		outFormat:  r.outFormat.Clone(),
		bufPolicy:  r.bufPolicy,
		dir:        r.dir,
		fallback:   r.fallback,
		nameSpec:   r.nameSpec.OptimizeForThread(threadID, threadName),
		fileSize:   r.fileSize,
		rovrPolicy: r.rovrPolicy,
	}
	if s.rovrPolicy != nil {
		s.findPattern = regexp.MustCompile(
			s.nameSpec.FindPattern(s.rovrPolicy.Compression.Ext()))
	}
	if derr := s.open(now); derr != nil {
		return nil, derr
	}
	return s, nil
}

// open creates the physical sink.
func (r *Resource) open(now time.Time) *diag.Diagnostic {
	switch r.kind {
	case config.StdOut:
		r.console = os.Stdout
	case config.StdErr:
		r.console = os.Stderr
	case config.PlainFile:
		if derr := r.openFile(now, r.dir); derr != nil {
			if r.fallback == "" {
				return derr
			}
			if derr2 := r.openFile(now, r.fallback); derr2 != nil {
				return derr
			}
		}
	case config.MemoryMappedFile:
		if derr := r.openMapped(now, r.dir); derr != nil {
			if r.fallback == "" {
				return derr
			}
			if derr2 := r.openMapped(now, r.fallback); derr2 != nil {
				return derr
			}
		}
	case config.Syslog, config.Network:
		sink, err := remoteSinkFor(&config.ResourceDesc{
			Kind:      r.kind,
			RemoteURL: r.remoteURL,
			LocalURL:  r.localURL,
			Facility:  r.facility,
		})
		if err != nil {
			return diag.NewError("E-Res-CreateFailed", r.kind.String(), err.Error())
		}
		r.remote = sink
	}
	if r.bufPolicy != nil && r.buf == nil && r.kind != config.MemoryMappedFile {
		r.buf = buffer.NewMemory(int(r.bufPolicy.ContentSize),
			r.bufPolicy.IndexSize, r.bufPolicy.MaxRecordLength)
	}
	r.scheduleRollover(now)
	return nil
}

func (r *Resource) openFile(now time.Time, dir string) *diag.Diagnostic {
	path := filepath.Join(dir, r.nameSpec.FileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return diag.NewError("E-Res-CreateFailed", path, err.Error())
	}
	fi, err := f.Stat()
	if err == nil {
		r.written = fi.Size()
	}
	r.file = f
	r.curPath = path
	return nil
}

func (r *Resource) openMapped(now time.Time, dir string) *diag.Diagnostic {
	path := filepath.Join(dir, r.nameSpec.FileName(now))
	idx := config.DefaultBufferIndexSize
	maxLen := config.DefaultMaxRecordLength
	b, err := buffer.NewMapped(path, int(r.fileSize), idx, maxLen, false)
	if err != nil {
		return diag.NewError("E-Res-MmapFailed", path, err.Error())
	}
	r.buf = b
	r.curPath = path
	return nil
}

func (r *Resource) scheduleRollover(now time.Time) {
	if r.rovrPolicy != nil && r.rovrPolicy.Condition.Kind == config.RolloverTimeElapsed {
		r.nextRovr = r.rovrPolicy.Condition.Interval.NextElapse(now)
	}
}

// IsTemplate reports whether the resource still awaits thread
// specialization.
func (r *Resource) IsTemplate() bool { return r.template }

// Levels returns the immutable level mask.
func (r *Resource) Levels() uint32 { return r.levels }

// CurrentPath returns the active file path of a file based resource.
func (r *Resource) CurrentPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.curPath
}

// Write emits one record through the resource: level filtering, formatting,
// buffering per the flush conditions and the final sink write.
func (r *Resource) Write(rec *record.Data, of *format.OutputFormat, useBuffer bool) *diag.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.template {
		return nil
	}
	if !rec.Level.In(r.levels) {
		return nil
	}
	if of == nil {
		of = r.outFormat
	}

	var formatted []byte
	if r.remote != nil && r.remote.WantsSerializedRecords() {
		formatted = rec.AppendSerialized(nil)
	} else {
		formatted = of.Append(nil, rec, r.orig)
	}

	if r.kind == config.MemoryMappedFile {
		r.buf.Write(formatted)
		return r.rolloverOnSize(rec.Time, int64(len(formatted)))
	}

	if !useBuffer || r.bufPolicy == nil || r.buf == nil {
		if derr := r.sinkWrite(formatted); derr != nil {
			return derr
		}
		return r.rolloverOnSize(rec.Time, 0)
	}

	switch {
	case r.flushTriggeredBy(rec.Level):
		if derr := r.flushLocked(); derr != nil {
			return derr
		}
		if derr := r.sinkWrite(formatted); derr != nil {
			return derr
		}
	case r.bufPolicy.FlushConditions&config.FlushOnFull != 0 &&
		!r.buf.CanLosslessHold(len(formatted)):
		if derr := r.flushLocked(); derr != nil {
			return derr
		}
		r.buf.Write(formatted)
	default:
		r.buf.Write(formatted)
	}
	return r.rolloverOnSize(rec.Time, 0)
}

func (r *Resource) flushTriggeredBy(lvl record.Level) bool {
	fc := r.bufPolicy.FlushConditions
	switch lvl {
	case record.Emergency, record.Alert, record.Critical, record.Error:
		return fc&config.FlushOnError != 0
	case record.Warning:
		return fc&config.FlushOnWarning != 0
	}
	return false
}

func (r *Resource) sinkWrite(b []byte) *diag.Diagnostic {
	var err error
	switch {
	case r.file != nil:
		var n int
		n, err = r.file.Write(b)
		r.written += int64(n)
	case r.console != nil:
		_, err = r.console.Write(b)
	case r.remote != nil:
		_, err = r.remote.Write(b)
	}
	if err != nil {
		return diag.NewError("E-Res-WriteFailed", r.sinkName(), err.Error())
	}
	return nil
}

func (r *Resource) sinkName() string {
	if r.curPath != "" {
		return r.curPath
	}
	return r.kind.String()
}

// Flush writes every buffered record to the sink and clears the buffer.
func (r *Resource) Flush() *diag.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return r.flushLocked()
}

// flushLocked migrates the buffer contents to the sink. Per-record write
// failures do not stop the flush; they are collected into a batch.
func (r *Resource) flushLocked() *diag.Diagnostic {
	if r.buf == nil || r.buf.IsEmpty() || r.kind == config.MemoryMappedFile {
		return nil
	}
	var errs *multierror.Error
	for _, rec := range r.buf.Records() {
		if derr := r.sinkWrite(rec.First); derr != nil {
			errs = multierror.Append(errs, derr)
		}
		if len(rec.Second) > 0 {
			if derr := r.sinkWrite(rec.Second); derr != nil {
				errs = multierror.Append(errs, derr)
			}
		}
	}
	r.buf.Clear()
	if errs != nil {
		return diag.NewError("E-Res-WriteFailed", r.sinkName(), errs.Error())
	}
	return nil
}

// Close flushes the buffer when its policy lists the exit condition and
// releases the sink. Writes after close are no-ops.
func (r *Resource) Close() *diag.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.template {
		r.closed = true
		return nil
	}
	var derr *diag.Diagnostic
	if r.bufPolicy != nil && r.bufPolicy.FlushConditions&config.FlushOnExit != 0 {
		derr = r.flushLocked()
	}
	if r.buf != nil {
		r.buf.Close()
	}
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
	if r.remote != nil {
		r.remote.Close()
		r.remote = nil
	}
	r.closed = true
	return derr
}
