package output

import (
	"sync"
	"time"

	"github.com/coaly-project/coaly/config"
	"github.com/coaly-project/coaly/diag"
	"github.com/coaly-project/coaly/format"
	"github.com/coaly-project/coaly/record"
)

// Interface is the lightweight per-thread handle bundling the thread
// optimized output formats with their resources. Interfaces are thread
// owned; writing through one takes no lock of its own, only the critical
// sections of the shared resources it references.
type Interface struct {
	pairs []ifacePair
	msgs  diag.Messages
}

type ifacePair struct {
	format *format.OutputFormat
	res    *Resource
}

// Write multiplexes the record to every bundled resource. Errors are
// accumulated on the interface for the caller to drain.
func (i *Interface) Write(rec *record.Data, useBuffer bool) {
	for _, p := range i.pairs {
		if derr := p.res.Write(rec, p.format, useBuffer); derr != nil {
			i.msgs = append(i.msgs, derr)
		}
	}
}

// TakeMessages returns and clears the accumulated write errors.
func (i *Interface) TakeMessages() diag.Messages {
	m := i.msgs
	i.msgs = nil
	return m
}

// Inventory is the registrar of all output resources. The standalone
// variant serves one local process; the server variant additionally serves
// remote originators.
type Inventory interface {
	// InterfaceFor returns the thread's handle, lazily specializing thread
	// specific resources.
	InterfaceFor(threadID uint64, threadName string) *Interface
	// RolloverIfDue drives time based rollover over all resources.
	RolloverIfDue(now time.Time)
	// Close flushes buffers carrying the exit condition and closes every
	// sink. Writes afterwards are no-ops.
	Close() diag.Messages
	// Messages drains diagnostics accumulated by inventory operations.
	Messages() diag.Messages
}

// templateEntry pairs an originator optimized output format with its
// resource, which may still be a thread template.
type templateEntry struct {
	format *format.OutputFormat
	res    *Resource
}

// registry holds the bookkeeping shared by both inventory variants. All
// mutation runs under one mutex; mutations are rare relative to writes.
type registry struct {
	mu     sync.Mutex
	cfg    *config.Configuration
	all    []*Resource
	local  []templateEntry
	// fully optimized file name spec to concrete resource, deduplicating
	// across threads mapping to the same file
	specific map[string]*Resource
	msgs     diag.Messages
	closed   bool
}

// buildEntries creates the resources of one originator from the configured
// descriptors. Creation failures are recorded and the descriptor skipped.
func (g *registry) buildEntries(orig *record.Originator, now time.Time) []templateEntry {
	var entries []templateEntry
	for _, rd := range g.cfg.Resources {
		r, derr := newResource(g.cfg, rd, orig, now)
		if derr != nil {
			g.msgs = append(g.msgs, derr)
			continue
		}
		entries = append(entries, templateEntry{format: r.outFormat, res: r})
		if !r.IsTemplate() {
			g.all = append(g.all, r)
			if r.kind.IsFileBased() {
				g.specific[r.nameSpec.String()] = r
			}
		}
	}
	return entries
}

// interfaceFor assembles the thread handle from a template list. Caller
// holds the registry lock.
func (g *registry) interfaceFor(entries []templateEntry, threadID uint64,
	threadName string, now time.Time) *Interface {
	iface := &Interface{}
	for _, e := range entries {
		of := e.format.OptimizeForThread(threadID, threadName)
		res := e.res
		if res.IsTemplate() {
			key := res.nameSpec.OptimizeForThread(threadID, threadName).String()
			if existing, ok := g.specific[key]; ok {
				res = existing
			} else {
				spec, derr := res.specialize(threadID, threadName, now)
				if derr != nil {
					g.msgs = append(g.msgs, derr)
					continue
				}
				g.specific[key] = spec
				g.all = append(g.all, spec)
				res = spec
			}
		}
		iface.pairs = append(iface.pairs, ifacePair{format: of, res: res})
	}
	return iface
}

func (g *registry) rolloverIfDue(now time.Time) {
	g.mu.Lock()
	resources := make([]*Resource, len(g.all))
	copy(resources, g.all)
	g.mu.Unlock()
	for _, r := range resources {
		if derr := r.RolloverIfDue(now); derr != nil {
			g.mu.Lock()
			g.msgs = append(g.msgs, derr)
			g.mu.Unlock()
		}
	}
}

func (g *registry) close() diag.Messages {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	resources := make([]*Resource, len(g.all))
	copy(resources, g.all)
	g.mu.Unlock()

	var msgs diag.Messages
	for _, r := range resources {
		if derr := r.Close(); derr != nil {
			msgs = append(msgs, derr)
		}
	}
	return msgs
}

func (g *registry) messages() diag.Messages {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := g.msgs
	g.msgs = nil
	return m
}
