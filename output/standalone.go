package output

import (
	"time"

	"github.com/coaly-project/coaly/config"
	"github.com/coaly-project/coaly/diag"
)

// Standalone is the inventory variant for a single local process.
type Standalone struct {
	registry
}

// NewStandalone builds the inventory from a configuration. Diagnostics
// from resource creation are returned alongside; the inventory is usable
// regardless.
func NewStandalone(cfg *config.Configuration) (*Standalone, diag.Messages) {
	inv := &Standalone{registry{cfg: cfg, specific: map[string]*Resource{}}}
	inv.mu.Lock()
	inv.local = inv.buildEntries(cfg.Originator, time.Now())
	msgs := inv.msgs
	inv.msgs = nil
	inv.mu.Unlock()
	return inv, msgs
}

// InterfaceFor returns the handle for a local thread, lazily instantiating
// thread specific resources.
func (inv *Standalone) InterfaceFor(threadID uint64, threadName string) *Interface {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.closed {
		return &Interface{}
	}
	return inv.interfaceFor(inv.local, threadID, threadName, time.Now())
}

// RolloverIfDue walks all resources and performs due time based rollovers.
func (inv *Standalone) RolloverIfDue(now time.Time) { inv.rolloverIfDue(now) }

// Close flushes and closes every resource.
func (inv *Standalone) Close() diag.Messages { return inv.close() }

// Messages drains accumulated inventory diagnostics.
func (inv *Standalone) Messages() diag.Messages { return inv.messages() }
