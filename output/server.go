package output

import (
	"strconv"
	"time"

	"github.com/coaly-project/coaly/config"
	"github.com/coaly-project/coaly/diag"
	"github.com/coaly-project/coaly/record"
)

// Server is the inventory variant of a trace server accepting records from
// remote originators. Every admitted originator gets its own resource
// templates; resources already materialized in the specific map survive a
// disconnect, since late records may still arrive for them.
type Server struct {
	registry
	props       *config.ServerProperties
	originators map[string][]templateEntry
}

// NewServer builds the server inventory. The local process gets templates
// like in standalone operation, so the server can trace itself.
func NewServer(cfg *config.Configuration) (*Server, diag.Messages) {
	props := cfg.Server
	if props == nil {
		props = config.DefaultServerProperties()
	}
	inv := &Server{
		registry:    registry{cfg: cfg, specific: map[string]*Resource{}},
		props:       props,
		originators: map[string][]templateEntry{},
	}
	inv.mu.Lock()
	inv.local = inv.buildEntries(cfg.Originator, time.Now())
	msgs := inv.msgs
	inv.msgs = nil
	inv.mu.Unlock()
	return inv, msgs
}

// Properties returns the effective server properties.
func (inv *Server) Properties() *config.ServerProperties { return inv.props }

func originatorKey(o *record.Originator) string {
	return o.HostName + "/" + strconv.FormatUint(uint64(o.ProcessID), 10) +
		"/" + strconv.FormatUint(uint64(o.AppID), 10)
}

// AddOriginator registers a remote client and builds its resource
// templates. Returns false when the application id is not admitted.
func (inv *Server) AddOriginator(o *record.Originator) bool {
	if !inv.props.AdmitsApp(o.AppID) {
		return false
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.closed {
		return false
	}
	key := originatorKey(o)
	if _, exists := inv.originators[key]; !exists {
		inv.originators[key] = inv.buildEntries(o, time.Now())
	}
	return true
}

// RemoveOriginator drops a disconnected client's templates. Materialized
// resources remain registered until process exit.
func (inv *Server) RemoveOriginator(o *record.Originator) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	delete(inv.originators, originatorKey(o))
}

// InterfaceForOriginator returns the handle routing one remote thread's
// records. An unknown originator yields an empty handle.
func (inv *Server) InterfaceForOriginator(o *record.Originator, threadID uint64,
	threadName string) *Interface {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.closed {
		return &Interface{}
	}
	entries, ok := inv.originators[originatorKey(o)]
	if !ok {
		return &Interface{}
	}
	return inv.interfaceFor(entries, threadID, threadName, time.Now())
}

// InterfaceFor returns the handle for a local thread.
func (inv *Server) InterfaceFor(threadID uint64, threadName string) *Interface {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.closed {
		return &Interface{}
	}
	return inv.interfaceFor(inv.local, threadID, threadName, time.Now())
}

// RolloverIfDue walks all resources regardless of client lifecycle.
func (inv *Server) RolloverIfDue(now time.Time) { inv.rolloverIfDue(now) }

// Close flushes and closes every resource.
func (inv *Server) Close() diag.Messages { return inv.close() }

// Messages drains accumulated inventory diagnostics.
func (inv *Server) Messages() diag.Messages { return inv.messages() }
