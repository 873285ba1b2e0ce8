// Package coaly is a context aware logging and tracing library. Output
// behavior is driven by a TOML configuration: per resource level masks,
// buffering with flush policies, file rollover with compression, and file
// name or format specialization per originator and thread.
//
// The package level functions operate on one process wide inventory,
// mirroring the way applications use the library: initialize once, obtain
// per-thread interfaces, write records, shut down.
package coaly

import (
	"sync"
	"time"

	"github.com/coaly-project/coaly/config"
	"github.com/coaly-project/coaly/diag"
	"github.com/coaly-project/coaly/output"
	"github.com/coaly-project/coaly/record"
)

var (
	mu        sync.Mutex
	inventory output.Inventory
	active    *config.Configuration
)

// Initialize builds the process wide inventory from a configuration file.
// The returned messages contain every diagnostic encountered; a broken
// configuration degrades to the defaults rather than failing.
func Initialize(configPath string) diag.Messages {
	return InitializeWithConfig(config.Load(configPath))
}

// InitializeWithConfig builds the inventory from an already read
// configuration. A second initialization without shutdown is a no-op.
func InitializeWithConfig(cfg *config.Configuration) diag.Messages {
	mu.Lock()
	defer mu.Unlock()
	if inventory != nil {
		return nil
	}
	var inv *output.Standalone
	var msgs diag.Messages
	inv, msgs = output.NewStandalone(cfg)
	inventory = inv
	active = cfg
	return append(cfg.Messages, msgs...)
}

// InitializeServer builds the server variant accepting remote originators.
func InitializeServer(cfg *config.Configuration) (*output.Server, diag.Messages) {
	mu.Lock()
	defer mu.Unlock()
	if inventory != nil {
		return nil, nil
	}
	inv, msgs := output.NewServer(cfg)
	inventory = inv
	active = cfg
	return inv, append(cfg.Messages, msgs...)
}

// Configuration returns the active configuration, nil before
// initialization.
func Configuration() *config.Configuration {
	mu.Lock()
	defer mu.Unlock()
	return active
}

// InterfaceFor returns the output handle for a thread. Before
// initialization or after shutdown every write through the returned handle
// is a no-op.
func InterfaceFor(threadID uint64, threadName string) *output.Interface {
	mu.Lock()
	inv := inventory
	mu.Unlock()
	if inv == nil {
		return &output.Interface{}
	}
	return inv.InterfaceFor(threadID, threadName)
}

// Write emits one record through a freshly resolved interface. Hot paths
// should hold their own Interface instead.
func Write(rec *record.Data, useBuffer bool) {
	InterfaceFor(rec.ThreadID, rec.ThreadName).Write(rec, useBuffer)
}

// RolloverIfDue drives time based rollover; call it from a timer thread or
// the application's event loop.
func RolloverIfDue(now time.Time) {
	mu.Lock()
	inv := inventory
	mu.Unlock()
	if inv != nil {
		inv.RolloverIfDue(now)
	}
}

// Shutdown flushes all buffers configured with the exit flush condition
// and closes every sink. Writes afterwards become no-ops.
func Shutdown() diag.Messages {
	mu.Lock()
	inv := inventory
	inventory = nil
	active = nil
	mu.Unlock()
	if inv == nil {
		return nil
	}
	return inv.Close()
}
