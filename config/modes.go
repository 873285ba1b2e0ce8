package config

import (
	"regexp"
	"strings"

	"github.com/coaly-project/coaly/record"
)

// ModeScope limits a mode change to the triggering thread or applies it
// process wide.
type ModeScope int

const (
	ScopeThread ModeScope = iota
	ScopeProcess
)

// ScopeFromName resolves a scope name from the configuration file.
func ScopeFromName(s string) (ModeScope, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "thread":
		return ScopeThread, true
	case "process":
		return ScopeProcess, true
	}
	return 0, false
}

// ModeChangeDesc describes a runtime mode change: when an observer matching
// the patterns fires the trigger, the enabled and buffered level masks are
// changed for the scope's duration.
type ModeChangeDesc struct {
	Trigger      record.Trigger
	NamePattern  *regexp.Regexp
	ValuePattern *regexp.Regexp
	Scope        ModeScope

	// record.NoChange in either mask leaves that mask untouched
	EnabledLevels  uint32
	BufferedLevels uint32

	LineNr int
}

// IsEffective reports whether the descriptor changes anything at all.
func (md *ModeChangeDesc) IsEffective() bool {
	return !record.IsNoChange(md.EnabledLevels) || !record.IsNoChange(md.BufferedLevels)
}

// Matches reports whether an observer name and value satisfy the patterns.
// A nil pattern matches anything.
func (md *ModeChangeDesc) Matches(name, value string) bool {
	if md.NamePattern != nil && !md.NamePattern.MatchString(name) {
		return false
	}
	if md.ValuePattern != nil && !md.ValuePattern.MatchString(value) {
		return false
	}
	return true
}
