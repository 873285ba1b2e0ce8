package config

import (
	"os"
	"unicode/utf8"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/coaly-project/coaly/diag"
	"github.com/coaly-project/coaly/format"
	"github.com/coaly-project/coaly/record"
	"github.com/coaly-project/coaly/toml"
)

// SystemProperties hold the application wide settings of the [system]
// table.
type SystemProperties struct {
	AppID           uint32
	AppName         string
	Version         string
	OutputPath      string
	FallbackPath    string
	EnvFile         string
	ChangeStackSize int
}

// DefaultChangeStackSize bounds the per-thread observer stack.
const DefaultChangeStackSize = 32

// Configuration is the immutable result of reading a configuration file.
// All policy and format references in the resource descriptors resolve to
// either a user defined entry or the default; no dangling references
// survive construction.
type Configuration struct {
	System SystemProperties
	Server *ServerProperties

	BufferPolicies   map[string]*BufferPolicy
	RolloverPolicies map[string]*RolloverPolicy
	OutputFormats    map[string]*format.OutputFormat
	DateTimeFormats  map[string]format.DateTimeFormats

	Resources []*ResourceDesc
	Modes     []*ModeChangeDesc

	// Originator captures the local process, including the environment
	// snapshot used for variable expansion.
	Originator *record.Originator

	// Messages holds every diagnostic accumulated while reading.
	Messages diag.Messages
}

// Default returns the built-in configuration: one plain file resource named
// after the process, default policies and formats, output to the working
// directory.
func Default() *Configuration {
	c := &Configuration{
		System:           SystemProperties{ChangeStackSize: DefaultChangeStackSize},
		BufferPolicies:   map[string]*BufferPolicy{},
		RolloverPolicies: map[string]*RolloverPolicy{},
		OutputFormats:    map[string]*format.OutputFormat{},
		DateTimeFormats:  map[string]format.DateTimeFormats{},
		Resources:        []*ResourceDesc{DefaultResourceDesc()},
	}
	c.Originator = record.LocalOriginator(c.System.AppID, c.System.AppName)
	c.System.OutputPath = workingDirOrTemp(&c.Messages)
	return c
}

// Load reads, parses and converts a configuration file. The returned
// configuration is always usable: fatal errors fall back to the default
// configuration with the error recorded in Messages.
func Load(path string) *Configuration {
	data, err := os.ReadFile(path)
	if err != nil {
		c := Default()
		c.Messages = append(c.Messages, diag.NewError("E-Cfg-FileNotFound", path))
		return c
	}
	if !utf8.Valid(data) {
		c := Default()
		c.Messages = append(c.Messages, diag.NewError("E-Cfg-NotUtf8", path))
		return c
	}
	return FromString(string(data))
}

// FromString converts configuration file contents.
func FromString(contents string) *Configuration {
	doc, derr := toml.Parse(contents)
	if derr != nil {
		jww.DEBUG.Printf("configuration parse failed: %v", derr)
		c := Default()
		c.Messages = append(c.Messages, derr)
		return c
	}
	return fromDocument(doc)
}

// BufferPolicyFor resolves a buffer policy reference; the empty name and
// unknown names yield the default policy.
func (c *Configuration) BufferPolicyFor(name string) *BufferPolicy {
	if p, ok := c.BufferPolicies[name]; ok {
		return p
	}
	return DefaultBufferPolicy()
}

// RolloverPolicyFor resolves a rollover policy reference.
func (c *Configuration) RolloverPolicyFor(name string) *RolloverPolicy {
	if p, ok := c.RolloverPolicies[name]; ok {
		return p
	}
	return DefaultRolloverPolicy()
}

// OutputFormatFor resolves an output format reference.
func (c *Configuration) OutputFormatFor(name string) *format.OutputFormat {
	if f, ok := c.OutputFormats[name]; ok {
		return f
	}
	return format.DefaultOutputFormat()
}
