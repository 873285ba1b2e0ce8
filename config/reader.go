package config

import (
	"net/url"
	"regexp"
	"strconv"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/coaly-project/coaly/diag"
	"github.com/coaly-project/coaly/format"
	"github.com/coaly-project/coaly/record"
	"github.com/coaly-project/coaly/toml"
)

// configuration file group and parameter keys
const (
	grpSystem    = "system"
	grpServer    = "server"
	grpPolicies  = "policies"
	grpBuffer    = "buffer"
	grpRollover  = "rollover"
	grpFormats   = "formats"
	grpOutput    = "output"
	grpDateTime  = "datetime"
	grpResources = "resources"
	grpModes     = "modes"

	parAppID          = "app_id"
	parAppName        = "app_name"
	parVersion        = "version"
	parOutputPath     = "output_path"
	parFallbackPath   = "fallback_path"
	parEnvFile        = "env_file"
	parChgStackSize   = "change_stack_size"
	parName           = "name"
	parContentSize    = "content_size"
	parIndexSize      = "index_size"
	parFlush          = "flush"
	parMaxRecLen      = "max_record_length"
	parCondition      = "condition"
	parKeep           = "keep"
	parCompression    = "compression"
	parDate           = "date"
	parTime           = "time"
	parTimestamp      = "timestamp"
	parItems          = "items"
	parDatetimeFormat = "datetime_format"
	parLevels         = "levels"
	parTriggers       = "triggers"
	parFormat         = "format"
	parKind           = "kind"
	parSize           = "size"
	parBuffer         = "buffer"
	parRollover       = "rollover"
	parOutputFormat   = "output_format"
	parRemoteURL      = "remote_url"
	parLocalURL       = "local_url"
	parFacility       = "facility"
	parTrigger        = "trigger"
	parValue          = "value"
	parScope          = "scope"
	parEnabled        = "enabled"
	parBuffered       = "buffered"
)

func fromDocument(doc *toml.Document) *Configuration {
	c := &Configuration{
		System:           SystemProperties{ChangeStackSize: DefaultChangeStackSize},
		BufferPolicies:   map[string]*BufferPolicy{},
		RolloverPolicies: map[string]*RolloverPolicy{},
		OutputFormats:    map[string]*format.OutputFormat{},
		DateTimeFormats:  map[string]format.DateTimeFormats{},
	}
	root := doc.Root()
	for _, key := range root.Keys() {
		item, _ := root.Child(key)
		switch key {
		case grpSystem:
			c.readSystem(item)
		case grpServer:
			c.Server = readServer(item, &c.Messages)
		case grpPolicies:
			c.readPolicies(item)
		case grpFormats:
			c.readFormats(item)
		case grpResources:
			c.readResources(item)
		case grpModes:
			c.readModes(item)
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(item), key)
		}
	}
	if len(c.Resources) == 0 {
		c.Resources = append(c.Resources, DefaultResourceDesc())
	}
	c.resolveReferences()
	c.Originator = record.LocalOriginator(c.System.AppID, c.System.AppName)
	if c.System.EnvFile != "" {
		if err := c.Originator.LoadEnvFile(c.System.EnvFile); err != nil {
			c.warn("W-Cfg-EnvFileNotLoaded", c.System.EnvFile, err.Error())
		}
	}
	c.resolvePaths()
	return c
}

func (c *Configuration) warn(id string, args ...string) {
	c.Messages = append(c.Messages, diag.NewWarning(id, args...))
}

func lineStr(item *toml.Item) string { return strconv.Itoa(item.LineNr()) }

// strPar type-checks a string parameter; a mismatch is reported and
// reported parameters are skipped by the caller.
func (c *Configuration) strPar(item *toml.Item, key string) (string, bool) {
	if s, ok := item.AsString(); ok {
		return s, true
	}
	c.warn("W-Cfg-TypeMismatch", lineStr(item), key, "string")
	return "", false
}

// intPar type- and range-checks an integer parameter. Out of range values
// are reported; the caller substitutes the default.
func (c *Configuration) intPar(item *toml.Item, key string, min, max int64) (int64, bool) {
	v, ok := item.AsInt()
	if !ok {
		c.warn("W-Cfg-TypeMismatch", lineStr(item), key, "integer")
		return 0, false
	}
	if v < min || v > max {
		c.warn("W-Cfg-ValueOutOfRange", lineStr(item),
			strconv.FormatInt(v, 10), key,
			strconv.FormatInt(min, 10), strconv.FormatInt(max, 10))
		return 0, false
	}
	return v, true
}

// sizePar accepts an integer byte count or a size string with k/m/g suffix.
func (c *Configuration) sizePar(item *toml.Item, key string, min, max int64) (int64, bool) {
	if s, ok := item.AsString(); ok {
		v, valid := parseSizeStr(s)
		if !valid {
			c.warn("W-Cfg-TypeMismatch", lineStr(item), key, "size")
			return 0, false
		}
		if v < min || v > max {
			c.warn("W-Cfg-ValueOutOfRange", lineStr(item), s, key,
				strconv.FormatInt(min, 10), strconv.FormatInt(max, 10))
			return 0, false
		}
		return v, true
	}
	return c.intPar(item, key, min, max)
}

//
// [system]
//

func (c *Configuration) readSystem(item *toml.Item) {
	if !item.IsTable() {
		c.warn("W-Cfg-TypeMismatch", lineStr(item), grpSystem, "table")
		return
	}
	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case parAppID:
			if v, ok := c.intPar(val, parAppID, 0, 1<<32-1); ok {
				c.System.AppID = uint32(v)
			}
		case parAppName:
			if s, ok := c.strPar(val, parAppName); ok {
				c.System.AppName = s
			}
		case parVersion:
			if s, ok := c.strPar(val, parVersion); ok {
				c.System.Version = s
			}
		case parOutputPath:
			if s, ok := c.strPar(val, parOutputPath); ok {
				c.System.OutputPath = s
			}
		case parFallbackPath:
			if s, ok := c.strPar(val, parFallbackPath); ok {
				c.System.FallbackPath = s
			}
		case parEnvFile:
			if s, ok := c.strPar(val, parEnvFile); ok {
				c.System.EnvFile = s
			}
		case parChgStackSize:
			if v, ok := c.intPar(val, parChgStackSize, 1, 1024); ok {
				c.System.ChangeStackSize = int(v)
			}
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), grpSystem+"."+key)
		}
	}
	jww.TRACE.Printf("system properties read: app %d %q", c.System.AppID, c.System.AppName)
}

//
// [[policies.buffer]] and [[policies.rollover]]
//

func (c *Configuration) readPolicies(item *toml.Item) {
	if !item.IsTable() {
		c.warn("W-Cfg-TypeMismatch", lineStr(item), grpPolicies, "table")
		return
	}
	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case grpBuffer:
			for _, elem := range tableElems(val) {
				c.readBufferPolicy(elem)
			}
		case grpRollover:
			for _, elem := range tableElems(val) {
				c.readRolloverPolicy(elem)
			}
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), grpPolicies+"."+key)
		}
	}
}

// tableElems yields the elements of an array-of-tables, accepting a single
// table as a one-element list.
func tableElems(item *toml.Item) []*toml.Item {
	if item.IsTableArray() {
		return item.Items()
	}
	if item.IsTable() {
		return []*toml.Item{item}
	}
	return nil
}

func (c *Configuration) readBufferPolicy(item *toml.Item) {
	p := DefaultBufferPolicy()
	maxRecLenSet := false
	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case parName:
			if s, ok := c.strPar(val, parName); ok {
				p.Name = s
			}
		case parContentSize:
			if v, ok := c.sizePar(val, parContentSize,
				MinBufferContentSize, MaxBufferContentSize); ok {
				p.ContentSize = v
			}
		case parIndexSize:
			if v, ok := c.intPar(val, parIndexSize,
				MinBufferIndexSize, MaxBufferIndexSize); ok {
				p.IndexSize = int(v)
			}
		case parFlush:
			if mask, ok := c.readFlushConditions(val); ok {
				p.FlushConditions = mask
			}
		case parMaxRecLen:
			if v, ok := c.sizePar(val, parMaxRecLen, 1, MaxBufferContentSize); ok {
				p.MaxRecordLength = int(v)
				maxRecLenSet = true
			}
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), grpBuffer+"."+key)
		}
	}
	if int64(p.MaxRecordLength) > p.ContentSize {
		if maxRecLenSet {
			c.warn("W-Cfg-ValueOutOfRange", lineStr(item),
				strconv.Itoa(p.MaxRecordLength), parMaxRecLen,
				"1", strconv.FormatInt(p.ContentSize, 10))
		}
		p.MaxRecordLength = int(p.ContentSize)
	}
	if p.Name == "" {
		c.warn("W-Cfg-UnnamedPolicy", lineStr(item), grpBuffer)
		return
	}
	c.BufferPolicies[p.Name] = p
	jww.TRACE.Printf("buffer policy %q read", p.Name)
}

func (c *Configuration) readFlushConditions(item *toml.Item) (uint32, bool) {
	var mask uint32
	add := func(val *toml.Item) {
		s, ok := c.strPar(val, parFlush)
		if !ok {
			return
		}
		cond, valid := FlushConditionFromName(s)
		if !valid {
			c.warn("W-Cfg-InvalidFlushCond", lineStr(val), s)
			return
		}
		mask |= cond
	}
	if item.IsArray() {
		for _, e := range item.Items() {
			add(e)
		}
	} else {
		add(item)
	}
	return mask, mask != 0
}

func (c *Configuration) readRolloverPolicy(item *toml.Item) {
	p := DefaultRolloverPolicy()
	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case parName:
			if s, ok := c.strPar(val, parName); ok {
				p.Name = s
			}
		case parCondition:
			if s, ok := c.strPar(val, parCondition); ok {
				cond, valid := ParseRolloverCondition(s)
				if !valid {
					c.warn("W-Cfg-InvalidRolloverCond", lineStr(val), s)
					continue
				}
				p.Condition = cond
			}
		case parKeep:
			if v, ok := c.intPar(val, parKeep, MinKeepCount, MaxKeepCount); ok {
				p.KeepCount = int(v)
			}
		case parCompression:
			if s, ok := c.strPar(val, parCompression); ok {
				algo, valid := CompressionFromName(s)
				if !valid {
					c.warn("W-Cfg-InvalidCompression", lineStr(val), s)
					continue
				}
				p.Compression = algo
			}
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), grpRollover+"."+key)
		}
	}
	if p.Name == "" {
		c.warn("W-Cfg-UnnamedPolicy", lineStr(item), grpRollover)
		return
	}
	c.RolloverPolicies[p.Name] = p
	jww.TRACE.Printf("rollover policy %q read", p.Name)
}

//
// [[formats.datetime]] and [[formats.output]]
//

func (c *Configuration) readFormats(item *toml.Item) {
	if !item.IsTable() {
		c.warn("W-Cfg-TypeMismatch", lineStr(item), grpFormats, "table")
		return
	}
	// date-time format sets first, output formats reference them by name
	if dt, ok := item.Child(grpDateTime); ok {
		for _, elem := range tableElems(dt) {
			c.readDateTimeFormat(elem)
		}
	}
	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case grpDateTime:
		case grpOutput:
			for _, elem := range tableElems(val) {
				c.readOutputFormat(elem)
			}
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), grpFormats+"."+key)
		}
	}
}

func (c *Configuration) readDateTimeFormat(item *toml.Item) {
	df := format.DefaultDateTimeFormats()
	name := ""
	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case parName:
			if s, ok := c.strPar(val, parName); ok {
				name = s
			}
		case parDate:
			if s, ok := c.strPar(val, parDate); ok {
				df.Date = s
			}
		case parTime:
			if s, ok := c.strPar(val, parTime); ok {
				df.Time = s
			}
		case parTimestamp:
			if s, ok := c.strPar(val, parTimestamp); ok {
				df.Timestamp = s
			}
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), grpDateTime+"."+key)
		}
	}
	if name == "" {
		c.warn("W-Cfg-UnnamedFormat", lineStr(item), grpDateTime)
		return
	}
	c.DateTimeFormats[name] = df
}

func (c *Configuration) readOutputFormat(item *toml.Item) {
	name := ""
	df := format.DefaultDateTimeFormats()
	var entries []format.FormatEntry
	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case parName:
			if s, ok := c.strPar(val, parName); ok {
				name = s
			}
		case parDatetimeFormat:
			if s, ok := c.strPar(val, parDatetimeFormat); ok {
				named, exists := c.DateTimeFormats[s]
				if !exists {
					c.warn("W-Cfg-UnresolvedReference", lineStr(val),
						name, "datetime format", s)
					continue
				}
				df = named
			}
		case parItems:
			if !val.IsArray() && !val.IsTableArray() {
				c.warn("W-Cfg-TypeMismatch", lineStr(val), parItems, "array")
				continue
			}
			for _, e := range val.Items() {
				if entry, ok := c.readFormatEntry(e); ok {
					entries = append(entries, entry)
				}
			}
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), grpOutput+"."+key)
		}
	}
	if name == "" {
		c.warn("W-Cfg-UnnamedFormat", lineStr(item), grpOutput)
		return
	}
	if len(entries) == 0 {
		entries = append(entries, format.FormatEntry{
			Levels:   record.AllLevels,
			Triggers: record.AllTriggers,
			Spec:     format.ParseSpec(format.DefaultSpecSource),
		})
	}
	c.OutputFormats[name] = format.NewOutputFormat(entries, df)
	jww.TRACE.Printf("output format %q read with %d entries", name, len(entries))
}

func (c *Configuration) readFormatEntry(item *toml.Item) (format.FormatEntry, bool) {
	entry := format.FormatEntry{Levels: record.AllLevels, Triggers: record.AllTriggers}
	if !item.IsTable() {
		c.warn("W-Cfg-TypeMismatch", lineStr(item), parItems, "table")
		return entry, false
	}
	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case parLevels:
			entry.Levels = c.readLevels(val)
		case parTriggers:
			entry.Triggers = c.readTriggers(val)
		case parFormat:
			if s, ok := c.strPar(val, parFormat); ok {
				entry.Spec = format.ParseSpec(s)
			}
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), parItems+"."+key)
		}
	}
	if entry.Spec == nil {
		entry.Spec = format.ParseSpec(format.DefaultSpecSource)
	}
	return entry, true
}

// readLevels accepts a level name, the word "all", or an array of level
// names, and returns the resulting mask.
func (c *Configuration) readLevels(item *toml.Item) uint32 {
	var mask uint32
	add := func(val *toml.Item) {
		s, ok := c.strPar(val, parLevels)
		if !ok {
			return
		}
		if s == "all" || s == "All" {
			mask |= record.AllLevels
			return
		}
		lvl, valid := record.LevelFromName(s)
		if !valid {
			c.warn("W-Cfg-InvalidLevel", lineStr(val), s)
			return
		}
		mask |= lvl.Bit()
	}
	if item.IsArray() {
		for _, e := range item.Items() {
			add(e)
		}
	} else {
		add(item)
	}
	return mask
}

func (c *Configuration) readTriggers(item *toml.Item) uint32 {
	var mask uint32
	add := func(val *toml.Item) {
		s, ok := c.strPar(val, parTriggers)
		if !ok {
			return
		}
		if s == "all" || s == "All" {
			mask |= record.AllTriggers
			return
		}
		trg, valid := record.TriggerFromName(s)
		if !valid {
			c.warn("W-Cfg-InvalidTrigger", lineStr(val), s)
			return
		}
		mask |= trg.Bit()
	}
	if item.IsArray() {
		for _, e := range item.Items() {
			add(e)
		}
	} else {
		add(item)
	}
	if mask == 0 {
		mask = record.AllTriggers
	}
	return mask
}

//
// [[resources]]
//

func (c *Configuration) readResources(item *toml.Item) {
	elems := tableElems(item)
	if elems == nil {
		c.warn("W-Cfg-TypeMismatch", lineStr(item), grpResources, "array of tables")
		return
	}
	for _, elem := range elems {
		c.readResource(elem)
	}
}

type resourcePar struct {
	set  bool
	line int
}

func (c *Configuration) readResource(item *toml.Item) {
	rd := &ResourceDesc{LineNr: item.LineNr(), Facility: 1}
	kindSet := false
	var namePar, sizePar, bufPar, rovrPar, localPar, remotePar resourcePar

	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case parKind:
			if s, ok := c.strPar(val, parKind); ok {
				kind, valid := KindFromName(s)
				if !valid {
					c.warn("W-Cfg-InvalidResourceKind", lineStr(val), s)
					continue
				}
				rd.Kind = kind
				kindSet = true
			}
		case parLevels:
			rd.Levels = c.readLevels(val)
		case parName:
			if s, ok := c.strPar(val, parName); ok {
				rd.FileNameSpec = s
				namePar = resourcePar{true, val.LineNr()}
			}
		case parSize:
			if v, ok := c.sizePar(val, parSize, buffer1KiB, MaxBufferContentSize); ok {
				rd.FileSize = v
				sizePar = resourcePar{true, val.LineNr()}
			}
		case parBuffer:
			if s, ok := c.strPar(val, parBuffer); ok {
				rd.BufferPolicy = s
				bufPar = resourcePar{true, val.LineNr()}
			}
		case parRollover:
			if s, ok := c.strPar(val, parRollover); ok {
				rd.RolloverPolicy = s
				rovrPar = resourcePar{true, val.LineNr()}
			}
		case parOutputFormat:
			if s, ok := c.strPar(val, parOutputFormat); ok {
				rd.OutputFormat = s
			}
		case parRemoteURL:
			if s, ok := c.strPar(val, parRemoteURL); ok {
				u, err := url.Parse(s)
				if err != nil {
					c.warn("W-Cfg-InvalidUrl", lineStr(val), s)
					continue
				}
				rd.RemoteURL = u
				remotePar = resourcePar{true, val.LineNr()}
			}
		case parLocalURL:
			if s, ok := c.strPar(val, parLocalURL); ok {
				u, err := url.Parse(s)
				if err != nil {
					c.warn("W-Cfg-InvalidUrl", lineStr(val), s)
					continue
				}
				rd.LocalURL = u
				localPar = resourcePar{true, val.LineNr()}
			}
		case parFacility:
			if v, ok := c.intPar(val, parFacility, 0, 23); ok {
				rd.Facility = int(v)
			}
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), grpResources+"."+key)
		}
	}

	if !kindSet || rd.Levels == 0 {
		c.warn("W-Cfg-InvalidResourceSpec", lineStr(item))
		return
	}

	meaningless := func(p resourcePar, name string) {
		if p.set {
			c.warn("W-Cfg-MeaninglessResourcePar", strconv.Itoa(p.line),
				name, rd.Kind.String())
		}
	}
	required := func(p resourcePar, name string) bool {
		if !p.set {
			c.warn("W-Cfg-MissingResourcePar", lineStr(item), rd.Kind.String(), name)
			return false
		}
		return true
	}

	switch rd.Kind {
	case PlainFile:
		if !required(namePar, parName) {
			return
		}
		meaningless(sizePar, parSize)
		meaningless(localPar, parLocalURL)
		meaningless(remotePar, parRemoteURL)
	case MemoryMappedFile:
		if !required(namePar, parName) || !required(sizePar, parSize) {
			return
		}
		meaningless(bufPar, parBuffer)
		meaningless(localPar, parLocalURL)
		meaningless(remotePar, parRemoteURL)
	case StdOut, StdErr:
		meaningless(namePar, parName)
		meaningless(sizePar, parSize)
		meaningless(rovrPar, parRollover)
		meaningless(localPar, parLocalURL)
		meaningless(remotePar, parRemoteURL)
		rd.FileNameSpec = ""
		rd.RolloverPolicy = ""
	case Syslog:
		meaningless(namePar, parName)
		meaningless(sizePar, parSize)
		meaningless(rovrPar, parRollover)
		rd.FileNameSpec = ""
		rd.RolloverPolicy = ""
		if rd.RemoteURL == nil {
			rd.RemoteURL, _ = url.Parse(DefaultSyslogURL)
		}
	case Network:
		if !required(remotePar, parRemoteURL) {
			return
		}
		meaningless(namePar, parName)
		meaningless(sizePar, parSize)
		meaningless(rovrPar, parRollover)
		rd.FileNameSpec = ""
		rd.RolloverPolicy = ""
	}
	c.Resources = append(c.Resources, rd)
	jww.TRACE.Printf("resource read: kind %s levels %#x", rd.Kind, rd.Levels)
}

const buffer1KiB = 1024

//
// [[modes]]
//

func (c *Configuration) readModes(item *toml.Item) {
	elems := tableElems(item)
	if elems == nil {
		c.warn("W-Cfg-TypeMismatch", lineStr(item), grpModes, "array of tables")
		return
	}
	for _, elem := range elems {
		c.readMode(elem)
	}
}

// modeTriggerFromName resolves the observer kind naming used in mode
// change descriptors.
func modeTriggerFromName(s string) (record.Trigger, bool) {
	switch s {
	case "function":
		return record.FunctionEntry, true
	case "module":
		return record.ModuleEntry, true
	case "object":
		return record.ObjectCreated, true
	}
	return record.TriggerFromName(s)
}

func (c *Configuration) readMode(item *toml.Item) {
	md := &ModeChangeDesc{
		LineNr:         item.LineNr(),
		EnabledLevels:  record.NoChange,
		BufferedLevels: record.NoChange,
	}
	triggerSet := false
	for _, key := range item.Keys() {
		val, _ := item.Child(key)
		switch key {
		case parTrigger:
			if s, ok := c.strPar(val, parTrigger); ok {
				trg, valid := modeTriggerFromName(s)
				if !valid {
					c.warn("W-Cfg-InvalidTrigger", lineStr(val), s)
					continue
				}
				md.Trigger = trg
				triggerSet = true
			}
		case parName:
			if s, ok := c.strPar(val, parName); ok {
				re, err := regexp.Compile(s)
				if err != nil {
					c.warn("W-Cfg-IgnoredModeDesc", lineStr(val),
						"invalid name pattern "+s)
					return
				}
				md.NamePattern = re
			}
		case parValue:
			if s, ok := c.strPar(val, parValue); ok {
				re, err := regexp.Compile(s)
				if err != nil {
					c.warn("W-Cfg-IgnoredModeDesc", lineStr(val),
						"invalid value pattern "+s)
					return
				}
				md.ValuePattern = re
			}
		case parScope:
			if s, ok := c.strPar(val, parScope); ok {
				scope, valid := ScopeFromName(s)
				if !valid {
					c.warn("W-Cfg-UnknownKey", lineStr(val), parScope+"."+s)
					continue
				}
				md.Scope = scope
			}
		case parEnabled:
			md.EnabledLevels = c.readLevels(val)
		case parBuffered:
			md.BufferedLevels = c.readLevels(val)
		default:
			c.warn("W-Cfg-UnknownKey", lineStr(val), grpModes+"."+key)
		}
	}

	if !triggerSet {
		c.warn("W-Cfg-IgnoredModeDesc", lineStr(item), "trigger missing")
		return
	}
	if !md.IsEffective() {
		c.warn("W-Cfg-IgnoredModeDesc", lineStr(item),
			"neither enabled nor buffered levels change")
		return
	}
	isObject := md.Trigger == record.ObjectCreated || md.Trigger == record.ObjectDropped
	if isObject && md.NamePattern == nil && md.ValuePattern == nil {
		c.warn("W-Cfg-IgnoredModeDesc", lineStr(item),
			"object trigger without name or value pattern")
		return
	}
	if md.Scope == ScopeProcess && !isObject {
		c.warn("W-Cfg-IgnoredModeDesc", lineStr(item),
			"process scope requires an object trigger")
		md.Scope = ScopeThread
	}
	c.Modes = append(c.Modes, md)
}

//
// reference resolution
//

// resolveReferences replaces dangling policy and format references with the
// default, so no dangling references survive construction.
func (c *Configuration) resolveReferences() {
	for _, rd := range c.Resources {
		if rd.BufferPolicy != "" {
			if _, ok := c.BufferPolicies[rd.BufferPolicy]; !ok {
				c.warn("W-Cfg-UnresolvedReference", strconv.Itoa(rd.LineNr),
					grpResources, "buffer policy", rd.BufferPolicy)
				rd.BufferPolicy = ""
			}
		}
		if rd.RolloverPolicy != "" {
			if _, ok := c.RolloverPolicies[rd.RolloverPolicy]; !ok {
				c.warn("W-Cfg-UnresolvedReference", strconv.Itoa(rd.LineNr),
					grpResources, "rollover policy", rd.RolloverPolicy)
				rd.RolloverPolicy = ""
			}
		}
		if rd.OutputFormat != "" {
			if _, ok := c.OutputFormats[rd.OutputFormat]; !ok {
				c.warn("W-Cfg-UnresolvedReference", strconv.Itoa(rd.LineNr),
					grpResources, "output format", rd.OutputFormat)
				rd.OutputFormat = ""
			}
		}
	}
}
