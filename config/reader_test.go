package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coaly-project/coaly/record"
)

const fullConfig = `
[system]
app_id = 77
app_name = "orders"
version = "1.2"

[[policies.buffer]]
name = "small"
content_size = 8192
index_size = 64
flush = ["error", "exit"]
max_record_length = 2048

[[policies.rollover]]
name = "daily"
condition = "every day at 03:30"
keep = 5
compression = "gzip"

[[policies.rollover]]
name = "bysize"
condition = "size > 2m"
keep = 3
compression = "zip"

[[formats.datetime]]
name = "compact"
date = "%Y%m%d"
time = "%H%M%S"
timestamp = "%Y%m%d%H%M%S"

[[formats.output]]
name = "full"
datetime_format = "compact"
items = [
	{ levels = ["error", "critical"], format = "$TimeStamp !$LevelId! $Message" },
	{ levels = "all", format = "$TimeStamp $LevelId $Message" },
]

[[resources]]
kind = "file"
levels = "all"
name = "orders.log"
buffer = "small"
rollover = "daily"
output_format = "full"

[[resources]]
kind = "stdout"
levels = ["error", "warning"]

[[modes]]
trigger = "function"
name = "Dump.*"
enabled = ["debug", "info", "notice", "warning", "error", "critical", "alert", "emergency"]
`

func TestReadFullConfiguration(t *testing.T) {
	cfg := FromString(fullConfig)
	require.False(t, cfg.Messages.HasErrors(), "messages: %v", cfg.Messages)

	assert.Equal(t, uint32(77), cfg.System.AppID)
	assert.Equal(t, "orders", cfg.System.AppName)
	assert.Equal(t, "1.2", cfg.System.Version)

	bp, ok := cfg.BufferPolicies["small"]
	require.True(t, ok)
	assert.Equal(t, int64(8192), bp.ContentSize)
	assert.Equal(t, 64, bp.IndexSize)
	assert.Equal(t, FlushOnError|FlushOnExit, bp.FlushConditions)
	assert.Equal(t, 2048, bp.MaxRecordLength)

	rp, ok := cfg.RolloverPolicies["daily"]
	require.True(t, ok)
	assert.Equal(t, RolloverTimeElapsed, rp.Condition.Kind)
	assert.Equal(t, 5, rp.KeepCount)
	assert.Equal(t, CompressionGzip, rp.Compression)

	rp = cfg.RolloverPolicies["bysize"]
	assert.Equal(t, RolloverSizeReached, rp.Condition.Kind)
	assert.Equal(t, int64(2*1024*1024), rp.Condition.Size)
	assert.Equal(t, CompressionZip, rp.Compression)

	of, ok := cfg.OutputFormats["full"]
	require.True(t, ok)
	require.Len(t, of.Entries(), 2)
	assert.Equal(t, record.Error.Bit()|record.Critical.Bit(), of.Entries()[0].Levels)
	assert.Equal(t, "%Y%m%d", of.DateTimeFormats().Date)

	require.Len(t, cfg.Resources, 2)
	fileRes := cfg.Resources[0]
	assert.Equal(t, PlainFile, fileRes.Kind)
	assert.Equal(t, record.AllLevels, fileRes.Levels)
	assert.Equal(t, "orders.log", fileRes.FileNameSpec)
	assert.Equal(t, "small", fileRes.BufferPolicy)
	assert.True(t, fileRes.UsesBuffer())

	conRes := cfg.Resources[1]
	assert.Equal(t, StdOut, conRes.Kind)
	assert.Equal(t, record.Error.Bit()|record.Warning.Bit(), conRes.Levels)
	assert.False(t, conRes.UsesBuffer())

	require.Len(t, cfg.Modes, 1)
	md := cfg.Modes[0]
	assert.Equal(t, record.FunctionEntry, md.Trigger)
	assert.True(t, md.Matches("DumpOrders", ""))
	assert.False(t, md.Matches("Other", ""))
	assert.Equal(t, record.AllLevels, md.EnabledLevels)
	assert.True(t, record.IsNoChange(md.BufferedLevels))
}

func TestUnknownKeysWarnButContinue(t *testing.T) {
	cfg := FromString("[system]\napp_id = 1\nmystery = true\n[wholetable]\nx = 1\n")
	assert.False(t, cfg.Messages.HasErrors())
	found := 0
	for _, d := range cfg.Messages {
		if d.ID == "W-Cfg-UnknownKey" {
			found++
		}
	}
	assert.Equal(t, 2, found)
	assert.Equal(t, uint32(1), cfg.System.AppID)
}

func TestBrokenTomlFallsBackToDefault(t *testing.T) {
	cfg := FromString("a.b = 1\n[a]\nb = 2\n")
	require.True(t, cfg.Messages.HasErrors())
	assert.Equal(t, "E-Toml-KeyAlreadyInUse", cfg.Messages.Errors()[0].ID)
	// default configuration remains usable
	require.Len(t, cfg.Resources, 1)
	assert.Equal(t, PlainFile, cfg.Resources[0].Kind)
	assert.Equal(t, DefaultFileNameSpec, cfg.Resources[0].FileNameSpec)
}

func TestOutOfRangeSubstitutesDefault(t *testing.T) {
	cfg := FromString(`
[[policies.buffer]]
name = "bad"
content_size = 16
[[policies.rollover]]
name = "badkeep"
keep = 900
`)
	warned := map[string]bool{}
	for _, d := range cfg.Messages {
		warned[d.ID] = true
	}
	assert.True(t, warned["W-Cfg-ValueOutOfRange"])

	bp := cfg.BufferPolicies["bad"]
	require.NotNil(t, bp)
	assert.Equal(t, int64(DefaultBufferContentSize), bp.ContentSize)
	rp := cfg.RolloverPolicies["badkeep"]
	require.NotNil(t, rp)
	assert.Equal(t, DefaultKeepCount, rp.KeepCount)
}

func TestUnresolvedReferencesRevertToDefault(t *testing.T) {
	cfg := FromString(`
[[resources]]
kind = "file"
levels = "all"
name = "a.log"
buffer = "nosuch"
rollover = "nosuch"
output_format = "nosuch"
`)
	ids := []string{}
	for _, d := range cfg.Messages {
		ids = append(ids, d.ID)
	}
	assert.Contains(t, ids, "W-Cfg-UnresolvedReference")
	rd := cfg.Resources[0]
	assert.Empty(t, rd.BufferPolicy)
	assert.Empty(t, rd.RolloverPolicy)
	assert.Empty(t, rd.OutputFormat)
}

func TestResourceKindValidation(t *testing.T) {
	// stdout with a file name draws a meaningless parameter warning
	cfg := FromString(`
[[resources]]
kind = "stdout"
levels = "all"
name = "pointless.log"
`)
	found := false
	for _, d := range cfg.Messages {
		if d.ID == "W-Cfg-MeaninglessResourcePar" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Empty(t, cfg.Resources[0].FileNameSpec)

	// memory mapped file without size is dropped
	cfg = FromString(`
[[resources]]
kind = "mmfile"
levels = "all"
name = "m.dat"
`)
	found = false
	for _, d := range cfg.Messages {
		if d.ID == "W-Cfg-MissingResourcePar" {
			found = true
		}
	}
	assert.True(t, found)
	// the defaulted resource replaces the dropped one
	require.Len(t, cfg.Resources, 1)
	assert.Equal(t, DefaultFileNameSpec, cfg.Resources[0].FileNameSpec)

	// missing kind or levels invalidates the resource
	cfg = FromString("[[resources]]\nname = \"x.log\"\n")
	found = false
	for _, d := range cfg.Messages {
		if d.ID == "W-Cfg-InvalidResourceSpec" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestModeValidation(t *testing.T) {
	// object trigger without pattern is ignored
	cfg := FromString(`
[[modes]]
trigger = "object"
enabled = ["debug"]
`)
	assert.Empty(t, cfg.Modes)

	// no effective change is ignored
	cfg = FromString(`
[[modes]]
trigger = "function"
`)
	assert.Empty(t, cfg.Modes)

	// process scope demoted for non-object triggers
	cfg = FromString(`
[[modes]]
trigger = "function"
scope = "process"
enabled = ["debug"]
`)
	require.Len(t, cfg.Modes, 1)
	assert.Equal(t, ScopeThread, cfg.Modes[0].Scope)
}

func TestServerTable(t *testing.T) {
	cfg := FromString(`
[server]
name = "central"
listen_address = "0.0.0.0"
port = 4000
max_connections = 10
app_ids = [1, 2]
`)
	require.NotNil(t, cfg.Server)
	assert.Equal(t, "central", cfg.Server.Name)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.True(t, cfg.Server.AdmitsApp(2))
	assert.False(t, cfg.Server.AdmitsApp(3))

	cfg = FromString("[system]\napp_id = 1\n")
	assert.Nil(t, cfg.Server)
}

func TestRolloverConditionParsing(t *testing.T) {
	cond, ok := ParseRolloverCondition("never")
	require.True(t, ok)
	assert.Equal(t, RolloverNever, cond.Kind)

	cond, ok = ParseRolloverCondition("size > 500k")
	require.True(t, ok)
	assert.Equal(t, int64(500*1024), cond.Size)

	cond, ok = ParseRolloverCondition("every 2 hours")
	require.True(t, ok)
	assert.Equal(t, RolloverTimeElapsed, cond.Kind)
	assert.Nil(t, cond.Interval.Anchor)

	cond, ok = ParseRolloverCondition("every week at wed 12:00")
	require.True(t, ok)
	require.NotNil(t, cond.Interval.Anchor)

	cond, ok = ParseRolloverCondition("every month at ultimo 22:00")
	require.True(t, ok)
	require.NotNil(t, cond.Interval.Anchor)

	_, ok = ParseRolloverCondition("whenever convenient")
	assert.False(t, ok)
}

func TestDefaultConfiguration(t *testing.T) {
	cfg := Default()
	require.Len(t, cfg.Resources, 1)
	assert.Equal(t, record.AllLevels, cfg.Resources[0].Levels)
	assert.NotNil(t, cfg.Originator)
	assert.NotEmpty(t, cfg.System.OutputPath)
	assert.True(t, strings.HasPrefix(cfg.Resources[0].FileNameSpec, "$ProcessName"))
}
