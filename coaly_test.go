package coaly

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coaly-project/coaly/config"
	"github.com/coaly-project/coaly/record"
)

func testRecord(msg string) *record.Data {
	return &record.Data{
		Level:    record.Info,
		Trigger:  record.Message,
		Time:     time.Now(),
		ThreadID: 1,
		Message:  msg,
	}
}

func TestInitializeWriteShutdown(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "coaly.toml")
	contents := fmt.Sprintf(`
[system]
output_path = %q

[[formats.output]]
name = "plain"
items = [ { format = "$Message" } ]

[[resources]]
kind = "file"
levels = "all"
name = "facade.log"
output_format = "plain"
`, dir)
	require.NoError(t, os.WriteFile(cfgFile, []byte(contents), 0o644))

	msgs := Initialize(cfgFile)
	assert.False(t, msgs.HasErrors(), "messages: %v", msgs)
	require.NotNil(t, Configuration())

	iface := InterfaceFor(1, "main")
	iface.Write(testRecord("through the facade"), false)
	Write(testRecord("package level write"), false)

	RolloverIfDue(time.Now())
	Shutdown()

	data, err := os.ReadFile(filepath.Join(dir, "facade.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "through the facade\n")
	assert.Contains(t, string(data), "package level write\n")
}

func TestWritesAfterShutdownAreNoOps(t *testing.T) {
	dir := t.TempDir()
	cfg := config.FromString(fmt.Sprintf(`
[system]
output_path = %q

[[resources]]
kind = "file"
levels = "all"
name = "noop.log"
`, dir))
	require.False(t, cfg.Messages.HasErrors())

	InitializeWithConfig(cfg)
	Shutdown()
	assert.Nil(t, Configuration())

	// both paths stay inert after shutdown
	InterfaceFor(1, "x").Write(testRecord("lost"), false)
	Write(testRecord("also lost"), false)
	assert.Nil(t, Shutdown())
}

func TestInitializeWithBrokenConfigFallsBack(t *testing.T) {
	// the default configuration writes to the working directory
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(prev)

	msgs := Initialize(filepath.Join(dir, "missing.toml"))
	defer Shutdown()
	require.True(t, msgs.HasErrors())
	assert.Equal(t, "E-Cfg-FileNotFound", msgs.Errors()[0].ID)
	// the default configuration still yields a working inventory
	assert.NotNil(t, Configuration())
}
