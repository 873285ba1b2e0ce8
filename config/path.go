package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/coaly-project/coaly/diag"
	"github.com/coaly-project/coaly/format"
)

// resolvePaths expands the variables in output_path and fallback_path and
// verifies the result is an absolute, writable directory. An unusable
// output path reverts to the working directory or the system temp
// directory.
func (c *Configuration) resolvePaths() {
	if c.System.FallbackPath != "" {
		fp, ok := c.expandPath(c.System.FallbackPath)
		if ok && usableDir(fp) {
			c.System.FallbackPath = fp
		} else {
			c.warn("W-Cfg-OutputPathFallback", c.System.FallbackPath, "")
			c.System.FallbackPath = ""
		}
	}
	if c.System.OutputPath == "" {
		c.System.OutputPath = workingDirOrTemp(&c.Messages)
		return
	}
	op, ok := c.expandPath(c.System.OutputPath)
	if !ok || !filepath.IsAbs(op) || !usableDir(op) {
		fallback := workingDirOrTemp(&c.Messages)
		c.warn("W-Cfg-OutputPathFallback", c.System.OutputPath, fallback)
		c.System.OutputPath = fallback
		return
	}
	c.System.OutputPath = op
}

// expandPath substitutes the originator variables in a path specification.
// Unresolved environment variables make the path unusable.
func (c *Configuration) expandPath(spec string) (string, bool) {
	sp := format.ParseSpec(spec)
	for _, it := range sp.Items() {
		if it.Var == format.VarEnv {
			if _, ok := c.Originator.EnvValue(it.EnvName); !ok {
				c.warn("W-Cfg-UnresolvedVariable", "$Env["+it.EnvName+"]", spec)
				return "", false
			}
		}
	}
	opt := sp.OptimizeForOriginator(c.Originator)
	var out []byte
	for _, it := range opt.Items() {
		if !it.IsLiteral() {
			c.warn("W-Cfg-UnresolvedVariable", "$"+strconv.Itoa(int(it.Var)), spec)
			return "", false
		}
		out = append(out, it.Literal...)
	}
	return string(out), true
}

// usableDir reports whether the directory exists or can be created, and is
// writable.
func usableDir(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".coaly-probe-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return true
}

func workingDirOrTemp(msgs *diag.Messages) string {
	if wd, err := os.Getwd(); err == nil && usableDir(wd) {
		return wd
	}
	tmp := os.TempDir()
	*msgs = append(*msgs, diag.NewWarning("W-Cfg-OutputPathFallback", "working directory", tmp))
	return tmp
}

// ResolveFileName expands a resource file name specification for the local
// originator, leaving thread and date-time variables in place.
func (c *Configuration) ResolveFileName(spec string) *format.Spec {
	return format.ParseSpec(spec).OptimizeForOriginator(c.Originator)
}
