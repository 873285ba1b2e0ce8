// Command coalycheck parses a configuration file and reports every
// diagnostic the reader produces. Exit status 1 signals errors, or warnings
// under --strict.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/coaly-project/coaly/config"
)

func main() {
	strict := flag.Bool("strict", false, "treat warnings as fatal")
	dump := flag.Bool("dump", false, "print the resolved descriptors")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: coalycheck [--strict] [--dump] <config.toml>")
		os.Exit(2)
	}

	cfg := config.Load(flag.Arg(0))
	for _, d := range cfg.Messages {
		fmt.Fprintf(os.Stderr, "%s: %s\n", d.Severity, d.Error())
	}
	if *dump {
		dumpConfig(cfg)
	}
	if cfg.Messages.HasErrors() || (*strict && len(cfg.Messages) > 0) {
		os.Exit(1)
	}
}

func dumpConfig(cfg *config.Configuration) {
	fmt.Printf("system: app %d %q version %q\n",
		cfg.System.AppID, cfg.System.AppName, cfg.System.Version)
	fmt.Printf("output path: %s\n", cfg.System.OutputPath)
	if cfg.System.FallbackPath != "" {
		fmt.Printf("fallback path: %s\n", cfg.System.FallbackPath)
	}
	if cfg.Server != nil {
		fmt.Printf("server: %s:%d (max %d connections)\n",
			cfg.Server.ListenAddress, cfg.Server.Port, cfg.Server.MaxConnections)
	}
	for name, p := range cfg.BufferPolicies {
		fmt.Printf("buffer policy %q: content %d index %d flush %#x max record %d\n",
			name, p.ContentSize, p.IndexSize, p.FlushConditions, p.MaxRecordLength)
	}
	for name, p := range cfg.RolloverPolicies {
		fmt.Printf("rollover policy %q: keep %d compression %s\n",
			name, p.KeepCount, p.Compression)
	}
	for name := range cfg.OutputFormats {
		fmt.Printf("output format %q\n", name)
	}
	for _, rd := range cfg.Resources {
		fmt.Printf("resource: kind %s levels %#x name %q buffer %q rollover %q format %q\n",
			rd.Kind, rd.Levels, rd.FileNameSpec, rd.BufferPolicy,
			rd.RolloverPolicy, rd.OutputFormat)
	}
	for _, md := range cfg.Modes {
		fmt.Printf("mode change: trigger %s scope %d\n", md.Trigger, md.Scope)
	}
}
