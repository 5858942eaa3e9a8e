package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/luaru/hostfunc"
	"github.com/caffeineduck/luaru/thread"
)

var rootCmd = &cobra.Command{
	Use:   "luaru [file]",
	Short: "Run Lua scripts in an isolated VM",
	Long: `luaru - Run Lua 5.1 scripts in an isolated VM with explicit capabilities.

Run code from files, inline strings, or stdin. By default, scripts get
the safe standard libraries and no access to the filesystem, network,
or other system resources. Enable capabilities explicitly with flags.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun, // bare `luaru file.lua` behaves like `luaru run file.lua`
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ~/.config/luaru/config.toml)")
	rootCmd.PersistentFlags().StringSlice("libs", nil, "Standard libraries to open: all, safe, or names (repeatable)")

	addRunFlags(rootCmd)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// parseLibraries resolves library selection flags. "safe" and "all"
// expand to the respective sets; anything else must name a library.
// An empty selection returns nil, leaving the executor's default.
func parseLibraries(specs []string) ([]thread.Library, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	var libs []thread.Library
	for _, spec := range specs {
		for _, name := range strings.Split(spec, ",") {
			name = strings.TrimSpace(name)
			switch name {
			case "":
			case "all":
				libs = append(libs, thread.AllLibraries()...)
			case "safe":
				libs = append(libs, thread.SafeLibraries()...)
			default:
				lib, ok := thread.LibraryByName(name)
				if !ok {
					return nil, fmt.Errorf("unknown library %q", name)
				}
				libs = append(libs, lib)
			}
		}
	}
	return libs, nil
}

func parseMount(spec string) (hostfunc.Mount, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return hostfunc.Mount{}, fmt.Errorf("invalid mount spec %q (expected virtual:host:mode)", spec)
	}

	var mode hostfunc.MountMode
	switch parts[2] {
	case "ro":
		mode = hostfunc.MountReadOnly
	case "rw":
		mode = hostfunc.MountReadWrite
	case "rwc":
		mode = hostfunc.MountReadWriteCreate
	default:
		return hostfunc.Mount{}, fmt.Errorf("invalid mount mode %q (expected ro, rw, or rwc)", parts[2])
	}

	return hostfunc.Mount{
		VirtualPath: parts[0],
		HostPath:    parts[1],
		Mode:        mode,
	}, nil
}
