package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/luaru/executor"
	"github.com/caffeineduck/luaru/hostfunc"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a script (stateless execution)",
	Long: `Execute a Lua script in an isolated VM.

Code can be provided via:
  - File argument: luaru run script.lua
  - Inline flag: luaru run -c 'print(1+1)'
  - Stdin: echo 'print(1+1)' | luaru run`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Code to execute")
	cmd.Flags().Duration("timeout", 30*time.Second, "Execution timeout")
	cmd.Flags().Bool("kv", false, "Enable key-value store")
	cmd.Flags().StringSlice("allow-host", nil, "Allow HTTP to host (repeatable)")
	cmd.Flags().StringSlice("mount", nil, "Mount filesystem virtual:host:mode (repeatable)")
	cmd.Flags().Int("http-max-url", hostfunc.DefaultMaxURLLength, "Max HTTP URL length")
	cmd.Flags().Int64("http-max-body", hostfunc.DefaultMaxBodySize, "Max HTTP response body size")
	cmd.Flags().Int64("fs-max-file", hostfunc.DefaultMaxFileSize, "Max file read/write size")
}

// buildRunOpts turns the flag set and the file config into run options.
// Flags win over the config file.
func buildRunOpts(cmd *cobra.Command, cfg fileConfig) []executor.Option {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if !cmd.Flags().Changed("timeout") {
		timeout = cfg.timeoutOrDefault(timeout)
	}
	enableKV, _ := cmd.Flags().GetBool("kv")
	if !cmd.Flags().Changed("kv") && cfg.KV {
		enableKV = true
	}
	allowedHosts, _ := cmd.Flags().GetStringSlice("allow-host")
	if len(allowedHosts) == 0 {
		allowedHosts = cfg.AllowHosts
	}
	mounts, _ := cmd.Flags().GetStringSlice("mount")
	if len(mounts) == 0 {
		mounts = cfg.Mounts
	}
	libSpecs, _ := cmd.Root().PersistentFlags().GetStringSlice("libs")
	if len(libSpecs) == 0 {
		libSpecs = cfg.Libs
	}

	httpMaxURL, _ := cmd.Flags().GetInt("http-max-url")
	httpMaxBody, _ := cmd.Flags().GetInt64("http-max-body")
	fsMaxFile, _ := cmd.Flags().GetInt64("fs-max-file")

	opts := []executor.Option{executor.WithTimeout(timeout)}

	libs, err := parseLibraries(libSpecs)
	if err != nil {
		fatalf("%v", err)
	}
	if len(libs) > 0 {
		opts = append(opts, executor.WithRunLibraries(libs...))
	}

	if enableKV {
		opts = append(opts, executor.WithKV(hostfunc.DefaultKVConfig()))
	}
	if len(allowedHosts) > 0 {
		opts = append(opts, executor.WithHTTPConfig(hostfunc.HTTPConfig{
			AllowedHosts: allowedHosts,
			MaxURLLength: httpMaxURL,
			MaxBodySize:  httpMaxBody,
		}))
	}
	for _, spec := range mounts {
		m, err := parseMount(spec)
		if err != nil {
			fatalf("%v", err)
		}
		opts = append(opts, executor.WithMount(m.VirtualPath, m.HostPath, m.Mode))
	}
	if fsMaxFile > 0 {
		opts = append(opts, executor.WithFSMaxFileSize(fsMaxFile))
	}

	return opts
}

func runRun(cmd *cobra.Command, args []string) {
	code, _ := cmd.Flags().GetString("code")
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	var source string

	switch {
	case code != "":
		source = code
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		source = string(data)
	default:
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			cmd.Help()
			return
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatalf("%v", err)
		}
		source = string(data)
		if source == "" {
			cmd.Help()
			return
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fatalf("%v", err)
	}

	exec, err := executor.New(hostfunc.NewRegistry())
	if err != nil {
		fatalf("%v", err)
	}
	defer exec.Close()

	result := exec.Run(context.Background(), source, buildRunOpts(cmd, cfg)...)
	fmt.Print(result.Output)

	if result.Error != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", result.Error)
		os.Exit(1)
	}
}
