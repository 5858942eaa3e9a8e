package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/luaru/executor"
	"github.com/caffeineduck/luaru/hostfunc"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive REPL with persistent state",
	Long: `Start an interactive REPL (Read-Eval-Print Loop) session.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)
  - Expression shorthand: =expr prints expr

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	Run: runRepl,
}

func init() {
	replCmd.Flags().Bool("kv", false, "Enable key-value store")
	replCmd.Flags().StringSlice("allow-host", nil, "Allow HTTP to host (repeatable)")
	replCmd.Flags().StringSlice("mount", nil, "Mount filesystem virtual:host:mode (repeatable)")
	replCmd.Flags().String("history", "", "History file path (default: ~/.luaru_history)")
	rootCmd.AddCommand(replCmd)
}

// buildSessionOpts mirrors buildRunOpts for the session-scoped options.
func buildSessionOpts(cmd *cobra.Command, cfg fileConfig) []executor.SessionOption {
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

	var opts []executor.SessionOption

	libs, err := parseLibraries(libSpecs)
	if err != nil {
		fatalf("%v", err)
	}
	if len(libs) > 0 {
		opts = append(opts, executor.WithSessionLibraries(libs...))
	}
	if enableKV {
		opts = append(opts, executor.WithSessionKV(hostfunc.DefaultKVConfig()))
	}
	if len(allowedHosts) > 0 {
		opts = append(opts, executor.WithSessionAllowedHosts(allowedHosts))
	}
	for _, spec := range mounts {
		m, err := parseMount(spec)
		if err != nil {
			fatalf("%v", err)
		}
		opts = append(opts, executor.WithSessionMount(m.VirtualPath, m.HostPath, m.Mode))
	}

	return opts
}

// rewriteREPLLine applies the =expr shorthand: a leading '=' turns the
// expression into a print of its results.
func rewriteREPLLine(line string) string {
	if rest, ok := strings.CutPrefix(line, "="); ok {
		return "print(" + strings.TrimSpace(rest) + ")"
	}
	return line
}

func runRepl(cmd *cobra.Command, args []string) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	historyFile, _ := cmd.Flags().GetString("history")

	cfg, err := loadConfig(configPath)
	if err != nil {
		fatalf("%v", err)
	}

	if historyFile == "" {
		historyFile = cfg.HistoryFile
	}
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".luaru_history")
	}

	exec, err := executor.New(hostfunc.NewRegistry())
	if err != nil {
		fatalf("%v", err)
	}
	defer exec.Close()

	session, err := exec.NewSession(buildSessionOpts(cmd, cfg)...)
	if err != nil {
		fatalf("starting session: %v", err)
	}
	defer session.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fatalf("initializing readline: %v", err)
	}
	defer rl.Close()

	fmt.Fprintln(os.Stderr, "luaru REPL (type 'exit' to quit, Ctrl+D to exit)")

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt("> ")
				}
				continue
			}
			if err == io.EOF {
				fmt.Println()
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			break
		}

		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt(">> ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt("> ")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		result := session.Run(context.Background(), rewriteREPLLine(line))
		if result.Output != "" {
			fmt.Print(result.Output)
			if !strings.HasSuffix(result.Output, "\n") {
				fmt.Println()
			}
		}
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", result.Error)
		}
	}
}
