package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abdul-hamid-achik/aish/internal/config"
	"github.com/abdul-hamid-achik/aish/internal/llm"
	"github.com/abdul-hamid-achik/aish/internal/logging"
	"github.com/abdul-hamid-achik/aish/internal/shell"
	"github.com/abdul-hamid-achik/aish/internal/ui"
)

var Version = "dev"

// flags of the root command
type options struct {
	command       string
	configPath    string
	maxIterations int
	verbose       bool
}

// newRootCmd builds the aish command. The exit status of whatever ran is
// stored in status.
func newRootCmd(status *int) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "aish [flags] [script]",
		Short: "A shell that also takes instructions",
		Long: `aish runs pipelines like any shell. Lines that are not commands are
handed to a model together with the files you loaded into context.

Markdown scripts (.md, .markdown, .aish) are run block by block: shell
fences execute, prose paragraphs and lists become instructions.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("command") && len(args) > 0 {
				return fmt.Errorf("-c and a script file are mutually exclusive")
			}
			code, err := run(cmd.Context(), opts, args, cmd.Flags().Changed("command"))
			*status = code
			return err
		},
	}
	cmd.SetVersionTemplate("aish version {{.Version}}\n")

	f := cmd.Flags()
	f.StringVarP(&opts.command, "command", "c", "", "run a single line and exit")
	f.StringVar(&opts.configPath, "config", "", "config file (default: aish.yaml, .aish/config.yaml, ~/.config/aish/config.yaml)")
	f.IntVar(&opts.maxIterations, "max-iterations", 0, "cap model exchanges per instruction")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	return cmd
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	status := 0
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&status).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "aish: %v\n", err)
		if status == 0 {
			status = 1
		}
	}
	return status
}

func run(ctx context.Context, opts options, args []string, hasCommand bool) (int, error) {
	logCfg := logging.ConfigFromEnv().WithVerbose(opts.verbose)
	log, err := logging.Init(logCfg)
	if err != nil {
		return 1, fmt.Errorf("logging: %w", err)
	}
	defer logging.Close()

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		Path:          opts.configPath,
		MaxIterations: opts.maxIterations,
	})
	if err != nil {
		return 1, err
	}

	interactive := !hasCommand && len(args) == 0
	output := ui.NewOutput()

	var input ui.LineReader
	if interactive {
		input, err = ui.NewLineReader(cfg.Shell.Prompt)
		if err != nil {
			return 1, fmt.Errorf("input: %w", err)
		}
	}

	sh := shell.New(shell.Options{
		Config:      cfg,
		LLM:         newModelClient(cfg, output),
		Output:      output,
		Input:       input,
		Interactive: interactive,
		JobControl:  interactive && term.IsTerminal(int(os.Stdin.Fd())),
	})
	defer sh.Close()

	log.Debug("session started", logging.F("interactive", interactive), logging.F("agent", sh.AgentAvailable()))

	switch {
	case hasCommand:
		return sh.RunCommand(ctx, opts.command), nil
	case len(args) == 1:
		return sh.RunFile(ctx, args[0]), nil
	default:
		return sh.RunInteractive(ctx), nil
	}
}

// newModelClient wires the Anthropic client behind retries and, when
// enabled, request pacing with a countdown on the terminal. It returns nil
// without an API key.
func newModelClient(cfg *config.Config, output *ui.Output) llm.LLMClient {
	if !cfg.HasAPIKey() {
		return nil
	}

	var client llm.LLMClient = llm.NewResilientClient(llm.NewClient(cfg), cfg.RateLimit)
	if !cfg.RateLimit.EnableRateLimiting {
		return client
	}

	limited := llm.NewRateLimitedClient(client, cfg.RateLimit)
	spinner := output.Spinner()
	limited.SetWaitCallback(func(ctx context.Context, info llm.WaitInfo) error {
		return spinner.Start(ctx, ui.SpinnerConfig{
			Message:     "Rate limited",
			Reason:      info.Reason,
			Duration:    info.Duration,
			Attempt:     info.Attempt,
			MaxAttempts: info.MaxAttempts,
		})
	})
	return limited
}
