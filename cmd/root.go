// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pcaptree/internal/config"
	"pcaptree/internal/engine"
	"pcaptree/internal/log"
	"pcaptree/internal/parser"
	"pcaptree/internal/render"
)

const usage = "use as pcaptree <path-to-pcap-file>"

// Execute builds the command tree and runs it. Interrupts cancel the run.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var (
		configFile string
		cfg        *config.Config
	)
	current := func() *config.Config { return cfg }

	root := &cobra.Command{
		Use:   "pcaptree <path-to-pcap-file>",
		Short: "Print the protocol layer tree of every packet in a capture file",
		Long: `pcaptree reads a pcapng or classic pcap file and prints, for each packet,
a metadata line (interface, timestamp, length, truncation, options) followed by
an indented tree of the decoded protocol layers.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := log.Init(c.Log); err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			cfg = c
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), usage)
				return nil
			}
			return runDump(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path")
	pf.IntP("limit", "n", 100, "number of packets to print, 0 prints all")
	pf.String("color", config.ColorAuto, "colorize output: auto, always or never")
	pf.Int("indent", render.DefaultIndent, "spaces per nesting level")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(newServeCmd(current))
	root.AddCommand(newConfigCmd(current))
	return root
}

// colorEnabled resolves a color mode. auto colors only terminals.
func colorEnabled(mode string, out io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newEngine(cfg *config.Config, color bool) *engine.Engine {
	r := render.NewRenderer(render.Painter{Enabled: color}, cfg.Indent)
	return engine.New(engine.NewPresenter(r, parser.NewDissector()), cfg.Limit)
}

func runDump(ctx context.Context, cfg *config.Config, path string, out io.Writer) error {
	bw := bufio.NewWriter(out)
	_, err := newEngine(cfg, colorEnabled(cfg.Color, out)).DumpFile(ctx, path, bw)
	if ferr := bw.Flush(); err == nil {
		err = ferr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
