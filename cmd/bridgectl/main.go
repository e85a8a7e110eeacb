// Command bridgectl drives the bridge service in-process, which is handy to
// try out invocations without a host runtime.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/horizenlabs/evmbridge/config"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level (trace, debug, info, warn, error, crit), overrides the configuration",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "bridgectl",
		Usage: "invoke bridge service methods from the command line",
		Flags: []cli.Flag{configFlag, verbosityFlag},
		Before: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			return setupLogging(ctx, cfg, ctx.App.ErrWriter)
		},
		Commands: []*cli.Command{
			methodsCommand,
			invokeCommand,
			configCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Fatal:", err)
		os.Exit(1)
	}
}

// loadConfig returns the configuration selected by --config, or the defaults.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	if path := ctx.String(configFlag.Name); path != "" {
		return config.Load(path)
	}
	cfg := config.Defaults
	return &cfg, nil
}

func setupLogging(ctx *cli.Context, cfg *config.Config, output io.Writer) error {
	level := cfg.Log.Level
	if ctx.IsSet(verbosityFlag.Name) {
		level = ctx.String(verbosityFlag.Name)
	}
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid verbosity: %w", err)
	}

	useColor := false
	if output == nil || output == os.Stderr {
		fd := os.Stderr.Fd()
		useColor = (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("TERM") != "dumb"
		output = os.Stderr
		if useColor {
			output = colorable.NewColorableStderr()
		}
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(output, lvl, useColor)))
	return nil
}
