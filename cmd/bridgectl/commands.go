package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/horizenlabs/evmbridge/interop"
	"github.com/horizenlabs/evmbridge/lib"
)

var (
	scriptFlag = &cli.StringFlag{
		Name:  "script",
		Usage: "file with one `method [json-args]` invocation per line",
	}
	callbackLibFlag = &cli.StringFlag{
		Name:  "callback-lib",
		Usage: "shared library that answers callbacks from the service",
	}
	callbackSymbolFlag = &cli.StringFlag{
		Name:  "callback-symbol",
		Usage: "callback function exported by --callback-lib",
		Value: "bridge_callback",
	}
	releaseSymbolFlag = &cli.StringFlag{
		Name:  "release-symbol",
		Usage: "function exported by --callback-lib that frees callback results",
	}

	methodsCommand = &cli.Command{
		Name:   "methods",
		Usage:  "list the invokable service methods",
		Action: listMethods,
	}
	invokeCommand = &cli.Command{
		Name:      "invoke",
		Usage:     "invoke a service method",
		ArgsUsage: "<method> [json-args]",
		Flags:     []cli.Flag{scriptFlag, callbackLibFlag, callbackSymbolFlag, releaseSymbolFlag},
		Action:    invoke,
	}
	configCommand = &cli.Command{
		Name:   "config",
		Usage:  "print the effective configuration",
		Action: dumpConfig,
	}
)

func listMethods(ctx *cli.Context) error {
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Method", "Parameter", "Result", "Error"})
	for _, m := range interop.Methods(lib.New(nil)) {
		hasErr := ""
		if m.HasError {
			hasErr = "yes"
		}
		table.Append([]string{m.Name, m.Param, m.Result, hasErr})
	}
	table.Render()
	return nil
}

type scriptCall struct {
	method string
	args   string
}

// parseScript reads one invocation per line. Empty lines and lines starting
// with # are skipped.
func parseScript(r io.Reader) ([]scriptCall, error) {
	var calls []scriptCall
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		method, args, _ := strings.Cut(line, " ")
		calls = append(calls, scriptCall{method: method, args: strings.TrimSpace(args)})
	}
	return calls, scanner.Err()
}

func invoke(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	var calls []scriptCall
	switch {
	case ctx.IsSet(scriptFlag.Name):
		if ctx.NArg() > 0 {
			return errors.New("--script cannot be combined with a method argument")
		}
		f, err := os.Open(ctx.String(scriptFlag.Name))
		if err != nil {
			return err
		}
		defer f.Close()
		if calls, err = parseScript(f); err != nil {
			return err
		}
	case ctx.NArg() == 0 || ctx.NArg() > 2:
		return fmt.Errorf("usage: %s %s", ctx.Command.Name, ctx.Command.ArgsUsage)
	default:
		calls = []scriptCall{{method: ctx.Args().Get(0), args: ctx.Args().Get(1)}}
	}

	if path := ctx.String(callbackLibFlag.Name); path != "" {
		unload, err := loadCallbackLibrary(path, ctx.String(callbackSymbolFlag.Name), ctx.String(releaseSymbolFlag.Name))
		if err != nil {
			return err
		}
		defer unload()
	}

	service := lib.New(cfg)
	defer service.Close()

	failed := 0
	for _, call := range calls {
		res := service.Invoke(call.method, call.args)
		if res == "" {
			res = "ok"
		} else if resp := decode(res); resp.Error != "" {
			failed++
		}
		fmt.Fprintf(ctx.App.Writer, "%s: %s\n", call.method, res)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d invocations failed", failed, len(calls))
	}
	return nil
}

func decode(res string) interop.Response {
	var resp interop.Response
	if err := interop.Deserialize(res, &resp); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return cfg.Encode(ctx.App.Writer)
}
