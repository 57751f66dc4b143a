package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/subcommands"

	"github.com/odyssey-erp/fiscalreg/cmd/fiscalreg/cli"
	"github.com/odyssey-erp/fiscalreg/internal/app"
)

// openRuntime wires the registry components. Logs go to logOut so commands
// that print data keep stdout clean.
func openRuntime(ctx context.Context, cfg *app.Config, logOut io.Writer) (*app.Runtime, error) {
	return app.NewRuntime(ctx, cfg, app.NewLoggerTo(logOut, cfg))
}

type serveCmd struct {
	cfg *app.Config
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the registry HTTP API" }
func (*serveCmd) Usage() string {
	return `fiscalreg serve

  Starts the JSON API and /metrics on APP_ADDR using the storage backend
  selected by STORE_BACKEND. Stops gracefully on SIGINT or SIGTERM.
`
}

func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := openRuntime(ctx, c.cfg, os.Stdout)
	if err != nil {
		slog.Default().Error("start runtime", slog.Any("error", err))
		return subcommands.ExitFailure
	}
	defer rt.Close()

	if err := cli.Serve(ctx, rt.Server(), rt.Config.AppShutdownTimeout, rt.Logger); err != nil {
		rt.Logger.Error("http server", slog.Any("error", err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type exportCmd struct {
	cfg    *app.Config
	output string
	dir    string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export every company and fiscal year as CSV" }
func (*exportCmd) Usage() string {
	return `fiscalreg export [-o <file>|-o -] [-dir <directory>]

  Writes the registry as UTF-8 CSV with a byte-order mark. Without -o the
  file is named 법인정보_YYYYMMDD.csv. Exits 3 when the registry is empty.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, or - for stdout.")
	f.StringVar(&c.dir, "dir", ".", "Directory for the default file name.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := openRuntime(ctx, c.cfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()
	return subcommands.ExitStatus(cli.ExportCommand(ctx, rt.Service, cli.ExportOptions{Output: c.output, Dir: c.dir}))
}

type checkRegNoCmd struct {
	cfg       *app.Config
	companyID string
	json      bool
}

func (*checkRegNoCmd) Name() string     { return "check-regno" }
func (*checkRegNoCmd) Synopsis() string { return "validate corporate registration numbers" }
func (*checkRegNoCmd) Usage() string {
	return `fiscalreg check-regno [-company <id>] [-json] <number>...

  Runs the registration number rules, including the duplicate check against
  stored companies. Exits 10 when any number is rejected.
`
}

func (c *checkRegNoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.companyID, "company", "", "Company ID excluded from the duplicate check.")
	f.BoolVar(&c.json, "json", false, "Emit one JSON object per number.")
}

func (c *checkRegNoCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := openRuntime(ctx, c.cfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()
	return subcommands.ExitStatus(cli.CheckRegNoCommand(ctx, rt.Service.Validator(), cli.CheckRegNoOptions{
		Numbers:    f.Args(),
		CompanyID:  c.companyID,
		JSONOutput: c.json,
	}))
}

type seedCmd struct {
	cfg   *app.Config
	reset bool
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "load sample companies and fiscal years" }
func (*seedCmd) Usage() string {
	return `fiscalreg seed [-reset]

  Saves a small set of sample companies through the validating service.
  Existing companies are skipped; -reset clears the registry first.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.reset, "reset", false, "Clear every company and fiscal year before seeding.")
}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := openRuntime(ctx, c.cfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()
	return subcommands.ExitStatus(cli.SeedCommand(ctx, rt.Store, rt.Service, cli.SeedOptions{Reset: c.reset}))
}
