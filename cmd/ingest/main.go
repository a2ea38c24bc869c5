// Command ingest pulls hourly weather from Open-Meteo and earthquakes from the
// USGS feed and upserts them into PostgreSQL. Runs are triggered externally,
// either by invoking a one-shot subcommand from cron or by POSTing to the
// trigger endpoints of a long-running "serve" process.
//
// Usage:
//
//	ingest [-dry-run] weather       fetch and upsert hourly weather once
//	ingest [-dry-run] earthquakes   fetch and upsert the past-day earthquake feed once
//	ingest [-dry-run] all           both of the above
//	ingest migrate                  apply pending schema migrations and exit
//	ingest serve                    serve /healthz, /readyz, /metrics and POST /ingest/{weather,earthquakes}
//
// Flags may also follow the command, as in "ingest weather -dry-run".
//
// Configuration is read from PIPELINE_* environment variables and an optional .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	httpadapter "github.com/couchcryptid/weather-quake-ingest/internal/adapter/http"
	"github.com/couchcryptid/weather-quake-ingest/internal/app"
	"github.com/couchcryptid/weather-quake-ingest/internal/config"
	"github.com/couchcryptid/weather-quake-ingest/internal/observability"
	"github.com/couchcryptid/weather-quake-ingest/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	args, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}
	command := args.command

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if args.dryRun {
		cfg.DryRun = true
	}
	if command == "migrate" {
		// migrate is an explicit request; never skip it.
		cfg.AutoMigrate = false
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	switch command {
	case "migrate":
		if err := a.Migrate(ctx); err != nil {
			logger.Error("migration failed", "error", err)
			return 1
		}
		return 0
	case "serve":
		return serve(ctx, cfg, a, logger)
	default:
		return runOnce(ctx, command, a, logger)
	}
}

func runOnce(ctx context.Context, command string, a *app.App, logger *slog.Logger) int {
	var (
		results []pipeline.Result
		err     error
	)
	switch command {
	case "weather":
		var res pipeline.Result
		res, err = a.IngestWeather(ctx)
		results = append(results, res)
	case "earthquakes":
		var res pipeline.Result
		res, err = a.IngestEarthquakes(ctx)
		results = append(results, res)
	case "all":
		results, err = a.IngestAll(ctx)
	}

	// Push even on failure so the failure counter reaches the gateway.
	if perr := a.PushMetrics(context.WithoutCancel(ctx), "ingest_"+command); perr != nil {
		logger.Warn("push metrics failed", "error", perr)
	}

	if err != nil {
		logger.Error("ingest failed", "command", command, "error", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		logger.Error("write result", "error", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, a *app.App, logger *slog.Logger) int {
	srv := httpadapter.NewServer(cfg.HTTPAddr, a, a, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	code := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("http server error", "error", err)
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return code
}

// cliArgs is the parsed command line.
type cliArgs struct {
	command string
	dryRun  bool
}

var commands = []string{"weather", "earthquakes", "all", "migrate", "serve"}

// parseArgs accepts flags before or after the command, so both
// "ingest -dry-run weather" and "ingest weather -dry-run" work. Problems are
// reported on out together with the usage text.
func parseArgs(argv []string, out io.Writer) (cliArgs, error) {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(out)
	dryRun := fs.Bool("dry-run", false, "fetch and validate without writing (overrides PIPELINE_DRY_RUN)")
	fs.Usage = func() {
		fmt.Fprintf(out, "usage: ingest [-dry-run] <%s> [-dry-run]\n", strings.Join(commands, "|"))
		fs.PrintDefaults()
	}

	if err := fs.Parse(argv); err != nil {
		return cliArgs{}, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return cliArgs{}, errors.New("missing command")
	}
	command := fs.Arg(0)
	if !slices.Contains(commands, command) {
		fmt.Fprintf(out, "unknown command %q\n", command)
		fs.Usage()
		return cliArgs{}, fmt.Errorf("unknown command %q", command)
	}

	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return cliArgs{}, err
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(out, "unexpected arguments %q\n", fs.Args())
		fs.Usage()
		return cliArgs{}, fmt.Errorf("unexpected arguments %q", fs.Args())
	}
	return cliArgs{command: command, dryRun: *dryRun}, nil
}
