// Command publisher runs the scheduled publication sweep and the storage
// quota check. It is meant to be invoked by cron once per minute, or left
// running with the daemon subcommand.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-publisher/internal/app"
	"github.com/noah-isme/lms-publisher/internal/models"
	"github.com/noah-isme/lms-publisher/pkg/config"
	"github.com/noah-isme/lms-publisher/pkg/logger"
)

const usage = `usage: publisher <command> [flags]

commands:
  sweep          publish due content and send notifications
  storage-check  compare storage usage with the alert threshold
  usage          print current storage usage
  migrate        apply database migrations
  daemon         run sweep and storage-check on an interval
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	command, rest := args[0], args[1:]
	switch command {
	case "sweep", "storage-check", "usage", "migrate", "daemon":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return 2
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	nowFlag := fs.String("now", "", "reference time (RFC3339), defaults to the current time")
	refresh := fs.Bool("refresh", false, "bypass the usage cache")
	interval := fs.Duration("interval", 0, "daemon tick interval, defaults to PUBLISHER_INTERVAL")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	now := time.Now().UTC()
	if *nowFlag != "" {
		parsed, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -now: %v\n", err)
			return 2
		}
		now = parsed.UTC()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}
	logr, err := logger.New(cfg, "publisher")
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Error("setup failed", zap.Error(err))
		return 1
	}
	defer container.Close()

	switch command {
	case "sweep":
		report := container.Scheduler.RunSweep(ctx, now)
		printJSON(out, report)
		if report.HasFailures() {
			return 1
		}
	case "storage-check":
		decision := container.Storage.CheckAndAlert(ctx, now)
		printJSON(out, decision)
		return checkExitCode(decision)
	case "usage":
		get := container.Storage.GetUsage
		if *refresh {
			get = container.Storage.ForceRefresh
		}
		snapshot, err := get(ctx)
		if err != nil {
			logr.Error("compute usage failed", zap.Error(err))
			return 1
		}
		printJSON(out, snapshot)
	case "migrate":
		if err := container.Migrator.Up(ctx); err != nil {
			logr.Error("migration failed", zap.Error(err))
			return 1
		}
		version, err := container.Migrator.Version(ctx)
		if err != nil {
			logr.Error("read migration version failed", zap.Error(err))
			return 1
		}
		fmt.Fprintf(out, "schema version %d\n", version)
	case "daemon":
		every := *interval
		if every <= 0 {
			every = cfg.Publisher.Interval
		}
		container.Start(ctx)
		app.NewDaemon(container.Scheduler, container.Storage, every, logr.Named("daemon")).Run(ctx)
	}
	return 0
}

func checkExitCode(decision models.AlertDecision) int {
	if decision.Failed() {
		return 1
	}
	return 0
}

func printJSON(out io.Writer, v interface{}) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
