package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/logrouter/internal/application"
	"github.com/eugenenazirov/logrouter/internal/config"
	"github.com/eugenenazirov/logrouter/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "logrouter: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	kingpinApp := kingpin.New("logrouter", "Tiered log router - writes each record to exactly one severity-band file")
	kingpinApp.UsageWriter(stdout)
	routerFile := kingpinApp.Flag("config", "Path to YAML routing file").String()
	mode := kingpinApp.Flag("mode", "Log directory mode: package or config").String()
	installRoot := kingpinApp.Flag("install-root", "Root directory used in package mode").String()
	sourceFile := kingpinApp.Flag("source", "Path to source.ini").String()
	rateFlag := kingpinApp.Flag("rate", "Records per second for emit (set 0 to disable)").Default("-1").Float64()
	burstFlag := kingpinApp.Flag("burst", "Burst capacity for emit (values below 1 act as 1)").Default("-1").Int()
	verbose := kingpinApp.Flag("verbose", "Print router diagnostics at debug level").Bool()

	emitCmd := kingpinApp.Command("emit", "Write records through a named logger")
	emitLogger := emitCmd.Flag("logger", "Logger name (empty for root)").Default("data").String()
	emitLevel := emitCmd.Flag("level", "Record severity").Default("info").String()
	emitCount := emitCmd.Flag("count", "Number of records").Default("1").Int()
	emitMessage := emitCmd.Arg("message", "Record text").Required().Strings()

	pathsCmd := kingpinApp.Command("paths", "Print each file sink and its resolved path")
	sourcesCmd := kingpinApp.Command("sources", "Print connection strings from source.ini")

	command, err := kingpinApp.Parse(args)
	if err != nil {
		return err
	}

	overrides := &config.CLIOverrides{
		InstallRoot: installRoot,
		DirMode:     mode,
		RouterFile:  routerFile,
		SourceFile:  sourceFile,
	}

	if *rateFlag >= 0 {
		overrides.EmitRPS = rateFlag
	}

	if *burstFlag >= 0 {
		overrides.EmitBurst = burstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	diag, err := logging.NewBootstrap(*verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = diag.Sync()
	}()

	if command == sourcesCmd.FullCommand() {
		src, err := config.LoadSource(cfg.SourceFile)
		if err != nil {
			return err
		}
		if _, err := src.Redis.Options(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "postgres\t%s\n", src.Postgres.DSN())
		fmt.Fprintf(stdout, "redis\t%s\n", src.Redis.URL())
		return nil
	}

	app, err := application.New(cfg, diag)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			diag.Warn("failed to close log router", zap.Error(err))
		}
	}()

	switch command {
	case pathsCmd.FullCommand():
		for _, line := range app.Paths() {
			fmt.Fprintln(stdout, line)
		}
		return nil

	case emitCmd.FullCommand():
		level, err := logging.ParseSeverity(*emitLevel)
		if err != nil {
			return err
		}

		ctx, stop := notifyContext(context.Background())
		defer stop()

		n, err := app.Emit(ctx, application.EmitRequest{
			Logger:  *emitLogger,
			Level:   level,
			Message: strings.Join(*emitMessage, " "),
			Count:   *emitCount,
		})
		if err != nil {
			if ctx.Err() != nil {
				diag.Info("emit interrupted", zap.Int("written", n))
				return nil
			}
			return err
		}
		diag.Debug("emit finished", zap.Int("written", n))
		return nil
	}

	return fmt.Errorf("unknown command %q", command)
}

// notifyContext cancels the returned context on SIGINT or SIGTERM.
func notifyContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(quit)
		cancel()
	}
}
