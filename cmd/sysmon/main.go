package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/sysmon/internal/config"
	"codeberg.org/mutker/sysmon/internal/csvlog"
	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/logger"
	"codeberg.org/mutker/sysmon/internal/metrics"
	"codeberg.org/mutker/sysmon/internal/monitor"
	"codeberg.org/mutker/sysmon/internal/pid"
	"codeberg.org/mutker/sysmon/internal/sampler"
	"codeberg.org/mutker/sysmon/internal/ui"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	interactive := !cfg.Headless && term.IsTerminal(int(os.Stdout.Fd()))

	logOut, closeLog, err := logOutput(cfg, interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer closeLog()

	level, err := logger.ParseLevel(cfg.LogLevel.String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	logger.Init(level, logOut, logger.IsService())
	echoErrors = logOut != io.Writer(os.Stderr)
	logger.Debug().Str("config_file", cfg.ConfigFile).Msg("Config loaded")

	pidPath := cfg.PIDFile
	if pidPath == "" {
		pidPath = pid.DefaultPath()
	}
	if err := pid.Write(pidPath); err != nil {
		reportError(err, "Failed to write PID file")
		return 1
	}
	defer func() {
		if err := pid.Remove(pidPath); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	recorders, err := buildRecorders(cfg)
	if err != nil {
		reportError(err, "Failed to initialize recorders")
		return 1
	}

	sys := sampler.Init(
		sampler.WithRoots(cfg.ProcRoot, cfg.SysRoot),
		sampler.WithLogger(logger.Default()),
	)
	defer sys.Shutdown()

	mon := monitor.New(sys, logger.Default(), recorders...)
	defer func() {
		if err := mon.Close(); err != nil {
			reportError(err, "Failed to close recorders")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(ctx, cancel)

	if interactive {
		err = ui.Run(ctx, mon, cfg.Interval)
	} else {
		err = mon.Run(ctx, cfg.Interval)
	}
	if err != nil {
		reportError(err, "Error in main loop")
		return 1
	}

	logger.Info().Msg("Exiting...")

	return 0
}

// logOutput picks where logs go. The terminal UI owns the screen, so without
// a log file its logs are discarded.
func logOutput(cfg *config.Config, interactive bool) (io.Writer, func(), error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.New().Wrap(errors.ErrOpenLogFile, err).WithData(cfg.LogFile)
		}
		return f, func() { f.Close() }, nil
	}
	if interactive {
		return io.Discard, func() {}, nil
	}
	return os.Stderr, func() {}, nil
}

func buildRecorders(cfg *config.Config) ([]monitor.Recorder, error) {
	var recorders []monitor.Recorder

	if cfg.CSVFile != "" {
		stats, err := csvlog.ParseStats(cfg.Stats)
		if err != nil {
			return nil, err
		}
		l, err := csvlog.Create(afero.NewOsFs(), cfg.CSVFile, stats)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, l)
		logger.Info().Str("path", cfg.CSVFile).Int("columns", len(stats)).Msg("CSV log enabled")
	}

	collector, err := metrics.NewService(metrics.Config{
		DBPath:       cfg.MetricsDB,
		BatchSize:    cfg.MetricsBatchSize,
		BatchTimeout: cfg.MetricsBatchTimeout,
		Enabled:      cfg.Metrics,
	}, logger.Default())
	if err != nil {
		for _, r := range recorders {
			r.Close()
		}
		return nil, err
	}
	recorders = append(recorders, collector)

	return recorders, nil
}

// echoErrors is set when logs do not reach the terminal.
var echoErrors bool

func reportError(err error, msg string) {
	var coded errors.Error
	if errors.As(err, &coded) {
		logger.ErrorWithCode(coded).Msg(msg)
	} else {
		logger.Error().Err(err).Msg(msg)
	}
	if echoErrors {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	}
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}
