package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/logflow/procmine/pkg/config"
	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/ingest"
	"github.com/logflow/procmine/pkg/ingest/sources"
	"github.com/logflow/procmine/pkg/logging"
	"github.com/logflow/procmine/pkg/metrics"
	"github.com/logflow/procmine/pkg/perf"
	"github.com/logflow/procmine/pkg/progress"
	"github.com/logflow/procmine/pkg/telemetry"
	"github.com/logflow/procmine/pkg/tui"
)

// app is the per-invocation environment of a command.
type app struct {
	cfg      *config.Config
	opts     *globalOptions
	runID    string
	logger   *slog.Logger
	metrics  metrics.Exporter
	tracing  *telemetry.Provider
	profiler *perf.Profiler
	printer  *tui.Printer
	out      io.Writer
	errOut   io.Writer

	quarantineMu   sync.Mutex
	quarantineFile *os.File
	quarantineEnc  *json.Encoder
}

// newApp loads configuration, applies flag overrides and sets up logging,
// metrics and tracing.
func newApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	mgr := config.NewManager()
	if err := mgr.Load(opts.configPath); err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	if err := applyFlags(cmd, opts, cfg); err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		opts:     opts,
		runID:    uuid.NewString(),
		profiler: perf.New(),
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
	}
	a.printer = tui.NewPrinter(a.out, cfg.Display.Color)
	a.logger = logging.New(a.errOut, logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		RunID:  a.runID,
	})

	if opts.verbose {
		a.metrics = metrics.NewLogMetrics(a.logger)
	} else {
		a.metrics = metrics.NewNoopMetrics()
	}

	otlp := telemetry.DefaultOTLPConfig(cfg.Telemetry.ServiceName)
	otlp.Enabled = cfg.Telemetry.Enabled
	otlp.Endpoint = cfg.Telemetry.Endpoint
	otlp.InsecureTLS = cfg.Telemetry.Insecure
	otlp.SamplingRatio = cfg.Telemetry.SamplingRatio
	otlp.ServiceVersion = version
	otlp.RunID = a.runID
	tp, err := telemetry.Init(cmd.Context(), otlp)
	if err != nil {
		return nil, err
	}
	a.tracing = tp

	if opts.quarantine != "" {
		f, err := os.Create(opts.quarantine)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeFilePermission, "failed to create quarantine file").
				WithContext("path", opts.quarantine)
		}
		a.quarantineFile = f
		a.quarantineEnc = json.NewEncoder(f)
	}

	a.logger.Debug("configuration loaded", "files", mgr.GetPaths(), "version", version)
	return a, nil
}

// applyFlags overrides configuration with flags set on the command line.
func applyFlags(cmd *cobra.Command, opts *globalOptions, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("prefix-scale") {
		cfg.Ingest.PrefixScale = opts.prefixScale
	}
	if flags.Changed("error-policy") {
		cfg.Ingest.ErrorPolicy = opts.errorPolicy
	}
	if flags.Changed("max-errors") {
		cfg.Ingest.MaxErrors = opts.maxErrors
	}
	if opts.quarantine != "" && !flags.Changed("error-policy") {
		cfg.Ingest.ErrorPolicy = ingest.ErrorPolicyQuarantine.String()
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	} else if opts.verbose {
		cfg.Logging.Level = "info"
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}
	if opts.noProgress {
		cfg.Display.Progress = false
	}
	if opts.noColor {
		cfg.Display.Color = false
	}
	return cfg.Validate()
}

// close flushes metrics and spans and closes the quarantine file.
func (a *app) close() error {
	var errs errors.MultiError
	errs.Add(a.metrics.Flush())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errs.Add(a.tracing.Shutdown(ctx))

	if a.quarantineFile != nil {
		errs.Add(a.quarantineFile.Close())
	}
	return errs.Combined()
}

// run wraps a command body with environment setup, a root span and cleanup.
func run(opts *globalOptions, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, opts)
		if err != nil {
			return err
		}

		ctx, span := telemetry.Start(cmd.Context(), "procmine."+cmd.Name(),
			telemetry.Attr("run_id", a.runID))
		err = fn(ctx, a, args)
		telemetry.End(span, err)

		if cerr := a.close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			a.logger.Debug("command failed", "command", cmd.Name(), "code", errors.GetCode(err), "error", err)
		}
		return err
	}
}

// progress returns a progress callback for a phase and a func to call when
// the phase ends. Terminals get a bar; other writers get a plain text bar.
func (a *app) progress(desc string) (progress.Func, func()) {
	if !a.cfg.Display.Progress {
		return nil, func() {}
	}
	if f, ok := a.errOut.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return tui.NewProgressBar(a.errOut, desc), func() { tui.ClearLine(a.errOut) }
	}
	return tui.NewTextProgress(a.errOut), func() {}
}

func (a *app) sourcesConfig() sources.Config {
	return sources.Config{
		S3: sources.S3Config{
			Region:       a.cfg.Sources.S3.Region,
			Endpoint:     a.cfg.Sources.S3.Endpoint,
			UsePathStyle: a.cfg.Sources.S3.PathStyle,
		},
		HTTPTimeout: a.cfg.Sources.HTTPTimeout,
	}
}

// quarantineRecord is one line of the quarantine file.
type quarantineRecord struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	Raw    string `json:"raw"`
	Error  string `json:"error"`
}

func (a *app) quarantineWriter(source string) func(ingest.ErrorRecord) error {
	if a.quarantineEnc == nil {
		return nil
	}
	return func(rec ingest.ErrorRecord) error {
		a.quarantineMu.Lock()
		defer a.quarantineMu.Unlock()
		return a.quarantineEnc.Encode(quarantineRecord{
			Source: source,
			Line:   rec.Line,
			Raw:    rec.Raw,
			Error:  rec.Message(),
		})
	}
}
