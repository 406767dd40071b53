// Package sorrel embeds the Sorrel evaluator behind a configuration.
//
// A Runtime turns a config.Config into ready evaluation contexts: limits,
// locale, extra units, the script logger, engine diagnostics and the
// optional trace store. Each Run gets a fresh context.
package sorrel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sambeau/sorrel/config"
	"github.com/sambeau/sorrel/pkg/sorrel/astdoc"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
	"github.com/sambeau/sorrel/pkg/sorrel/trace"
)

// Runtime holds the state shared by the evaluations it runs.
type Runtime struct {
	Config      *config.Config
	Diagnostics *slog.Logger
	Logger      Logger
	Trace       *trace.Store

	units   []evaluator.UnitDef
	closers []io.Closer
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger replaces the configured script logger.
func WithLogger(l Logger) Option { return func(r *Runtime) { r.Logger = l } }

// WithDiagnostics replaces the configured diagnostics logger.
func WithDiagnostics(l *slog.Logger) Option { return func(r *Runtime) { r.Diagnostics = l } }

// New builds a runtime from cfg. The caller must Close it.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	r := &Runtime{Config: cfg}
	for _, opt := range opts {
		opt(r)
	}

	if r.Diagnostics == nil {
		diag, closer, err := NewDiagnostics(cfg.Logging)
		if err != nil {
			return nil, err
		}
		r.Diagnostics = diag
		r.closers = append(r.closers, closer)
	}
	if r.Logger == nil {
		w, closer, err := openOutput(cfg.Logging.Script.Output)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.Logger = WriterLogger(w)
		r.closers = append(r.closers, closer)
	}

	for _, u := range cfg.Units.Extra {
		r.units = append(r.units, evaluator.UnitDef{Suffix: u.Suffix, Group: u.Group, Factor: u.Factor})
	}

	if cfg.Trace.Enabled {
		store, err := trace.Open(trace.Config{
			Driver:  cfg.Trace.Driver,
			DSN:     cfg.Trace.DSN,
			Table:   cfg.Trace.Table,
			MaxRows: cfg.Trace.MaxRows,
		})
		if err != nil {
			r.Close()
			return nil, err
		}
		r.Trace = store
		r.closers = append(r.closers, store)
		r.Diagnostics.Debug("trace store opened", "driver", cfg.Trace.Driver, "table", cfg.Trace.Table)
	}
	return r, nil
}

// NewContext returns a fresh evaluation context for one script.
func (r *Runtime) NewContext(script string) (*evaluator.Context, error) {
	units := evaluator.NewUnitRegistry()
	for _, u := range r.units {
		if err := units.Register(u); err != nil {
			return nil, fmt.Errorf("registering unit %s: %w", u.Suffix, err)
		}
	}

	lim := r.Config.Limits
	ctx := evaluator.NewContext(
		evaluator.WithLimits(evaluator.Limits{
			MaxStringLength:           lim.MaxStringLength,
			MaxCallDepth:              lim.MaxCallDepth,
			AllowUndeclaredAssignment: lim.AllowUndeclaredAssignment,
			StrictConcat:              lim.StrictConcat,
		}),
		evaluator.WithLocale(r.Config.Locale),
		evaluator.WithUnits(units),
		evaluator.WithLogger(r.Logger),
		evaluator.WithDiagnostics(r.Diagnostics.With("script", script)),
	)
	ctx.Script = script
	if r.Trace != nil {
		ctx.AddHook(r.Trace)
	}
	return ctx, nil
}

// Run evaluates doc in a fresh context. The configured timeout, if any,
// bounds the evaluation together with ctx. Extra hooks are added after
// the trace store.
func (r *Runtime) Run(ctx context.Context, doc *astdoc.Document, hooks ...evaluator.Hook) (evaluator.Object, error) {
	ectx, err := r.NewContext(doc.Script)
	if err != nil {
		return nil, err
	}
	for _, h := range hooks {
		ectx.AddHook(h)
	}
	return r.Evaluate(ctx, doc, ectx)
}

// Evaluate runs doc in a context the caller prepared with NewContext.
func (r *Runtime) Evaluate(ctx context.Context, doc *astdoc.Document, ectx *evaluator.Context) (evaluator.Object, error) {
	timeout, err := r.Config.Limits.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	stop := trace.Deadline(ctx, ectx)
	defer stop()

	if r.Trace != nil {
		r.Trace.StartRun()
	}
	r.Diagnostics.Debug("evaluating", "script", doc.Script, "statements", len(doc.Root.Statements))

	result, err := evaluator.Evaluate(doc.Root, ectx)
	if err != nil {
		r.Diagnostics.Debug("evaluation failed", "script", doc.Script, "error", err)
		return nil, err
	}
	return result, nil
}

// RunFile reads an AST document from path and runs it.
func (r *Runtime) RunFile(ctx context.Context, path string, hooks ...evaluator.Hook) (evaluator.Object, error) {
	doc, err := astdoc.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, doc, hooks...)
}

// Close releases log files and the trace store.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// NewDiagnostics builds the engine's structured logger from the logging
// configuration.
func NewDiagnostics(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	w, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, err
	}
	logger, err := DiagnosticsTo(w, cfg)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return logger, closer, nil
}

// DiagnosticsTo builds a diagnostics logger writing to w, ignoring the
// configured output.
func DiagnosticsTo(w io.Writer, cfg config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q", cfg.Level)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
