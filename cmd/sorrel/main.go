package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sambeau/sorrel/config"
	"github.com/sambeau/sorrel/pkg/sorrel/astdoc"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
	"github.com/sambeau/sorrel/pkg/sorrel/repl"
	"github.com/sambeau/sorrel/pkg/sorrel/sorrel"
	"github.com/sambeau/sorrel/pkg/sorrel/trace"
)

// Version is set at compile time via -ldflags
var Version = "0.1.0"

// Exit codes
const (
	exitOK    = 0
	exitError = 1 // evaluation or document errors
	exitUsage = 2 // bad flags, unreadable files, bad configuration
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	if len(args) == 0 {
		printHelp(stdout)
		return exitUsage
	}

	switch args[0] {
	case "run":
		return runCommand(ctx, args[1:], stdout, stderr, getenv)
	case "check":
		return checkCommand(args[1:], stdout, stderr)
	case "describe":
		return describeCommand(args[1:], stdout, stderr)
	case "version", "-V", "--version":
		fmt.Fprintf(stdout, "sorrel version %s\n", Version)
		return exitOK
	case "help", "-h", "--help":
		printHelp(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		printHelp(stderr)
		return exitUsage
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `sorrel - Sorrel AST evaluator version %s

Usage:
  sorrel run [options] <document>...
  sorrel check <document>...
  sorrel describe <kind>

Commands:
  run                   Evaluate AST documents (.yaml, .yaml.gz, .yaml.zst)
  check                 Decode documents without evaluating them
  describe <kind>       List the methods and properties of a value kind

Run Options:
  -c, --config <path>   Configuration file (default: $SORREL_CONFIG, ./sorrel.yaml)
  -p, --profile <name>  Apply a named configuration profile
  --timeout <duration>  Stop evaluations that run longer (e.g. 2s)
  --trace               Record block events in the trace store
  --metrics             Print block counts to stderr after each run
  --step                Pause before each block in the step console
  -w, --watch           Re-run documents when they change
  -v, --verbose         Log engine diagnostics at debug level

Examples:
  sorrel run invoice.yaml
  sorrel run -p ci --timeout 5s build/*.yaml.gz
  sorrel run --step invoice.yaml
  sorrel check build/*.yaml.zst
  sorrel describe string
`, Version)
}

type runOptions struct {
	configPath string
	profile    string
	timeout    string
	trace      bool
	metrics    bool
	step       bool
	watch      bool
	verbose    bool
}

func parseRunFlags(args []string, stderr io.Writer) (*runOptions, []string, error) {
	opts := &runOptions{}
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "c", "", "Configuration file")
	fs.StringVar(&opts.configPath, "config", "", "Configuration file")
	fs.StringVar(&opts.profile, "p", "", "Configuration profile")
	fs.StringVar(&opts.profile, "profile", "", "Configuration profile")
	fs.StringVar(&opts.timeout, "timeout", "", "Evaluation timeout")
	fs.BoolVar(&opts.trace, "trace", false, "Record block events")
	fs.BoolVar(&opts.metrics, "metrics", false, "Print block counts")
	fs.BoolVar(&opts.step, "step", false, "Pause before each block")
	fs.BoolVar(&opts.watch, "w", false, "Re-run on change")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run on change")
	fs.BoolVar(&opts.verbose, "v", false, "Debug diagnostics")
	fs.BoolVar(&opts.verbose, "verbose", false, "Debug diagnostics")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() == 0 {
		return nil, nil, errors.New("run requires at least one document")
	}
	return opts, fs.Args(), nil
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(opts *runOptions, getenv func(string) string) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath, getenv)
	if err != nil {
		return nil, err
	}
	if opts.profile != "" {
		if err := config.ApplyProfile(cfg, opts.profile); err != nil {
			return nil, err
		}
	}
	if opts.timeout != "" {
		cfg.Limits.Timeout = opts.timeout
	}
	if opts.trace {
		cfg.Trace.Enabled = true
		if cfg.Trace.DSN == "" {
			cfg.Trace.DSN = filepath.Join(cfg.BaseDir, "sorrel_trace.db")
		}
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, config.Validate(cfg)
}

// newRuntime builds a runtime whose standard streams are the command's.
func newRuntime(cfg *config.Config, stdout, stderr io.Writer) (*sorrel.Runtime, error) {
	var opts []sorrel.Option
	if cfg.Logging.Script.Output == "stdout" {
		opts = append(opts, sorrel.WithLogger(sorrel.WriterLogger(stdout)))
	}
	if cfg.Logging.Output == "stderr" {
		diag, err := sorrel.DiagnosticsTo(stderr, cfg.Logging)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sorrel.WithDiagnostics(diag))
	}
	return sorrel.New(cfg, opts...)
}

func runCommand(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	opts, files, err := parseRunFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitUsage
	}

	cfg, err := loadConfig(opts, getenv)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	rt, err := newRuntime(cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer rt.Close()

	var console *repl.Console
	if opts.step {
		var closeConsole func()
		console, closeConsole = repl.Start(stdout)
		defer closeConsole()
	}

	runFile := func(path string) int {
		var hooks []evaluator.Hook
		var metrics *trace.Metrics
		if console != nil {
			hooks = append(hooks, console)
		}
		if opts.metrics {
			metrics = trace.NewMetrics()
			hooks = append(hooks, metrics)
		}

		code := executeFile(ctx, rt, path, stdout, stderr, hooks...)
		if metrics != nil {
			fmt.Fprintf(stderr, "%s:\n", path)
			metrics.Report(stderr)
		}
		return code
	}

	status := exitOK
	for _, path := range files {
		if code := runFile(path); code > status {
			status = code
		}
	}
	if !opts.watch {
		return status
	}

	w, err := NewWatcher(files, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer w.Close()
	w.Run(ctx, func(path string) { runFile(path) })
	return exitOK
}

// executeFile runs one document and prints its non-null result.
func executeFile(ctx context.Context, rt *sorrel.Runtime, path string, stdout, stderr io.Writer, hooks ...evaluator.Hook) int {
	doc, err := astdoc.ReadFile(path)
	if err != nil {
		return reportError(stderr, path, err)
	}
	result, err := rt.Run(ctx, doc, hooks...)
	if err != nil {
		return reportError(stderr, path, err)
	}
	if result != nil && result.Type() != evaluator.NULL_OBJ {
		fmt.Fprintln(stdout, result.Inspect())
	}
	return exitOK
}

// reportError prints structured errors with their hints.
func reportError(stderr io.Writer, path string, err error) int {
	se, ok := serrors.As(err)
	if !ok {
		fmt.Fprintf(stderr, "Error reading %s: %v\n", path, err)
		return exitUsage
	}
	if se.Script == "" {
		se.Script = path
	}
	fmt.Fprintln(stderr, se.PrettyString())
	return exitError
}

// checkCommand decodes documents without evaluating them
func checkCommand(files []string, stdout, stderr io.Writer) int {
	if len(files) == 0 {
		fmt.Fprintln(stderr, "Error: check requires at least one document")
		return exitUsage
	}

	status := exitOK
	for _, path := range files {
		doc, err := astdoc.ReadFile(path)
		if err != nil {
			if code := reportError(stderr, path, err); code > status {
				status = code
			}
			continue
		}
		fmt.Fprintf(stdout, "%s: ok (%d statements)\n", path, len(doc.Root.Statements))
	}
	return status
}

// describeCommand implements 'sorrel describe <kind>'
func describeCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, `Usage: sorrel describe <kind>

Kinds:
  string, number, date, duration, quantity, dayofweek, array, map`)
		return exitUsage
	}

	kind := strings.ToUpper(args[0])
	if kind == "DAYOFWEEK" {
		kind = evaluator.DAY_OF_WEEK_OBJ
	}
	infos := evaluator.MethodsForType(evaluator.ObjectType(kind))
	if len(infos) == 0 {
		fmt.Fprintf(stderr, "Error: no methods for %q\n", args[0])
		return exitError
	}
	for _, m := range infos {
		fmt.Fprintf(stdout, "%-14s %-9s %s\n", m.Name, m.Arity, m.Description)
	}
	return exitOK
}
