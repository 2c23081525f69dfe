// Package main provides the zfetch command-line tool for displaying system
// information beside a colored ASCII logo of the running distribution.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"zfetch/ascii"
	"zfetch/config"
	"zfetch/render"
	"zfetch/sysinfo"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// debugEnv enables debug logging when set to a non-empty value other than "0".
const debugEnv = "ZFETCH_DEBUG"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command line.
type options struct {
	configPath string
	debug      bool
	noColor    bool
	gap        int
	width      int
	autoWidth  bool
	logo       string
	timeout    time.Duration
	listLogos  bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (options, *pflag.FlagSet, error) {
	var opts options
	flagSet := pflag.NewFlagSet("zfetch", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to a .json, .jsonc or .yaml config file (env "+config.EnvVar+")")
	flagSet.BoolVarP(&opts.debug, "debug", "d", false, "log probe activity to stderr (env "+debugEnv+")")
	flagSet.BoolVar(&opts.noColor, "no-color", false, "disable color output")
	flagSet.IntVar(&opts.gap, "gap", render.DefaultGap, "number of spaces between logo and info")
	flagSet.IntVar(&opts.width, "width", render.DefaultTermWidth, "terminal width to center output in")
	flagSet.BoolVar(&opts.autoWidth, "auto-width", false, "center in the detected terminal width")
	flagSet.StringVar(&opts.logo, "logo", "", "logo id to display instead of the detected one")
	flagSet.DurationVar(&opts.timeout, "timeout", config.DefaultProbeTimeout, "bound on each probe (overrides probe_timeout)")
	flagSet.BoolVar(&opts.listLogos, "list-logos", false, "list bundled logo ids and exit")
	flagSet.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		return opts, flagSet, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return opts, flagSet, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, flagSet, nil
}

// run executes one invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, flagSet, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "zfetch %s\n", version)
		return 0
	}
	if opts.listLogos {
		fmt.Fprintln(stdout, strings.Join(ascii.IDs(), "\n"))
		return 0
	}

	level := slog.LevelWarn
	if opts.debug || debugEnabled(os.Getenv(debugEnv)) {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	cfg, source, err := config.Discover(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if source == "" {
		slog.Debug("using default config")
	} else {
		slog.Debug("loaded config", "path", source)
	}
	if flagSet.Changed("timeout") {
		cfg.ProbeTimeout = opts.timeout
	}

	snap := sysinfo.NewGatherer(cfg.ProbeTimeout).Gather(context.Background(), cfg)

	logoID := snap.DistroID
	if opts.logo != "" {
		logoID = opts.logo
	}
	logo := ascii.Colorize(ascii.Logo(logoID), ascii.ParsePalette(cfg.LogoColor))

	r := render.New(cfg)
	r.Gap = opts.gap
	r.TermWidth = opts.width
	if opts.autoWidth {
		if w, ok := terminalWidth(stdout); ok {
			r.TermWidth = w
		}
	}
	r.Color = !opts.noColor && !termenv.EnvNoColor()

	if err := r.Render(stdout, logo, snap); err != nil {
		slog.Debug("write failed", "error", err)
		return 1
	}
	return 0
}

func debugEnabled(value string) bool {
	return value != "" && value != "0"
}

// terminalWidth reports the column count of w when it is a terminal.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 0, false
	}
	return width, true
}
