// Package main is the entry point for revscript.
//
// revscript loads Lua scripts and raises a speech event for every line read
// from stdin. Lines have the form "name: text"; the speaker is spawned on
// first use.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dshills/revscript/internal/app"
	"github.com/dshills/revscript/internal/config"
	"github.com/dshills/revscript/internal/logging"
	"github.com/dshills/revscript/internal/telemetry"
	"github.com/dshills/revscript/internal/world"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	scripts    string
	class      string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	if opts.scripts != "" {
		cfg.Scripts.Paths = strings.Split(opts.scripts, ",")
	}

	class, err := parseClass(opts.class)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	log := logging.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("tracing disabled")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error().Err(err).Msg("flush traces")
		}
	}()

	application, err := app.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	if _, err := application.LoadScripts(ctx); err != nil {
		log.Warn().Err(err).Msg("some scripts failed to load")
	}

	if err := serve(ctx, application, class, os.Stdin, os.Stdout, log); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// serve raises one speech event per input line and prints the outcome.
func serve(ctx context.Context, a *app.App, class world.SpeakClass, in io.Reader, out io.Writer, log zerolog.Logger) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		name, text, ok := parseLine(scanner.Text())
		if !ok {
			log.Warn().Str("line", scanner.Text()).Msg("expected \"name: text\"")
			continue
		}

		e, handled, err := a.Say(ctx, a.Creature(name), class, "", text)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s [%s] handled=%t: %s\n", name, e.Class, handled, e.Text)
	}
	return scanner.Err()
}

// parseLine splits "name: text".
func parseLine(line string) (name, text string, ok bool) {
	name, text, ok = strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(text), true
}

func parseClass(name string) (world.SpeakClass, error) {
	for _, c := range world.SpeakClasses {
		if strings.EqualFold(c.String(), name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown speak class %q", name)
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.scripts, "scripts", "", "Comma separated script directories (overrides config)")
	flag.StringVar(&opts.class, "class", "say", "Speak class of raised events")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "revscript - Lua event scripting for creature speech\n\n")
		fmt.Fprintf(os.Stderr, "Usage: revscript [options] < lines\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  echo 'Guard: hello' | revscript -scripts ./scripts\n")
		fmt.Fprintf(os.Stderr, "  revscript -class yell -config revscript.yaml\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("revscript %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	return opts
}
