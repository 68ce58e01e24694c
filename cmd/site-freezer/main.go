package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"site-freezer/pkg/config"
	"site-freezer/pkg/fetch"
	"site-freezer/pkg/freezer"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsageTo(os.Stdout)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "freeze":
		os.Exit(runFreeze(os.Args[2:]))
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ExitOnError)
		configFile := fs.String("config", "config.yaml", "Path to config file")
		fs.Parse(os.Args[2:])
		os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
	case "version":
		fmt.Printf("site-freezer %s\n", version)
	case "-h", "--help", "help":
		printUsageTo(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsageTo(os.Stderr)
		os.Exit(1)
	}
}

func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `site-freezer - freeze a dynamically-served application into static files

Usage:
  site-freezer <command> [options]

Commands:
  freeze      Crawl the application and write the static tree
  validate    Validate configuration file
  version     Show version info

Run 'site-freezer <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file.
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// setupLogger builds the base logrus entry at the requested level.
func setupLogger(level string) (*logrus.Entry, error) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	logger := logrus.New()
	logger.SetLevel(parsed)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logrus.NewEntry(logger), nil
}

// stringSlice collects repeated flag values.
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// doValidate checks the config file and reports the outcome. Returns the
// process exit code.
func doValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := cfg.Validate()
	for _, warning := range warnings {
		fmt.Fprintf(stdout, "Warning: %s\n", warning)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Configuration valid: prefix=%s output=%s workers=%d\n",
		cfg.Prefix, cfg.Output, cfg.NumWorkers)
	return 0
}

func runFreeze(args []string) int {
	fs := flag.NewFlagSet("freeze", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	target := fs.String("target", "", "Server to fetch from when it differs from the prefix, e.g. http://localhost:5000")
	prefixFlag := fs.String("prefix", "", "Override the configured site prefix")
	outputFlag := fs.String("output", "", "Override the configured output directory")
	reportJSON := fs.String("report-json", "", "Write the full report as JSON to this path")
	reportCSV := fs.String("report-csv", "", "Write the failure list as CSV to this path")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	var extraPages stringSlice
	fs.Var(&extraPages, "extra-page", "Seed page without any inbound link (repeatable)")
	fs.Parse(args)

	log, err := setupLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Errorf("Loading config: %v", err)
		return 1
	}
	if *prefixFlag != "" {
		cfg.Prefix = *prefixFlag
	}
	if *outputFlag != "" {
		cfg.Output = *outputFlag
	}
	cfg.ExtraPages = append(cfg.ExtraPages, extraPages...)

	warnings, err := cfg.Validate()
	for _, warning := range warnings {
		log.Warn(warning)
	}
	if err != nil {
		log.Errorf("Config validation failed: %v", err)
		return 1
	}

	// The CLI freezes a server already running at the prefix URL (or at
	// -target when the published URL space differs from the dev server);
	// library users wrap their http.Handler with fetch.NewHandlerInvoker.
	var invoker fetch.Invoker = fetch.NewClientInvoker(nil, log)
	if *target != "" {
		invoker, err = fetch.NewRewriteInvoker(invoker, *target)
		if err != nil {
			log.Errorf("Invalid target: %v", err)
			return 1
		}
		log.Infof("Fetching %s from %s", cfg.Prefix, *target)
	}
	log.Infof("Freezing %s into %s", cfg.Prefix, cfg.Output)

	frz, err := freezer.New(cfg, invoker, log)
	if err != nil {
		log.Errorf("Initializing freezer: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, runErr := frz.Run(ctx)
	if runErr != nil {
		log.Errorf("Freeze aborted: %v", runErr)
	}

	if writeErr := rep.WriteMarkdown(os.Stdout); writeErr != nil {
		log.Errorf("Writing summary: %v", writeErr)
	}
	if *reportJSON != "" {
		if exportErr := rep.ExportJSON(*reportJSON); exportErr != nil {
			log.Errorf("Writing JSON report: %v", exportErr)
		}
	}
	if *reportCSV != "" {
		if exportErr := rep.ExportFailuresCSV(*reportCSV); exportErr != nil {
			log.Errorf("Writing CSV failures: %v", exportErr)
		}
	}

	if !rep.Success(cfg.Strict) {
		return 1
	}
	return 0
}
