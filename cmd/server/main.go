package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nocturnecity/image-formatter/internal"
)

const runCmd = "run"
const defaultLogLvl = "info"

func main() {
	flag.Parse()

	if len(os.Args[1:]) < 1 {
		fmt.Printf("formatter: one of the following command expected: '%v'\n", []string{runCmd})
		os.Exit(1)
	}
	cmdName := os.Args[1]
	args := os.Args[2:]
	var (
		logLVL     string
		configPath string
		port       int
		timeout    int
		workers    int
		cdnBaseURL string
		maxPixels  int64
	)

	cmd := flag.NewFlagSet(runCmd, flag.ExitOnError)
	cmd.StringVar(&logLVL, "loglvl", defaultLogLvl, "set logging level: 'debug', 'info', 'warn', 'error'")
	cmd.StringVar(&configPath, "config", "", "path to YAML configuration file")
	cmd.IntVar(&port, "port", 0, "set HTTP server port, overrides config")
	cmd.IntVar(&timeout, "timeout", 0, "set HTTP server timeout seconds, overrides config")
	cmd.IntVar(&workers, "workers", 0, "set export worker count, overrides config")
	cmd.StringVar(&cdnBaseURL, "cdn", "", "set transform CDN base URL, overrides config")
	cmd.Int64Var(&maxPixels, "max-source-pixels", 0, "set pixel count limit of decoded sources, overrides config")

	if err := cmd.Parse(args); err != nil {
		fmt.Printf("formatter: error parsing arguments: '%v'\n", err)
		os.Exit(1)
	}

	lvl, lvlErr := internal.ParseLevel(logLVL)
	if lvlErr != nil {
		fmt.Printf("formatter: error parsing log level: '%v'\n", lvlErr)
		os.Exit(1)
	}

	stdLog := internal.NewStdLog(internal.WithLevel(lvl))

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		stdLog.Fatal("%v", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if timeout > 0 {
		cfg.Server.Timeout = time.Duration(timeout) * time.Second
	}
	if workers > 0 {
		cfg.Server.Workers = workers
	}
	if cdnBaseURL != "" {
		cfg.CDN.BaseURL = cdnBaseURL
	}
	if maxPixels > 0 {
		cfg.Editor.MaxSourcePixels = maxPixels
	}
	if err := cfg.Validate(); err != nil {
		stdLog.Fatal("invalid config: %v", err)
	}

	presets, err := internal.LoadPresetCatalog(cfg.Presets.File)
	if err != nil {
		stdLog.Fatal("%v", err)
	}
	stdLog.Info("Loaded %d presets", presets.Len())

	ctx := context.Background()
	var server *internal.Server
	switch cmdName {
	case runCmd:
		server = internal.NewHttpServer(cfg, presets, internal.NewS3Store(stdLog.Named("s3")), stdLog)
	default:
		stdLog.Fatal("Unknown sub-command: %s\n", cmdName)
	}

	server.Run()
	defer server.Stop(ctx)
	// Wait for interrupt signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-interrupt:
		stdLog.Info("Interrupt signal received, shutting down server...")
	case <-ctx.Done():
		stdLog.Info("Context canceled, shutting down server...")
	}
}
