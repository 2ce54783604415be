package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"omnicart/internal/config"
	"omnicart/internal/logging"
	"omnicart/internal/pipeline"

	// register all backends with the storage factory.
	_ "omnicart/internal/storage/all"
)

// main is the entry point for the omnicart binary. It loads the pipeline
// config, initializes metrics, runs the pipeline once and exits non-zero on
// failure.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("omnicart", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath           = fs.String("config", "", "pipeline config path (.json, .yaml, .yml); defaults apply when empty")
		envPath           = fs.String("env", ".env", "dotenv file loaded before OMNICART_* overrides; missing is fine")
		metricsBackendFlg = fs.String("metrics-backend", "", "metrics backend (none, pushgateway, datadog); overrides config")
		pushGatewayURLFlg = fs.String("pushgateway-url", "", "Pushgateway base URL; overrides config")
		validate          = fs.Bool("validate", false, "validate the configuration and exit")
		verbose           = fs.Bool("v", false, "enable debug logs")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(stderr, "dotenv: %v\n", err)
		return 1
	}
	p, err := config.Load(*cfgPath, nil)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *metricsBackendFlg != "" {
		p.Metrics.Backend = *metricsBackendFlg
	}
	if *pushGatewayURLFlg != "" {
		p.Metrics.PushgatewayURL = *pushGatewayURLFlg
	}
	if *verbose {
		p.Logging.Level = "debug"
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "configuration is invalid: %s\n", describe(*cfgPath))
		return 1
	}
	if *validate {
		fmt.Fprintf(stderr, "configuration is valid: %s\n", describe(*cfgPath))
		return 0
	}

	log, err := logging.New(p.Logging.Level, p.Logging.Format, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return 1
	}
	jobLog := log.WithField("job", p.Job)

	flush := setupMetrics(p, jobLog)
	defer flush()

	src, err := buildSource(p, jobLog)
	if err != nil {
		jobLog.WithError(err).Error("source")
		return 1
	}
	sinks, err := buildSinks(p, jobLog)
	if err != nil {
		jobLog.WithError(err).Error("sinks")
		return 1
	}

	jobLog.WithFields(logrus.Fields{
		"source":  p.Source.Kind,
		"sinks":   sinkNames(sinks),
		"metrics": p.Metrics.Backend,
	}).Debug("pipeline: wired")

	start := time.Now()
	ok := pipeline.New(pipeline.Options{Job: p.Job, Log: jobLog}, src, sinks...).Run(ctx)
	jobLog.WithField("elapsed", time.Since(start).Truncate(time.Millisecond).String()).Debug("done")
	if !ok {
		return 1
	}
	return 0
}

func describe(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}
