package main

import (
	"context"
	"flag"
	"fmt"
	"image-regression/internal/env"
	"image-regression/internal/manifest"
	"image-regression/internal/regression"
	"image-regression/internal/storage"
	"image-regression/internal/telemetry"
	"io"
	"os"
	"slices"
	"time"

	"golang.org/x/xerrors"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitError   = 2
)

const shutdownTimeout = 10 * time.Second

type options struct {
	manifest      string
	directory     string
	concurrency   int
	diffDirectory string
	debug         bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run writes the outcome line to stdout and everything else to stderr, and
// returns the process exit code.
func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if err := env.Load(".env"); err != nil {
		fmt.Fprintf(stderr, "failed to load .env: %v\n", err)
		return exitError
	}

	fs := flag.NewFlagSet("regress", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.manifest, "manifest", env.OrDefault("MANIFEST", manifest.DefaultPath), "Path to the test manifest")
	fs.StringVar(&o.directory, "directory", env.OrDefault("DIRECTORY", "."), "Base directory for relative image paths")
	fs.IntVar(&o.concurrency, "concurrency", env.OrDefault("CONCURRENCY", 0), "Maximum comparisons in flight (0 means one per entry)")
	fs.StringVar(&o.diffDirectory, "diff-directory", env.OrDefault("DIFF_DIRECTORY", ""), "Where highlight images are stored (directory or s3://bucket/prefix)")
	fs.BoolVar(&o.debug, "debug", env.OrDefault("DEBUG", false), "Log in text format")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	logger, err := telemetry.NewLogger(stderr, o.debug)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create logger: %v\n", err)
		return exitError
	}

	testCase, err := testCaseName(fs.Args())
	if err != nil {
		logger.Error("invalid arguments", "error", err)
		fs.Usage()
		return exitError
	}

	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "regress",
		ExportTraces:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
		Job:            "regress",
	})
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		return exitError
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("failed to shutdown telemetry", "error", err)
		}
	}()

	entries, err := manifest.Load(o.manifest, testCase)
	if err != nil {
		logger.Error("failed to load manifest", "manifest", o.manifest, "testCase", testCase, "error", err)
		return exitError
	}
	logger.Debug("loaded manifest", "manifest", o.manifest, "testCase", testCase, "entries", len(entries))

	images, err := newReader(ctx, o.directory, entries)
	if err != nil {
		logger.Error("failed to create storage backend", "error", err)
		return exitError
	}

	artifacts, err := newArtifacts(ctx, o.diffDirectory)
	if err != nil {
		logger.Error("failed to create artifact storage backend", "diffDirectory", o.diffDirectory, "error", err)
		return exitError
	}

	instruments, err := regression.NewInstruments(tel.Meter)
	if err != nil {
		logger.Error("failed to create instruments", "error", err)
		return exitError
	}

	runner := &regression.Runner{
		Comparer:    regression.NewComparator(images, artifacts, logger),
		Concurrency: o.concurrency,
		Logger:      logger,
		Tracer:      tel.Tracer,
		Instruments: instruments,
	}

	outcome := runner.Run(ctx, entries)
	fmt.Fprintln(stdout, outcome.String())

	if regression.Failed(outcome) {
		return exitFailure
	}
	return exitSuccess
}

// testCaseName picks the test case from the positional arguments. The first
// one is accepted for compatibility and ignored.
func testCaseName(args []string) (string, error) {
	if len(args) < 2 {
		return "", xerrors.Errorf("expected <ignored> <test case>, got %d arguments", len(args))
	}
	return args[1], nil
}

// newReader only creates an S3 client when the manifest refers to S3.
func newReader(ctx context.Context, directory string, entries []manifest.Entry) (storage.Reader, error) {
	local, err := storage.NewFileStorage(ctx, storage.FileConfig{
		Directory: directory,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to create file storage backend: %w", err)
	}

	if !slices.ContainsFunc(manifest.Paths(entries), storage.IsS3) {
		return storage.NewRouter(local, nil), nil
	}

	remote, err := storage.NewS3Storage(ctx, storage.S3Config{})
	if err != nil {
		return nil, xerrors.Errorf("failed to create S3 storage backend: %w", err)
	}
	return storage.NewRouter(local, remote), nil
}

func newArtifacts(ctx context.Context, diffDirectory string) (storage.Writer, error) {
	switch {
	case diffDirectory == "":
		return nil, nil
	case storage.IsS3(diffDirectory):
		bucket, prefix, err := storage.ParseS3URL(diffDirectory)
		if err != nil {
			return nil, err
		}
		s, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: bucket,
			Prefix: prefix,
		})
		if err != nil {
			return nil, xerrors.Errorf("failed to create S3 storage backend: %w", err)
		}
		return s, nil
	default:
		s, err := storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: diffDirectory,
		})
		if err != nil {
			return nil, xerrors.Errorf("failed to create file storage backend: %w", err)
		}
		return s, nil
	}
}
