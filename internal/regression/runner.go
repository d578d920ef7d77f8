package regression

import (
	"context"
	"image-regression/internal/manifest"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

const instrumentationName = "image-regression/internal/regression"

type Instruments struct {
	Comparisons                    metric.Int64Counter
	ComparisonDurationMicroSeconds metric.Int64Histogram
}

func NewInstruments(meter metric.Meter) (*Instruments, error) {
	comparisons, err := meter.Int64Counter("comparisons")
	if err != nil {
		return nil, xerrors.Errorf("failed to create counter: %w", err)
	}
	// NOTE: Gauge(UpDownCounter), Summary or Untyped does not support exemplars
	comparisonDurationMicroSeconds, err := meter.Int64Histogram("comparison_duration_micro_seconds")
	if err != nil {
		return nil, xerrors.Errorf("failed to create histogram: %w", err)
	}
	return &Instruments{
		Comparisons:                    comparisons,
		ComparisonDurationMicroSeconds: comparisonDurationMicroSeconds,
	}, nil
}

type Runner struct {
	Comparer Comparer
	// Concurrency bounds the number of comparisons in flight; 0 means one per entry
	Concurrency int
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Instruments *Instruments
}

// Run compares every entry concurrently and returns the first failing outcome
// in entry order, or Success. Results are joined in launch order, so a later
// entry's failure is only seen once every earlier entry has passed. Tasks that
// are still running when a failure is found are left to finish on their own.
func (r *Runner) Run(ctx context.Context, entries []manifest.Entry) Outcome {
	results := make([]chan Outcome, len(entries))
	for i := range results {
		results[i] = make(chan Outcome, 1)
	}

	// eg only launches and limits tasks. It is never waited on: Run returns as
	// soon as the first failure is joined, and the remaining tasks keep running.
	var eg errgroup.Group
	if r.Concurrency > 0 {
		eg.SetLimit(r.Concurrency)
	}

	for i, entry := range entries {
		eg.Go(func() error {
			results[i] <- r.compare(ctx, i, entry)
			return nil
		})
	}

	for i, result := range results {
		outcome := <-result
		if Failed(outcome) {
			r.logger().Info("comparison failed", "entry", i, "kind", outcome.Kind(), "outcome", outcome.String())
			return outcome
		}
	}

	r.logger().Debug("all comparisons passed", "entries", len(entries))
	return Success{}
}

func (r *Runner) compare(ctx context.Context, index int, entry manifest.Entry) Outcome {
	ctx, span := r.tracer().Start(ctx, "compare", trace.WithAttributes(
		attribute.Int("entry", index),
		attribute.String("reference", entry.Reference),
		attribute.String("output", entry.Output),
	))
	defer span.End()

	now := time.Now()
	outcome := r.Comparer.Compare(ctx, entry)
	elapsed := time.Since(now)

	span.SetAttributes(attribute.String("outcome", outcome.Kind()))
	if Failed(outcome) {
		span.SetStatus(codes.Error, outcome.String())
	}

	if r.Instruments != nil {
		attributes := metric.WithAttributes(attribute.Key("outcome").String(outcome.Kind()))
		r.Instruments.Comparisons.Add(ctx, 1, attributes)
		r.Instruments.ComparisonDurationMicroSeconds.Record(ctx, elapsed.Microseconds(), attributes)
	}

	r.logger().Debug("comparison finished", "entry", index, "kind", outcome.Kind(), "elapsed", elapsed)
	return outcome
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}
	return otel.Tracer(instrumentationName)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
