package regression

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	diffimage "image-regression/internal/diff/image"
	"image-regression/internal/manifest"
	"image-regression/internal/storage"
	"image/png"
	"log/slog"
	"time"

	"golang.org/x/xerrors"
)

// DefaultTolerance is the largest absolute per-sample difference that still passes.
const DefaultTolerance uint8 = 5

type Comparer interface {
	Compare(ctx context.Context, entry manifest.Entry) Outcome
}

type Comparator struct {
	Storage   storage.Reader
	Tolerance uint8
	// Artifacts receives a highlight PNG for every ToleranceExceeded outcome when set
	Artifacts storage.Writer
	Logger    *slog.Logger
}

func NewComparator(s storage.Reader, artifacts storage.Writer, logger *slog.Logger) *Comparator {
	return &Comparator{
		Storage:   s,
		Tolerance: DefaultTolerance,
		Artifacts: artifacts,
		Logger:    logger,
	}
}

// Compare checks, in order, that both files exist, that they decode, that
// their dimensions and color formats agree, and finally that every sample
// is within Tolerance. The first failing check decides the outcome.
func (c *Comparator) Compare(ctx context.Context, entry manifest.Entry) Outcome {
	logger := c.logger().With(slog.String("reference", entry.Reference), slog.String("output", entry.Output))

	if !c.exists(ctx, logger, entry.Reference) {
		return ReferenceMissing{Path: entry.Reference}
	}
	if !c.exists(ctx, logger, entry.Output) {
		return OutputMissing{Path: entry.Output}
	}

	reference, err := c.load(ctx, entry.Reference)
	if err != nil {
		return DecodeFailed{Path: entry.Reference, Err: err}
	}
	output, err := c.load(ctx, entry.Output)
	if err != nil {
		return DecodeFailed{Path: entry.Output, Err: err}
	}

	if reference.Width != output.Width || reference.Height != output.Height {
		return SizeMismatch{
			Reference: Dimensions{Width: reference.Width, Height: reference.Height},
			Output:    Dimensions{Width: output.Width, Height: output.Height},
		}
	}

	if reference.Format != output.Format {
		return FormatMismatch{Reference: reference.Format, Output: output.Format}
	}

	result := diffimage.NewToleranceDiff(c.Tolerance).Calculate(reference, output)
	if !result.Found {
		return Success{}
	}

	outcome := ToleranceExceeded{
		Path:       entry.Output,
		Tolerance:  c.Tolerance,
		Difference: result.Difference,
		X:          result.X,
		Y:          result.Y,
	}

	if c.Artifacts != nil {
		url, diffAmount, err := c.storeHighlight(ctx, entry, reference, output)
		if err != nil {
			logger.Warn("failed to store highlight image", "error", err)
		} else {
			outcome.DiffURL = url
			logger.Info("stored highlight image", "url", url, "diffAmount", diffAmount)
		}
	}

	return outcome
}

func (c *Comparator) exists(ctx context.Context, logger *slog.Logger, path string) bool {
	exists, err := c.Storage.Exists(ctx, path)
	if err != nil {
		logger.Warn("treating unreachable file as missing", "path", path, "error", err)
		return false
	}
	return exists
}

func (c *Comparator) load(ctx context.Context, path string) (*diffimage.Decoded, error) {
	data, err := c.Storage.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return diffimage.Decode(data)
}

func (c *Comparator) storeHighlight(ctx context.Context, entry manifest.Entry, reference *diffimage.Decoded, output *diffimage.Decoded) (string, float64, error) {
	highlight := diffimage.NewHighlightDiff(c.Tolerance).Calculate(reference, output)

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, highlight.Image); err != nil {
		return "", 0.0, xerrors.Errorf("failed to encode highlight image: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")

	h := sha256.New()
	h.Write([]byte(entry.Reference + entry.Output))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]

	key := fmt.Sprintf("diff/%s/%s.png", hash, timestamp)
	url, err := c.Artifacts.Put(ctx, key, buffer.Bytes())
	if err != nil {
		return "", 0.0, xerrors.Errorf("failed to save highlight image: %w", err)
	}

	return url, highlight.DiffAmount, nil
}

func (c *Comparator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
