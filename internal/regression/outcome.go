package regression

import (
	"fmt"
	diffimage "image-regression/internal/diff/image"
)

// Outcome is the single result of comparing one manifest entry. The set of
// implementations is closed.
type Outcome interface {
	// String is the line printed when this outcome is reported
	String() string
	// Kind is a stable short name for logs and metrics
	Kind() string
	outcome()
}

type Success struct{}

type ReferenceMissing struct {
	Path string
}

type OutputMissing struct {
	Path string
}

type Dimensions struct {
	Width  int
	Height int
}

type SizeMismatch struct {
	Reference Dimensions
	Output    Dimensions
}

type FormatMismatch struct {
	Reference diffimage.ColorFormat
	Output    diffimage.ColorFormat
}

// ToleranceExceeded locates the first sample whose difference is above
// Tolerance. X and Y are pixel coordinates in the output image.
type ToleranceExceeded struct {
	Path       string
	Tolerance  uint8
	Difference uint8
	X          int
	Y          int
	// DiffURL is where the highlight image was stored, if one was rendered
	DiffURL string
}

type DecodeFailed struct {
	Path string
	Err  error
}

func (Success) outcome()           {}
func (ReferenceMissing) outcome()  {}
func (OutputMissing) outcome()     {}
func (SizeMismatch) outcome()      {}
func (FormatMismatch) outcome()    {}
func (ToleranceExceeded) outcome() {}
func (DecodeFailed) outcome()      {}

func (Success) Kind() string           { return "success" }
func (ReferenceMissing) Kind() string  { return "reference_missing" }
func (OutputMissing) Kind() string     { return "output_missing" }
func (SizeMismatch) Kind() string      { return "size_mismatch" }
func (FormatMismatch) Kind() string    { return "format_mismatch" }
func (ToleranceExceeded) Kind() string { return "tolerance_exceeded" }
func (DecodeFailed) Kind() string      { return "decode_failed" }

func (Success) String() string {
	return ""
}

func (o ReferenceMissing) String() string {
	return fmt.Sprintf("%s ref is missing", o.Path)
}

func (o OutputMissing) String() string {
	return fmt.Sprintf("%s was not found", o.Path)
}

func (d Dimensions) String() string {
	return fmt.Sprintf("(%d, %d)", d.Width, d.Height)
}

func (o SizeMismatch) String() string {
	return fmt.Sprintf("Mismatched sizes: %s vs %s", o.Reference, o.Output)
}

func (FormatMismatch) String() string {
	return "The images are not the same type"
}

func (o ToleranceExceeded) String() string {
	return fmt.Sprintf("File %s has a differnce more than %d (%d) at %d, %d", o.Path, o.Tolerance, o.Difference, o.X, o.Y)
}

func (o DecodeFailed) String() string {
	return fmt.Sprintf("%s could not be decoded: %v", o.Path, o.Err)
}

// Failed reports whether o is anything other than Success.
func Failed(o Outcome) bool {
	_, ok := o.(Success)
	return !ok
}
