package manifest_test

import (
	"errors"
	"fmt"
	"image-regression/internal/manifest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	type in struct {
		data     string
		testCase string
	}

	type want struct {
		entries []manifest.Entry
		kind    manifest.ErrorKind
		index   int
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"files": [{"ref": "a.png", "output": "a.png"}]}}`,
				"smoke",
			},
			want{
				[]manifest.Entry{{Reference: "a.png", Output: "a.png"}},
				0,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"render": {"files": [
					{"ref": "ref/0.png", "output": "out/0.png"},
					{"ref": "ref/1.png", "output": "out/1.png"},
					{"ref": "s3://baselines/2.png", "output": "out/2.png"}
				]}, "other": {"files": []}}`,
				"render",
			},
			want{
				[]manifest.Entry{
					{Reference: "ref/0.png", Output: "out/0.png"},
					{Reference: "ref/1.png", Output: "out/1.png"},
					{Reference: "s3://baselines/2.png", Output: "out/2.png"},
				},
				0,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"empty": {"files": []}}`,
				"empty",
			},
			want{
				[]manifest.Entry{},
				0,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"files": [}`,
				"smoke",
			},
			want{
				nil,
				manifest.ParseFailed,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`["smoke"]`,
				"smoke",
			},
			want{
				nil,
				manifest.ParseFailed,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"files": []}}`,
				"missing",
			},
			want{
				nil,
				manifest.TestCaseNotFound,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {}}`,
				"smoke",
			},
			want{
				nil,
				manifest.TestCaseNotFound,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"files": [{"ref": "a.png", "output": "a.png"}, {"ref": "b.png"}]}}`,
				"smoke",
			},
			want{
				nil,
				manifest.MalformedEntry,
				1,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"files": [{"ref": 1, "output": "a.png"}]}}`,
				"smoke",
			},
			want{
				nil,
				manifest.MalformedEntry,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"files": ["a.png"]}}`,
				"smoke",
			},
			want{
				nil,
				manifest.MalformedEntry,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"files": [{"REF": "a.png", "Output": "b.png"}]}}`,
				"smoke",
			},
			want{
				nil,
				manifest.MalformedEntry,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"files": [{"ref": "a.png", "output": "a.png"}, {"ref": "b.png", "Output": "b.png"}]}}`,
				"smoke",
			},
			want{
				nil,
				manifest.MalformedEntry,
				1,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"Files": [{"ref": "a.png", "output": "a.png"}]}}`,
				"smoke",
			},
			want{
				nil,
				manifest.TestCaseNotFound,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": {"files": [{"ref": null, "output": "a.png"}]}}`,
				"smoke",
			},
			want{
				nil,
				manifest.MalformedEntry,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`{"smoke": null}`,
				"smoke",
			},
			want{
				nil,
				manifest.TestCaseNotFound,
				0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				`null`,
				"smoke",
			},
			want{
				nil,
				manifest.ParseFailed,
				0,
			},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := manifest.Parse([]byte(in.data), "tests.json", in.testCase)
			if diff := cmp.Diff(want.entries, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}

			if want.kind == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var manifestError *manifest.Error
			if !errors.As(err, &manifestError) {
				t.Fatalf("expected *manifest.Error, got %v", err)
			}
			if diff := cmp.Diff(want.kind, manifestError.Kind); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.index, manifestError.Index); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("NotFound", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "tests.json")
		_, err := manifest.Load(path, "smoke")

		var manifestError *manifest.Error
		if !errors.As(err, &manifestError) {
			t.Fatalf("expected *manifest.Error, got %v", err)
		}
		if diff := cmp.Diff(manifest.NotFound, manifestError.Kind); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected the cause to be os.ErrNotExist, got %v", err)
		}
	})

	t.Run("Found", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "tests.json")
		if err := os.WriteFile(path, []byte(`{"smoke": {"files": [{"ref": "a.png", "output": "b.png"}]}}`), 0644); err != nil {
			t.Fatal(err)
		}

		got, err := manifest.Load(path, "smoke")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]manifest.Entry{{Reference: "a.png", Output: "b.png"}}, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestPaths(t *testing.T) {
	t.Parallel()

	got := manifest.Paths([]manifest.Entry{
		{Reference: "r0", Output: "o0"},
		{Reference: "r1", Output: "o1"},
	})
	if diff := cmp.Diff([]string{"r0", "r1", "o0", "o1"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
