package storage_test

import (
	"context"
	"image-regression/internal/storage"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	directory := t.TempDir()
	if err := os.WriteFile(filepath.Join(directory, "a.png"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := storage.NewFileStorage(ctx, storage.FileConfig{Directory: directory})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("ExistsRelative", func(t *testing.T) {
		t.Parallel()

		got, err := s.Exists(ctx, "a.png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(true, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("ExistsAbsolute", func(t *testing.T) {
		t.Parallel()

		got, err := s.Exists(ctx, filepath.Join(directory, "a.png"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(true, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		t.Parallel()

		got, err := s.Exists(ctx, "missing.png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(false, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}

		if _, err := s.Get(ctx, "missing.png"); err == nil {
			t.Errorf("expected an error reading a missing file")
		}
	})

	t.Run("Get", func(t *testing.T) {
		t.Parallel()

		got, err := s.Get(ctx, "a.png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]byte("a"), got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Put", func(t *testing.T) {
		t.Parallel()

		url, err := s.Put(ctx, "diff/abc/1.png", []byte("diff"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(filepath.Join(directory, "diff", "abc", "1.png"), url); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}

		got, err := os.ReadFile(url)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]byte("diff"), got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}
