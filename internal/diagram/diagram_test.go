package diagram

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenderDeterministic(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, discardLogger())

	ref1, err := r.Render(KindRoute, "post")
	if err != nil {
		t.Fatal(err)
	}
	data1, err := os.ReadFile(filepath.Join(dir, filepath.Base(ref1.Path)))
	if err != nil {
		t.Fatal(err)
	}

	// Render again into a fresh directory; bytes and path must match.
	dir2 := t.TempDir()
	r2 := NewRenderer(dir2, discardLogger())
	ref2, err := r2.Render(KindRoute, "post")
	if err != nil {
		t.Fatal(err)
	}
	data2, err := os.ReadFile(filepath.Join(dir2, filepath.Base(ref2.Path)))
	if err != nil {
		t.Fatal(err)
	}

	if ref1.Path != ref2.Path {
		t.Errorf("paths differ: %q vs %q", ref1.Path, ref2.Path)
	}
	if string(data1) != string(data2) {
		t.Error("identical parameters produced different SVG bytes")
	}
}

func TestRenderPathShape(t *testing.T) {
	r := NewRenderer(t.TempDir(), discardLogger())

	ref, err := r.Render(KindCoverage, "Cover 2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref.Path, "/media/diagrams/coverage-cover-2-") {
		t.Errorf("path = %q", ref.Path)
	}
	if !strings.HasSuffix(ref.Path, ".svg") {
		t.Errorf("path = %q, want .svg suffix", ref.Path)
	}
	if ref.AltText == "" {
		t.Error("alt text is empty")
	}
}

func TestRenderAllKnownNames(t *testing.T) {
	r := NewRenderer(t.TempDir(), discardLogger())

	for _, kind := range []Kind{KindRoute, KindPlay, KindCoverage} {
		for _, name := range Names(kind) {
			if _, err := r.Render(kind, name); err != nil {
				t.Errorf("Render(%s, %s): %v", kind, name, err)
			}
		}
	}
}

func TestRenderUnknownNameListsValid(t *testing.T) {
	r := NewRenderer(t.TempDir(), discardLogger())

	_, err := r.Render(KindRoute, "banana")
	if err == nil {
		t.Fatal("expected an error for an unknown route")
	}
	if !strings.Contains(err.Error(), "slant") {
		t.Errorf("error should list valid names, got: %v", err)
	}

	if _, err := r.Render(Kind("fresco"), "slant"); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}

func TestNamesSorted(t *testing.T) {
	for _, kind := range []Kind{KindRoute, KindPlay, KindCoverage} {
		names := Names(kind)
		if len(names) == 0 {
			t.Errorf("Names(%s) is empty", kind)
			continue
		}
		if !sort.StringsAreSorted(names) {
			t.Errorf("Names(%s) not sorted: %v", kind, names)
		}
	}
	if Names(Kind("nope")) != nil {
		t.Error("unknown kind should yield nil names")
	}
}
