// Package diagram renders route, play, and coverage diagrams as SVG.
//
// Rendering is deterministic: identical parameters produce identical
// bytes and an identical reference path, which keeps tool results
// reproducible and lets repeated requests hit the same file on disk.
package diagram

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind selects the diagram family.
type Kind string

const (
	KindRoute    Kind = "route"
	KindPlay     Kind = "play"
	KindCoverage Kind = "coverage"
)

// ImageReference points at a rendered diagram.
type ImageReference struct {
	Path    string `json:"path"`     // serving path, e.g. /media/diagrams/<id>.svg
	AltText string `json:"alt_text"` // human description for embedding
}

// Renderer writes diagrams under dir and returns stable references.
type Renderer struct {
	dir    string
	logger *slog.Logger
}

// NewRenderer creates a renderer rooted at dir. The directory is created
// on first render.
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{dir: dir, logger: logger.With("component", "diagram")}
}

// Names returns the valid names for a kind, sorted. Used for tool schema
// enums and error messages.
func Names(kind Kind) []string {
	switch kind {
	case KindRoute:
		return sortedKeys(routes)
	case KindPlay:
		return sortedKeys(formations)
	case KindCoverage:
		return sortedKeys(coverages)
	}
	return nil
}

// Render produces the diagram for kind/name, writing the SVG if it does
// not already exist.
func (r *Renderer) Render(kind Kind, name string) (*ImageReference, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	var svg string
	switch kind {
	case KindRoute:
		pts, ok := routes[name]
		if !ok {
			return nil, fmt.Errorf("unknown route %q (valid: %s)", name, strings.Join(Names(KindRoute), ", "))
		}
		svg = renderRoute(name, pts)
	case KindPlay:
		pts, ok := formations[name]
		if !ok {
			return nil, fmt.Errorf("unknown formation %q (valid: %s)", name, strings.Join(Names(KindPlay), ", "))
		}
		svg = renderFormation(name, pts)
	case KindCoverage:
		zones, ok := coverages[name]
		if !ok {
			return nil, fmt.Errorf("unknown coverage %q (valid: %s)", name, strings.Join(Names(KindCoverage), ", "))
		}
		svg = renderCoverage(name, zones)
	default:
		return nil, fmt.Errorf("unknown diagram kind %q", kind)
	}

	sum := sha256.Sum256([]byte(string(kind) + "/" + name))
	id := hex.EncodeToString(sum[:8])
	filename := fmt.Sprintf("%s-%s-%s.svg", kind, safeName(name), id)

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create diagram dir: %w", err)
	}

	path := filepath.Join(r.dir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
			return nil, fmt.Errorf("write diagram: %w", err)
		}
		r.logger.Debug("diagram rendered", "kind", kind, "name", name, "file", filename)
	}

	return &ImageReference{
		Path:    "/media/diagrams/" + filename,
		AltText: fmt.Sprintf("%s diagram: %s", kind, name),
	}, nil
}

func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
