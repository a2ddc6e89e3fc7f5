package agent

import (
	"testing"

	"github.com/huddleai/huddle/internal/diagram"
	"github.com/huddleai/huddle/internal/tools"
	"github.com/huddleai/huddle/internal/video"
)

func TestExtractMediaDiagram(t *testing.T) {
	tc := &tools.TurnContext{
		Diagrams: []diagram.ImageReference{{
			Path:    "/media/diagrams/route-slant-abc123.svg",
			AltText: "route diagram: slant",
		}},
	}
	answer := "Here's the slant:\n\n![slant route](/media/diagrams/route-slant-abc123.svg)\n\nQuick break inside."

	media := extractMedia(answer, tc)
	if len(media) != 1 {
		t.Fatalf("media = %+v, want exactly one (no duplicate for embedded+rendered)", media)
	}
	m := media[0]
	if m.Type != "diagram" || m.Path != "/media/diagrams/route-slant-abc123.svg" {
		t.Errorf("media = %+v", m)
	}
	if m.AltText != "route diagram: slant" {
		t.Errorf("alt text = %q, want the renderer's description", m.AltText)
	}
}

func TestExtractMediaUnembeddedDiagram(t *testing.T) {
	// The model rendered a diagram but never embedded it. It still
	// reaches the caller.
	tc := &tools.TurnContext{
		Diagrams: []diagram.ImageReference{{
			Path:    "/media/diagrams/coverage-cover-2-def456.svg",
			AltText: "coverage diagram: cover 2",
		}},
	}

	media := extractMedia("Cover 2 splits the deep field between two safeties.", tc)
	if len(media) != 1 {
		t.Fatalf("media = %+v, want the unembedded diagram appended", media)
	}
	if media[0].Path != "/media/diagrams/coverage-cover-2-def456.svg" {
		t.Errorf("media = %+v", media[0])
	}
}

func TestExtractMediaIgnoresForeignImages(t *testing.T) {
	media := extractMedia("![chart](https://example.com/chart.png)", &tools.TurnContext{})
	if len(media) != 0 {
		t.Errorf("foreign image should not become media: %+v", media)
	}
}

func TestExtractMediaVideoLink(t *testing.T) {
	tc := &tools.TurnContext{
		Video: &video.Result{
			Title:    "Chiefs vs Bills Highlights",
			VideoID:  "abc",
			URL:      "https://www.youtube.com/watch?v=abc",
			EmbedURL: "https://www.youtube.com/embed/abc",
		},
	}
	answer := "Great game! Watch it here: [highlights](https://www.youtube.com/watch?v=abc)"

	media := extractMedia(answer, tc)
	if len(media) != 1 {
		t.Fatalf("media = %+v, want one video", media)
	}
	m := media[0]
	if m.Type != "video" || m.Title != "Chiefs vs Bills Highlights" {
		t.Errorf("media = %+v", m)
	}
	if m.EmbedURL != "https://www.youtube.com/embed/abc" {
		t.Errorf("embed url = %q, want the enriched embed link", m.EmbedURL)
	}
}

func TestExtractMediaExcludesSearchFallback(t *testing.T) {
	// The quota-fallback search link stays plain text.
	answer := "Couldn't find an embeddable clip; try [this search](https://www.youtube.com/results?search_query=eagles+highlights)."

	media := extractMedia(answer, &tools.TurnContext{})
	if len(media) != 0 {
		t.Errorf("search fallback link should not become media: %+v", media)
	}
}

func TestExtractMediaAutoLink(t *testing.T) {
	tc := &tools.TurnContext{}
	media := extractMedia("Watch: https://youtu.be/xyz789", tc)
	if len(media) != 1 {
		t.Fatalf("media = %+v, want one video from the bare link", media)
	}
	if media[0].Type != "video" || media[0].URL != "https://youtu.be/xyz789" {
		t.Errorf("media = %+v", media[0])
	}
}
