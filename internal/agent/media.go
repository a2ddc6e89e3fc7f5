package agent

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/huddleai/huddle/internal/tools"
)

// Media is one structured media item attached to a reply. The caller
// renders it; the core only identifies and describes it.
type Media struct {
	Type     string `json:"type"` // "diagram" or "video"
	Path     string `json:"path,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	EmbedURL string `json:"embed_url,omitempty"`
}

const diagramPathPrefix = "/media/diagrams/"

// extractMedia pulls embedded media out of the final answer markdown:
// diagram image references and highlight video links. Media the tools
// produced this turn but the model forgot to embed is appended, so a
// rendered diagram always reaches the caller.
func extractMedia(answer string, tc *tools.TurnContext) []Media {
	var media []Media
	seen := make(map[string]bool)

	diagramAlt := make(map[string]string, len(tc.Diagrams))
	for _, d := range tc.Diagrams {
		diagramAlt[d.Path] = d.AltText
	}

	add := func(m Media) {
		key := m.Path + m.URL
		if seen[key] {
			return
		}
		seen[key] = true
		media = append(media, m)
	}

	// Linkify catches the bare URLs models like to emit.
	src := []byte(answer)
	parser := goldmark.New(goldmark.WithExtensions(extension.Linkify)).Parser()
	doc := parser.Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Image:
			dest := string(v.Destination)
			if strings.HasPrefix(dest, diagramPathPrefix) {
				alt := diagramAlt[dest]
				if alt == "" {
					alt = string(v.Text(src))
				}
				add(Media{Type: "diagram", Path: dest, AltText: alt})
			}
		case *ast.Link:
			dest := string(v.Destination)
			if isVideoLink(dest) {
				add(videoMedia(dest, tc))
			}
		case *ast.AutoLink:
			dest := string(v.URL(src))
			if isVideoLink(dest) {
				add(videoMedia(dest, tc))
			}
		}
		return ast.WalkContinue, nil
	})

	for _, d := range tc.Diagrams {
		add(Media{Type: "diagram", Path: d.Path, AltText: d.AltText})
	}
	if v := tc.Video; v != nil {
		add(Media{Type: "video", Title: v.Title, URL: v.URL, EmbedURL: v.EmbedURL})
	}

	return media
}

// isVideoLink recognizes watchable video URLs. Provider search links
// (the quota fallback) stay in the text; they are not embeddable media.
func isVideoLink(u string) bool {
	if strings.Contains(u, "youtube.com/results") {
		return false
	}
	return strings.Contains(u, "youtube.com/watch") ||
		strings.Contains(u, "youtube.com/embed/") ||
		strings.Contains(u, "youtu.be/")
}

func videoMedia(u string, tc *tools.TurnContext) Media {
	m := Media{Type: "video", URL: u}
	if v := tc.Video; v != nil && (u == v.URL || u == v.EmbedURL) {
		m.Title = v.Title
		m.URL = v.URL
		m.EmbedURL = v.EmbedURL
	}
	return m
}
