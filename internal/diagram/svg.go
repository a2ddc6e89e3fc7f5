package diagram

import (
	"fmt"
	"strings"
)

// Canvas is 400x480: a 40-yard field fragment, 12px per yard vertically,
// line of scrimmage at y=400.
const (
	canvasW    = 400
	canvasH    = 480
	scrimmageY = 400
	yardPx     = 12
)

type point struct {
	X, Y float64
}

// zone is a coverage responsibility: a defender spot plus the area they
// drop into.
type zone struct {
	Label   string
	Pos     point
	DropTo  point
	RadiusX float64
	RadiusY float64
}

// routes maps route names to receiver paths. Origin is the receiver's
// alignment; Y decreases upfield.
var routes = map[string][]point{
	"slant":    {{80, 400}, {80, 364}, {180, 304}},
	"out":      {{80, 400}, {80, 280}, {20, 280}},
	"in":       {{80, 400}, {80, 280}, {220, 280}},
	"post":     {{80, 400}, {80, 256}, {200, 136}},
	"corner":   {{320, 400}, {320, 256}, {390, 136}},
	"go":       {{80, 400}, {80, 60}},
	"curl":     {{80, 400}, {80, 256}, {96, 286}},
	"comeback": {{320, 400}, {320, 220}, {350, 268}},
	"wheel":    {{120, 400}, {40, 380}, {30, 300}, {30, 100}},
	"screen":   {{80, 400}, {96, 420}, {150, 420}},
}

// formations maps formation names to offensive alignment dots.
// The first point is the quarterback.
var formations = map[string][]point{
	"i-formation": {
		{200, 424}, {200, 448}, {200, 472}, // QB, FB, HB
		{140, 400}, {170, 400}, {200, 400}, {230, 400}, {260, 400}, // line
		{60, 400}, {340, 400}, {300, 408}, // X, Z, TE
	},
	"shotgun": {
		{200, 460}, {240, 460}, // QB, HB
		{140, 400}, {170, 400}, {200, 400}, {230, 400}, {260, 400},
		{40, 400}, {360, 400}, {320, 408}, {90, 408}, // X, Z, TE, slot
	},
	"spread": {
		{200, 460},
		{140, 400}, {170, 400}, {200, 400}, {230, 400}, {260, 400},
		{30, 400}, {90, 408}, {310, 408}, {370, 400}, {240, 460},
	},
	"bunch": {
		{200, 460}, {160, 460},
		{140, 400}, {170, 400}, {200, 400}, {230, 400}, {260, 400},
		{40, 400}, {310, 404}, {330, 414}, {350, 404}, // X + bunch trio
	},
}

// coverages maps coverage names to defensive zone assignments.
var coverages = map[string][]zone{
	"cover 2": {
		{"S", point{120, 160}, point{100, 120}, 90, 60},
		{"S", point{280, 160}, point{300, 120}, 90, 60},
		{"CB", point{40, 340}, point{40, 310}, 45, 40},
		{"CB", point{360, 340}, point{360, 310}, 45, 40},
		{"LB", point{120, 330}, point{120, 280}, 55, 40},
		{"LB", point{200, 330}, point{200, 270}, 55, 40},
		{"LB", point{280, 330}, point{280, 280}, 55, 40},
	},
	"cover 3": {
		{"FS", point{200, 140}, point{200, 110}, 70, 60},
		{"CB", point{40, 320}, point{60, 140}, 70, 60},
		{"CB", point{360, 320}, point{340, 140}, 70, 60},
		{"SS", point{280, 300}, point{300, 300}, 55, 40},
		{"LB", point{120, 330}, point{110, 290}, 55, 40},
		{"LB", point{200, 330}, point{200, 280}, 55, 40},
		{"LB", point{280, 330}, point{280, 290}, 55, 40},
	},
	"cover 4": {
		{"S", point{120, 150}, point{100, 120}, 55, 55},
		{"S", point{280, 150}, point{300, 120}, 55, 55},
		{"CB", point{40, 320}, point{40, 130}, 55, 55},
		{"CB", point{360, 320}, point{360, 130}, 55, 55},
		{"LB", point{130, 330}, point{130, 290}, 60, 40},
		{"LB", point{270, 330}, point{270, 290}, 60, 40},
	},
	"cover 1": {
		{"FS", point{200, 140}, point{200, 110}, 110, 70},
		{"CB", point{40, 330}, point{40, 330}, 0, 0},
		{"CB", point{360, 330}, point{360, 330}, 0, 0},
		{"SS", point{280, 310}, point{280, 310}, 0, 0},
		{"LB", point{160, 330}, point{160, 330}, 0, 0},
		{"LB", point{240, 330}, point{240, 330}, 0, 0},
	},
}

func renderRoute(name string, pts []point) string {
	var b strings.Builder
	writeHeader(&b, "Route: "+strings.ToUpper(name))
	writeField(&b)

	// Receiver dot at the stem.
	fmt.Fprintf(&b, `<circle cx="%.0f" cy="%.0f" r="7" fill="#1d3557"/>`+"\n", pts[0].X, pts[0].Y)

	var path strings.Builder
	for i, p := range pts {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s %.0f %.0f ", cmd, p.X, p.Y)
	}
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="#e63946" stroke-width="4" marker-end="url(#arrow)"/>`+"\n",
		strings.TrimSpace(path.String()))

	b.WriteString("</svg>\n")
	return b.String()
}

func renderFormation(name string, pts []point) string {
	var b strings.Builder
	writeHeader(&b, "Formation: "+titleCase(name))
	writeField(&b)

	for i, p := range pts {
		fill := "#1d3557"
		if i == 0 {
			fill = "#e63946" // quarterback
		}
		fmt.Fprintf(&b, `<circle cx="%.0f" cy="%.0f" r="8" fill="%s"/>`+"\n", p.X, p.Y, fill)
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func renderCoverage(name string, zones []zone) string {
	var b strings.Builder
	writeHeader(&b, "Coverage: "+titleCase(name))
	writeField(&b)

	for _, z := range zones {
		if z.RadiusX > 0 {
			fmt.Fprintf(&b, `<ellipse cx="%.0f" cy="%.0f" rx="%.0f" ry="%.0f" fill="#457b9d" fill-opacity="0.25"/>`+"\n",
				z.DropTo.X, z.DropTo.Y, z.RadiusX, z.RadiusY)
		}
		fmt.Fprintf(&b, `<text x="%.0f" y="%.0f" text-anchor="middle" font-family="sans-serif" font-size="14" font-weight="bold" fill="#1d3557">%s</text>`+"\n",
			z.Pos.X, z.Pos.Y+5, z.Label)
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func writeHeader(b *strings.Builder, title string) {
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		canvasW, canvasH, canvasW, canvasH)
	b.WriteString(`<defs><marker id="arrow" markerWidth="10" markerHeight="10" refX="6" refY="3" orient="auto"><path d="M0,0 L6,3 L0,6 z" fill="#e63946"/></marker></defs>` + "\n")
	fmt.Fprintf(b, `<rect width="%d" height="%d" fill="#f1faee"/>`+"\n", canvasW, canvasH)
	fmt.Fprintf(b, `<text x="%d" y="24" text-anchor="middle" font-family="sans-serif" font-size="16" font-weight="bold" fill="#1d3557">%s</text>`+"\n",
		canvasW/2, title)
}

func writeField(b *strings.Builder) {
	// Yard lines every 5 yards up from the line of scrimmage.
	for y := scrimmageY; y >= 40; y -= 5 * yardPx {
		width := 1
		if y == scrimmageY {
			width = 3
		}
		fmt.Fprintf(b, `<line x1="0" y1="%d" x2="%d" y2="%d" stroke="#a8dadc" stroke-width="%d"/>`+"\n",
			y, canvasW, y, width)
	}
}
