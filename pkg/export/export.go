// Package export renders a layout snapshot to DOT, SVG, or PNG for
// out-of-band inspection of the scene an interactive surface would draw.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/gitscape/gitscape/pkg/engine"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/repotree"
)

// Snapshot is the exportable view of a scene: the visible nodes and edges,
// their computed positions, and the active highlight set.
type Snapshot struct {
	Nodes     []repotree.FlatNode
	Edges     []repotree.Edge
	Positions map[string]layout.Point
	Highlight map[string]struct{}
}

// FromEngine captures the engine's current renderer-facing state.
func FromEngine(e *engine.Engine) Snapshot {
	tree := e.Tree()
	ids := e.VisibleNodes()
	nodes := make([]repotree.FlatNode, 0, len(ids))
	for _, id := range ids {
		if n, ok := tree.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	return Snapshot{
		Nodes:     nodes,
		Edges:     e.VisibleEdges(),
		Positions: e.Positions(),
		Highlight: e.Highlight(),
	}
}

// jsonDoc is the JSON export shape. The highlight set flattens to an ID list
// in visible order.
type jsonDoc struct {
	Nodes     []repotree.FlatNode     `json:"nodes"`
	Edges     []repotree.Edge         `json:"links"`
	Positions map[string]layout.Point `json:"positions"`
	Highlight []string                `json:"highlight,omitempty"`
}

// ToJSON marshals the snapshot for external tooling.
func ToJSON(s Snapshot) ([]byte, error) {
	var ids []string
	for _, n := range s.Nodes {
		if _, ok := s.Highlight[n.ID]; ok {
			ids = append(ids, n.ID)
		}
	}
	return json.MarshalIndent(jsonDoc{
		Nodes:     s.Nodes,
		Edges:     s.Edges,
		Positions: s.Positions,
		Highlight: ids,
	}, "", "  ")
}

// Options configures DOT generation.
type Options struct {
	// Detailed includes path and size in node labels.
	// When false, only the node name is shown.
	Detailed bool

	// Freeze pins nodes to their computed positions (neato layout) instead
	// of letting Graphviz lay the graph out from scratch.
	Freeze bool
}

// ToDOT converts a snapshot to Graphviz DOT format. The resulting DOT string
// can be rendered using [RenderSVG] or [RenderPNG].
//
// With Freeze, node positions from the layout engines are pinned so the
// export matches what an interactive surface would show; positions are scaled
// to points and Y is flipped into Graphviz's upward axis.
func ToDOT(s Snapshot, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	if opts.Freeze {
		buf.WriteString("  layout=neato;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=10];\n")
	buf.WriteString("\n")

	for _, n := range s.Nodes {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(s, n, label, opts.Freeze)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range s.Edges {
		fmt.Fprintf(&buf, "  %q -- %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n repotree.FlatNode, detailed bool) string {
	if !detailed {
		return n.Name
	}
	parts := []string{n.Name}
	if n.Path != "" {
		parts = append(parts, n.Path)
	}
	if n.IsFile() {
		parts = append(parts, fmt.Sprintf("%.0f bytes", n.Size))
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(s Snapshot, n repotree.FlatNode, label string, freeze bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if n.IsDirectory() {
		attrs = append(attrs, "shape=doublecircle")
	}
	if _, hl := s.Highlight[n.ID]; hl {
		attrs = append(attrs, "fillcolor=gold")
	}
	if p, ok := s.Positions[n.ID]; freeze && ok {
		attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", p.X, -p.Y))
		if p.R > 0 {
			attrs = append(attrs, fmt.Sprintf("width=%.2f", p.R/24))
		}
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return render(dot, graphviz.SVG, normalizeViewBox)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG, nil)
}

func render(dot string, format graphviz.Format, post func([]byte) []byte) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	out := buf.Bytes()
	if post != nil {
		out = post(out)
	}
	return out, nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites Graphviz's svg tag so the viewBox starts at the
// origin and the element carries explicit pixel dimensions.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
