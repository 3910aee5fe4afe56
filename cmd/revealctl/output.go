package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/reveal-bridge/alloc"
	"github.com/wippyai/reveal-bridge/boundary"
	"github.com/wippyai/reveal-bridge/config"
	"github.com/wippyai/reveal-bridge/i3df"
	"github.com/wippyai/reveal-bridge/mesh"
	"github.com/wippyai/reveal-bridge/renderables"
	"github.com/wippyai/reveal-bridge/wasmhost"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// report is a titled list of key/value lines.
type report struct {
	title string
	lines [][2]string
}

func (r *report) add(key, format string, args ...any) {
	r.lines = append(r.lines, [2]string{key, fmt.Sprintf(format, args...)})
}

func (a *app) render(r report) string {
	var b strings.Builder
	if a.styled {
		b.WriteString(titleStyle.Render(r.title))
	} else {
		b.WriteString(r.title)
	}
	b.WriteByte('\n')

	width := 0
	for _, l := range r.lines {
		width = max(width, len(l[0]))
	}
	for _, l := range r.lines {
		key := fmt.Sprintf("%-*s", width, l[0])
		if a.styled {
			key = keyStyle.Render(key)
		}
		b.WriteString("  ")
		b.WriteString(key)
		if l[1] != "" {
			b.WriteString("  ")
			b.WriteString(l[1])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func meshSummary(path string, m *mesh.Ctm) report {
	r := report{title: path}
	verts := mesh.Vertices(m.Body)
	r.add("vertices", "%d (%d bytes)", len(verts), len(m.Body.Vertices))
	r.add("triangles", "%d (%d bytes)", len(mesh.Indices(m.Body))/3, len(m.Body.Indices))
	if len(verts) > 0 {
		lo, hi := verts[0], verts[0]
		for _, v := range verts[1:] {
			lo.X, lo.Y, lo.Z = min(lo.X, v.X), min(lo.Y, v.Y), min(lo.Z, v.Z)
			hi.X, hi.Y, hi.Z = max(hi.X, v.X), max(hi.Y, v.Y), max(hi.Z, v.Z)
		}
		r.add("bounds", "(%g %g %g) .. (%g %g %g)", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	}
	return r
}

// entry is one sector in display order.
type entry struct {
	sector *renderables.Sector
	title  string
	depth  int
}

func sceneEntries(sc *renderables.Scene) []entry {
	var out []entry
	var walk func(n *renderables.Node, depth int)
	walk = func(n *renderables.Node, depth int) {
		if n == nil {
			return
		}
		out = append(out, entry{
			sector: n.Sector,
			title:  fmt.Sprintf("sector %d", n.Sector.ID),
			depth:  depth,
		})
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(sc.Root, 0)
	return out
}

func treeSummary(title string, entries []entry) report {
	r := report{title: title}
	total := 0
	for _, e := range entries {
		n := e.sector.PrimitiveCount()
		total += n
		r.add(strings.Repeat("  ", e.depth)+e.title, "%d primitives", n)
	}
	r.add("total", "%d sectors, %d primitives", len(entries), total)
	return r
}

// sectorDetail lists a sector's per-collection counts in name order.
func sectorDetail(s *renderables.Sector) []string {
	lines := []string{
		fmt.Sprintf("id %d  parent %d", s.ID, s.ParentID),
		fmt.Sprintf("bbox %v .. %v", s.BBoxMin, s.BBoxMax),
		"",
	}
	lines = append(lines, countLines(s.Counts())...)
	if len(s.Unconverted) > 0 {
		lines = append(lines, "", "unconverted:")
		counts := make(map[string]int, len(s.Unconverted))
		for k, v := range s.Unconverted {
			counts[k] = int(v)
		}
		lines = append(lines, countLines(counts)...)
	}
	return lines
}

func countLines(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, k := range names {
		lines = append(lines, fmt.Sprintf("  %-18s %d", k, counts[k]))
	}
	return lines
}

func schemaText(cfg config.Config) (report, error) {
	host, err := wasmhost.New(cfg)
	if err != nil {
		return report{}, err
	}
	r := report{title: "boundary types (" + cfg.Host.ModuleName + ")"}
	values := []struct {
		name string
		v    any
	}{
		{"decode-mesh", mesh.Ctm{}},
		{"convert-sector", renderables.Sector{}},
		{"decode-scene", renderables.Scene{}},
		{"last-error", wasmhost.ErrorRecord{}},
	}
	for _, e := range values {
		v, err := boundary.Marshal(e.v)
		if err != nil {
			return r, fmt.Errorf("%s: %w", e.name, err)
		}
		t := boundary.Schema(v)
		r.add(e.name, "%s", boundary.TypeString(t))
		for _, def := range strings.Split(strings.TrimRight(boundary.Definitions(t), "\n"), "\n") {
			if def != "" {
				r.add("", "%s", def)
			}
		}
	}
	for _, name := range host.FuncNames() {
		r.add("func", "%s", name)
	}
	for _, name := range i3df.AttributeArrayNames() {
		r.add("attribute", "%s", name)
	}
	r.add("allocator", "%s", alloc.Current())
	return r, nil
}
