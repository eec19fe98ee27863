package renderer

import (
	"fmt"
	"strconv"
	"strings"
)

// Label names a pad in the filter graph. Input stream specifiers such as
// "0:v" are labels too, but they are owned by ffmpeg rather than a node.
type Label string

// VideoStream is the video pad of the i-th input file.
func VideoStream(i int) Label { return Label(strconv.Itoa(i) + ":v") }

// AudioStream is the audio pad of the i-th input file.
func AudioStream(i int) Label { return Label(strconv.Itoa(i) + ":a") }

func (l Label) String() string { return "[" + string(l) + "]" }

// IsStream reports whether the label refers to an input stream.
func (l Label) IsStream() bool { return strings.Contains(string(l), ":") }

// Node is one filter chain: labeled inputs, filters applied in order,
// labeled outputs.
type Node struct {
	Inputs  []Label
	Filters []Filter
	Outputs []Label
}

func (n Node) String() string {
	var b strings.Builder
	for _, in := range n.Inputs {
		b.WriteString(in.String())
	}
	for i, f := range n.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Render(f))
	}
	for _, out := range n.Outputs {
		b.WriteString(out.String())
	}
	return b.String()
}

// Graph collects typed nodes and serializes them to ffmpeg's
// -filter_complex syntax only in Build. The first wiring error is kept
// and reported by Build, so callers can chain calls without checking each.
type Graph struct {
	nodes    []Node
	reserved map[Label]bool
	produced map[Label]bool
	consumed map[Label]bool
	counters map[string]int
	err      error
}

func NewGraph() *Graph {
	return &Graph{
		reserved: make(map[Label]bool),
		produced: make(map[Label]bool),
		consumed: make(map[Label]bool),
		counters: make(map[string]int),
	}
}

// Label returns a label unique within the graph: prefix itself when it is
// still free, otherwise prefix_N.
func (g *Graph) Label(prefix string) Label {
	if prefix == "" {
		prefix = "n"
	}
	if l := Label(prefix); !g.reserved[l] {
		g.reserved[l] = true
		return l
	}
	for {
		n := g.counters[prefix] + 1
		g.counters[prefix] = n
		l := Label(prefix + "_" + strconv.Itoa(n))
		if !g.reserved[l] {
			g.reserved[l] = true
			return l
		}
	}
}

// Add appends a node. Non-stream inputs must have been produced by an
// earlier node and not consumed yet; outputs must be fresh.
func (g *Graph) Add(inputs []Label, filters []Filter, outputs ...Label) {
	if g.err != nil {
		return
	}
	if len(filters) == 0 {
		g.err = fmt.Errorf("node %v has no filters", outputs)
		return
	}
	if len(outputs) == 0 {
		g.err = fmt.Errorf("node %s has no outputs", Render(filters[0]))
		return
	}
	for _, in := range inputs {
		if in.IsStream() {
			continue
		}
		if !g.produced[in] {
			g.err = fmt.Errorf("input %s is not produced by any node", in)
			return
		}
		if g.consumed[in] {
			g.err = fmt.Errorf("input %s is consumed twice", in)
			return
		}
	}
	for _, out := range outputs {
		if out.IsStream() {
			g.err = fmt.Errorf("output %s collides with an input stream", out)
			return
		}
		if g.produced[out] {
			g.err = fmt.Errorf("output %s is produced twice", out)
			return
		}
	}
	for _, in := range inputs {
		if !in.IsStream() {
			g.consumed[in] = true
		}
	}
	for _, out := range outputs {
		g.produced[out] = true
		g.reserved[out] = true
	}
	g.nodes = append(g.nodes, Node{
		Inputs:  append([]Label(nil), inputs...),
		Filters: append([]Filter(nil), filters...),
		Outputs: append([]Label(nil), outputs...),
	})
}

// Chain adds a single-output node and returns its fresh label.
func (g *Graph) Chain(inputs []Label, prefix string, filters ...Filter) Label {
	out := g.Label(prefix)
	g.Add(inputs, filters, out)
	return out
}

// Fork splits in into one fresh label per prefix.
func (g *Graph) Fork(in Label, prefixes ...string) []Label {
	outs := make([]Label, len(prefixes))
	for i, p := range prefixes {
		outs[i] = g.Label(p)
	}
	g.Add([]Label{in}, []Filter{Split{N: len(outs)}}, outs...)
	return outs
}

// Build checks that every dangling pad is one of the requested outputs
// and serializes the graph.
func (g *Graph) Build(outputs ...Label) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	want := make(map[Label]bool, len(outputs))
	for _, out := range outputs {
		if !g.produced[out] {
			return "", fmt.Errorf("output %s is not produced by any node", out)
		}
		if g.consumed[out] {
			return "", fmt.Errorf("output %s is already consumed inside the graph", out)
		}
		want[out] = true
	}
	for _, n := range g.nodes {
		for _, out := range n.Outputs {
			if !g.consumed[out] && !want[out] {
				return "", fmt.Errorf("pad %s is left unconnected", out)
			}
		}
	}

	parts := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ";"), nil
}
