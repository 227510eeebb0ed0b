// Package graph generates DOT and Mermaid dependency graphs from a stack.
package graph

import (
	"io"
	"strings"

	"github.com/emicklei/dot"

	"github.com/lex00/wetwire-aurora-go/stack"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from a stack.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByComponent groups nodes by the component that declared them.
	ClusterByComponent bool

	// IncludeOutputs adds a node per stack output.
	IncludeOutputs bool
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(s *stack.Stack, w io.Writer) error {
	graph := g.buildGraph(s)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(s *stack.Stack) (string, error) {
	var sb strings.Builder
	if err := g.Generate(s, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildGraph creates the dot.Graph structure. Edges point from a node to the
// node it depends on: blue for attribute references, dashed for ordering-only
// edges.
func (g *Generator) buildGraph(s *stack.Stack) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})

	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	nodes := make(map[string]dot.Node)
	if g.ClusterByComponent {
		g.addClusteredNodes(graph, s, nodes)
	} else {
		for _, n := range s.Resources() {
			nodes[n.Name] = addNode(graph, n)
		}
	}

	for _, n := range s.Resources() {
		from := nodes[n.Name]
		for _, dep := range n.Implicit {
			graph.Edge(from, nodes[dep]).Attr("color", "blue")
		}
		for _, dep := range n.Explicit {
			graph.Edge(from, nodes[dep]).Attr("style", "dashed")
		}
	}

	if g.IncludeOutputs {
		for _, o := range s.Outputs() {
			out := graph.Node("output:" + o.Name)
			out.Attr("shape", "ellipse")
			out.Label(o.Name)
			if ref, ok := o.Value.Reference(); ok {
				graph.Edge(out, nodes[ref.Resource]).Label(ref.Attribute)
			}
		}
	}

	return graph
}

// addClusteredNodes adds nodes inside one subgraph per component. Nodes with
// no component stay at the top level.
func (g *Generator) addClusteredNodes(graph *dot.Graph, s *stack.Stack, nodes map[string]dot.Node) {
	clusters := make(map[string]*dot.Graph)
	for _, n := range s.Resources() {
		if n.Parent == "" {
			nodes[n.Name] = addNode(graph, n)
			continue
		}
		cluster, ok := clusters[n.Parent]
		if !ok {
			cluster = graph.Subgraph("cluster_"+n.Parent, dot.ClusterOption{})
			cluster.Attr("label", n.Parent)
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")
			clusters[n.Parent] = cluster
		}
		nodes[n.Name] = addNode(cluster, n)
	}
}

func addNode(graph *dot.Graph, n *stack.Node) dot.Node {
	node := graph.Node(n.Name)
	node.Label(n.Name + "\\n[" + n.Type() + "]")
	return node
}
