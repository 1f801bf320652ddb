// Package kgexport renders a knowledge graph as DOT or a block-diagram
// text format. Both are pure, deterministic functions of a bounded
// node/edge set: inputs are sorted by id before rendering so the same
// graph always produces byte-identical output, which is what makes a
// golden-file test of either format meaningful.
package kgexport

import (
	"fmt"
	"sort"
	"strings"

	"google.golang.org/protobuf/types/known/timestamppb"

	"gik/internal/kg"
)

// node and edge are the export package's internal IR: a deterministic shape
// built once from kg.Node/kg.Edge before either renderer walks it. A node's
// creation time is kept as a protobuf well-known Timestamp; neither
// renderer prints it.
type node struct {
	id        string
	kind      string
	label     string
	createdAt *timestamppb.Timestamp
}

type edge struct {
	id   string
	from string
	to   string
	kind string
}

func buildIR(nodes []kg.Node, edges []kg.Edge) ([]node, []edge) {
	ns := make([]node, 0, len(nodes))
	for _, n := range nodes {
		ns = append(ns, node{id: n.ID, kind: string(n.Kind), label: n.Label, createdAt: timestamppb.New(n.CreatedAt)})
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].id < ns[j].id })

	es := make([]edge, 0, len(edges))
	for _, e := range edges {
		es = append(es, edge{id: e.ID, from: e.From, to: e.To, kind: string(e.Kind)})
	}
	sort.Slice(es, func(i, j int) bool { return es[i].id < es[j].id })

	return ns, es
}

// DOT renders nodes and edges as a Graphviz DOT digraph.
func DOT(nodes []kg.Node, edges []kg.Edge) string {
	ns, es := buildIR(nodes, edges)

	var b strings.Builder
	b.WriteString("digraph kg {\n")
	for _, n := range ns {
		fmt.Fprintf(&b, "  %q [label=%q, kind=%q];\n", n.id, n.label, n.kind)
	}
	for _, e := range es {
		fmt.Fprintf(&b, "  %q -> %q [kind=%q];\n", e.from, e.to, e.kind)
	}
	b.WriteString("}\n")
	return b.String()
}

// Block renders nodes and edges as a flat, human-scannable text listing
// grouped by node kind, followed by edges grouped by kind.
func Block(nodes []kg.Node, edges []kg.Edge) string {
	ns, es := buildIR(nodes, edges)

	byKind := make(map[string][]node)
	var kindOrder []string
	for _, n := range ns {
		if _, ok := byKind[n.kind]; !ok {
			kindOrder = append(kindOrder, n.kind)
		}
		byKind[n.kind] = append(byKind[n.kind], n)
	}
	sort.Strings(kindOrder)

	var b strings.Builder
	for _, kind := range kindOrder {
		fmt.Fprintf(&b, "[%s]\n", kind)
		for _, n := range byKind[kind] {
			fmt.Fprintf(&b, "  %s (%s)\n", n.label, n.id)
		}
	}

	edgesByKind := make(map[string][]edge)
	var edgeKindOrder []string
	for _, e := range es {
		if _, ok := edgesByKind[e.kind]; !ok {
			edgeKindOrder = append(edgeKindOrder, e.kind)
		}
		edgesByKind[e.kind] = append(edgesByKind[e.kind], e)
	}
	sort.Strings(edgeKindOrder)

	for _, kind := range edgeKindOrder {
		fmt.Fprintf(&b, "[%s edges]\n", kind)
		for _, e := range edgesByKind[kind] {
			fmt.Fprintf(&b, "  %s -> %s\n", e.from, e.to)
		}
	}

	return b.String()
}
