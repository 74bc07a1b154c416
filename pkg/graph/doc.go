// Package graph provides the in-memory graph used throughout graphprep.
//
// # Overview
//
// A [Graph] is an unweighted graph with string vertex labels. It is built by
// the format parsers, checked by the validator, rewritten by the
// canonicalizer, and measured by the statistics module. It is deliberately
// small: it is not a general-purpose graph library.
//
// # Insertion Order
//
// Vertices are kept in first-seen order. Adding an edge whose endpoints are
// unknown registers the source before the target. The order is observable
// through [Graph.Vertices] and [Graph.Label], and is what canonical
// relabeling depends on.
//
//	g := graph.New(false)
//	_, _ = g.AddEdge("b", "a")
//	g.Vertices() // ["b", "a"]
//
// # Edge Semantics
//
// Edges carry no weight and no multiplicity: adding an existing edge is a
// no-op. In a directed graph (u, v) and (v, u) are distinct arcs. Self-loops
// are stored and counted by [Graph.Size] until the canonicalizer removes
// them.
//
// # Undirected View
//
// [Graph.Neighbors], [Graph.Degree] and [Graph.UndirectedSize] always look at
// the undirected, loop-free collapse of the stored arcs, regardless of
// whether the graph is directed. Connectivity and degree statistics are
// defined on that view.
//
// A Graph is not safe for concurrent mutation. Pipeline runs own their graph
// exclusively.
package graph
