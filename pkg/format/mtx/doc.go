// Package mtx reads Matrix Market (.mtx) files as adjacency matrices.
//
// # Overview
//
// A Matrix Market file starts with a banner
//
//	%%MatrixMarket matrix <coordinate|array> <field> <symmetry>
//
// followed by comment lines (starting with %), a size line, and the entries.
// Only the presence of an entry matters here: a numeric field (real, double,
// complex, integer) is rewritten to pattern when the banner is read, so
// coordinate values are never parsed. Array layouts store every cell, so
// their values are still read to tell zero cells from edges.
//
// The reader is permissive in two ways seen in real datasets:
//
//   - A banner written with a single leading % is accepted.
//   - A file with no banner is read as "coordinate pattern general".
//
// # Interpretation
//
// [Read] produces a [Matrix]; [Interpret] turns it into a graph. The matrix
// is first read as a sparse adjacency structure ([FromSparse]), which needs a
// square coordinate matrix. If that fails it is read as a dense square
// adjacency matrix ([FromDense]) backed by gonum's mat.Dense. If both fail
// the returned error carries both causes.
//
// Vertices are labelled "0".."n-1" (file coordinates are 1-based) and are
// all registered before any edge, so isolated rows keep their slot. A
// general matrix yields a directed graph; every other symmetry yields an
// undirected one.
package mtx
