// Package graph turns the flat node/edge lists produced by the diagram
// generator into a single rooted tree for layered rendering.
//
// The generator's output is untrusted. Resolve therefore never returns an
// error: an empty node list resolves to nil, edges naming unknown ids are
// dropped, and cyclic or multi-parent input still yields a finite tree.
//
// # Resolution
//
// Resolution runs in two passes over an id-keyed index:
//
//  1. One linear pass over the edges appends child ids and counts in-degree.
//     Edges whose endpoints are unknown are recorded in Tree.Dropped.
//  2. The root is the first node (input order) with in-degree zero, or the
//     first node when every node has an incoming edge.
//
// The index is then materialised into owning TreeNode values. A node with
// several parents is cloned once per appearance (listed in Tree.Shared) and
// an edge back to an ancestor on the current path is cut (Tree.Cut), so the
// returned structure is always acyclic. Materialisation stops after
// MaxAppearances nodes and sets Tree.Truncated.
//
// Nodes that are not reachable from the root are not part of the tree; a
// disconnected graph resolves to the component containing the root.
//
// # Payloads
//
// DecodePayload validates the generator's JSON against a CUE schema that
// checks structure only, then normalises values: labels are whitespace
// collapsed and NFC normalised, negative depths become zero, oversized depths
// are clamped and non-positive time estimates are dropped. A label, depth or
// estimate of the wrong JSON type reads as absent.
package graph
