// Package repotree models a repository file tree as a rooted graph.
//
// The package consumes the flat node/link lists produced by a data source
// (see pkg/gitsource) and builds an indexed [Tree] rooted at the synthetic
// [RootID] node. The tree exposes the queries the layout engines and the
// commit animator need: direct children, aggregate directory weights, and
// bounded path-to-root walks.
//
// # Data Model
//
// Every node has a unique ID, a kind (file or directory), and an optional
// parent reference. Edges are strictly parent→child, so a well-formed input
// is always a tree. The builder is forgiving rather than strict: a node whose
// parent ID is unknown becomes a direct child of ROOT instead of failing,
// and parent-chain walks are cycle-safe.
//
// # Usage
//
//	rt, err := repotree.ReadTreeFile("tree.json")
//	if err != nil {
//	    return err
//	}
//	tree := repotree.Build(rt)
//	for _, child := range tree.Children(repotree.RootID) {
//	    fmt.Println(child.Name)
//	}
package repotree
