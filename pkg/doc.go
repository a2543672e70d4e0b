// Package pkg provides the core libraries for Gitscape repository visualization.
//
// # Overview
//
// Gitscape turns a git repository into a spatial scene: the file tree becomes
// a graph laid out by physics or circle packing, and the commit history is
// replayed as animation on top of it. The pkg directory is organized into
// four main areas:
//
//  1. Model - the flat tree and commit documents ([repotree], [history])
//  2. Scene - visibility, layout engines, animation, search ([visibility],
//     [layout], [anim], [search]), composed by the [engine] facade
//  3. Source - repository scanning and caching ([gitsource], [cache])
//  4. Output - static exports ([export]) and shared plumbing ([errors],
//     [observability], [buildinfo])
//
// # Architecture
//
// The typical data flow through Gitscape:
//
//	git repository
//	         ↓
//	    [gitsource] (scan HEAD tree + commit log, cache by HEAD)
//	         ↓
//	    [repotree] + [history] (flat documents, JSON round-trip)
//	         ↓
//	    [engine] (visibility → force/pack layout → animation → search)
//	         ↓
//	    TUI / HTTP API / [export] (DOT, SVG, PNG, JSON)
//
// # Quick Start
//
//	res, err := gitsource.NewScanner(".").Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	e := engine.New(ctx, res.Tree, res.History, layout.DefaultConfig())
//	for e.Tick(16 * time.Millisecond) {
//	    // drive frames; read e.Positions() to draw
//	}
//
// The engine is single-threaded: one goroutine owns it and drives Tick.
// Everything it exposes is a snapshot safe to hand elsewhere.
package pkg
