// Package repulsion keeps diagram nodes visually separated with a damped,
// pairwise repulsion simulation.
//
// # Overview
//
// Every pair of entities closer than [Config.Radius] pushes apart with a force
// proportional to their overlap. A linear damping factor fades the force to
// zero across the iteration budget, so the simulation always terminates. It
// stops early as soon as no pair overlaps, which keeps well separated
// entities perfectly still.
//
// # Pure Step
//
// The algorithm is exposed as a pure function with no hidden state:
//
//	next, overlapped := repulsion.Step(entities, step, cfg)
//
// [Displacements] returns the raw per-entity push for one iteration, and
// [Run] drives [Step] to convergence synchronously for batch callers such as
// the pipeline and the HTTP API.
//
// # Live Simulation
//
// Interactive canvases own a [Board], a mutable entity collection that
// user drags and simulation results both write to. A [Simulator] runs at
// most one simulation per board: [Simulator.Start] cancels the run in flight,
// waits for its current iteration to complete, and begins again from
// iteration 0 with a fresh generation token. Each iteration waits for the
// next frame from a [Frames] source and applies its result only if its
// token is still current.
//
// [Watch] connects the two: it restarts the simulator whenever
// [Board.Replace] changes the set of entity IDs, and leaves drags alone.
//
//	board := repulsion.NewBoard(entities)
//	sim := repulsion.NewSimulator(cfg, repulsion.NewTickerFrames(60))
//	go repulsion.Watch(ctx, board, sim)
//
// # Dragging
//
// Entities flagged as Dragging are authoritative: they take part in no pair
// computation and are never displaced, regardless of overlap.
package repulsion
