// Package trace records what a vellum run is doing: which compilation is
// active, which pass it is in, and which fonts and files it touches.
//
// Tracers travel through the pipeline in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span, ctx := trace.StartSpan(ctx, trace.ScopePass, "font_scan")
//	defer span.End("")
//
// Levels gate scopes: phase shows driver and pass spans, detail adds
// per-font and per-file spans, debug adds per-block events. A heartbeat wraps
// the tracer and periodically names the spans still open, which tells a slow
// compilation from a stuck one.
//
// The stream tracer writes every event immediately (text or NDJSON), the ring
// tracer keeps the last N events for a dump after a failure, and the multi
// tracer fans out to both.
package trace
