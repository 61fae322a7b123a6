// Package buildpipeline turns documents into PDF artifacts: it opens a
// world, compiles the markup, exports the result and reports progress.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"vellum/internal/diag"
	"vellum/internal/observ"
	"vellum/internal/pdf"
	"vellum/internal/source"
	"vellum/internal/trace"
	"vellum/internal/typeset"
	"vellum/internal/world"
)

// ErrCompileFailed is the only error a failed compilation yields. Details
// live in the diagnostics, if the caller asked for them.
var ErrCompileFailed = errors.New("document compilation failed")

// Request configures one compilation.
type Request struct {
	// Name labels progress events; empty means the main document path.
	Name string
	// Diagnostics receives every finding. When nil, findings are counted
	// and dropped.
	Diagnostics *diag.Bag
	// MaxDiagnostics bounds the private bag used when Diagnostics is nil.
	MaxDiagnostics int
	Progress       ProgressSink
	// Timer, when set, also records stage phases for --timings.
	Timer *observ.Timer
}

// Result captures the artifact and stage timings.
type Result struct {
	PDF      []byte
	Timings  Timings
	Warnings int
}

// OpenWorld builds the adapter for one document set and reports the font
// scan as StageFonts.
func OpenWorld(ctx context.Context, name string, main source.Document, others []source.Document, opts world.Options, sink ProgressSink) (*world.Adapter, time.Duration) {
	if ctx == nil {
		ctx = context.Background()
	}
	if name == "" {
		name = main.ID.Path()
	}
	emit(sink, name, StageFonts, StatusWorking, nil, 0)
	start := time.Now()
	adapter := world.New(ctx, main, others, opts)
	elapsed := time.Since(start)
	emit(sink, name, StageFonts, StatusDone, nil, elapsed)
	return adapter, elapsed
}

// Compile typesets the adapter's main document and exports it as PDF. The
// creation date is the adapter's captured moment, or absent when the clock
// cannot express it.
func Compile(ctx context.Context, adapter *world.Adapter, req *Request) (Result, error) {
	var result Result
	if ctx == nil {
		ctx = context.Background()
	}
	if adapter == nil {
		return result, fmt.Errorf("missing world")
	}
	if req == nil {
		req = &Request{}
	}
	name := req.Name
	if name == "" {
		name = adapter.MainID().Path()
	}
	bag := req.Diagnostics
	if bag == nil {
		bag = diag.NewBag(req.MaxDiagnostics)
	}
	timer := req.Timer
	if timer == nil {
		timer = observ.NewTimer()
	}

	tracer := trace.FromContext(ctx)
	span, _ := trace.StartSpan(trace.WithWorld(ctx, adapter.ID().String()), trace.ScopeDriver, "compile")
	span.WithExtra("main", adapter.MainID().Path())

	// compile
	emit(req.Progress, name, StageCompile, StatusWorking, nil, 0)
	pass := trace.Begin(tracer, trace.ScopePass, "typeset", span.ID())
	idx := timer.Begin(name + ":" + string(StageCompile))
	before := bag.Warnings()
	doc, err := typeset.Compile(adapter, diag.BagReporter{Bag: bag})
	elapsed := timer.End(idx, "")
	result.Timings.Set(StageCompile, elapsed)
	result.Warnings = bag.Warnings() - before
	pass.WithExtra("warnings", strconv.Itoa(result.Warnings)).End("")
	if err != nil {
		emit(req.Progress, name, StageCompile, StatusError, ErrCompileFailed, elapsed)
		span.Fail(err)
		return result, ErrCompileFailed
	}
	emit(req.Progress, name, StageCompile, StatusDone, nil, elapsed)

	// export
	var created *typeset.Datetime
	if now, ok := adapter.Now(); ok {
		created = &now
	}
	emit(req.Progress, name, StageExport, StatusWorking, nil, 0)
	pass = trace.Begin(tracer, trace.ScopePass, "export", span.ID())
	idx = timer.Begin(name + ":" + string(StageExport))
	data, err := pdf.Export(doc, created)
	elapsed = timer.End(idx, "")
	result.Timings.Set(StageExport, elapsed)
	if err != nil {
		pass.Fail(err)
		emit(req.Progress, name, StageExport, StatusError, err, elapsed)
		span.Fail(err)
		return result, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}
	pass.WithExtra("bytes", strconv.Itoa(len(data))).End("")
	emit(req.Progress, name, StageExport, StatusDone, nil, elapsed)

	result.PDF = data
	span.End("")
	return result, nil
}
