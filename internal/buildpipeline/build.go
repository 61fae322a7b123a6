package buildpipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"vellum/internal/diag"
	"vellum/internal/observ"
	"vellum/internal/source"
	"vellum/internal/world"
)

// Job is one independent document set.
type Job struct {
	Name   string
	Main   source.Document
	Others []source.Document
	// Output is where the PDF is written; empty keeps it in memory only.
	Output string
}

// BuildOptions configures CompileAll.
type BuildOptions struct {
	World          world.Options
	Workers        int // 0 means GOMAXPROCS
	MaxDiagnostics int
	Progress       ProgressSink
	// OutFS receives artifacts; nil means the OS filesystem.
	OutFS afero.Fs
	Timer *observ.Timer
}

// JobResult is the outcome of one job. Err is nil, ErrCompileFailed or a
// write error.
type JobResult struct {
	Name        string
	Output      string
	Result      Result
	Diagnostics *diag.Bag
	Err         error
}

// CompileAll runs every job in parallel, each against its own freshly
// opened world. Results come back in job order. Only cancellation of ctx
// is returned as an error; per-job failures stay in their JobResult.
func CompileAll(ctx context.Context, jobs []Job, opts BuildOptions) ([]JobResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.OutFS
	if out == nil {
		out = afero.NewOsFs()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]JobResult, len(jobs))
	for i, job := range jobs {
		results[i].Name = jobName(job)
		emit(opts.Progress, results[i].Name, StageFonts, StatusQueued, nil, 0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = runJob(gctx, job, results[i].Name, out, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runJob(ctx context.Context, job Job, name string, out afero.Fs, opts BuildOptions) JobResult {
	res := JobResult{
		Name:        name,
		Output:      job.Output,
		Diagnostics: diag.NewBag(opts.MaxDiagnostics),
	}
	adapter, scan := OpenWorld(ctx, name, job.Main, job.Others, opts.World, opts.Progress)
	compiled, err := Compile(ctx, adapter, &Request{
		Name:        name,
		Diagnostics: res.Diagnostics,
		Progress:    opts.Progress,
		Timer:       opts.Timer,
	})
	compiled.Timings.Set(StageFonts, scan)
	res.Result = compiled
	if err != nil {
		res.Err = err
		return res
	}
	if job.Output != "" {
		elapsed, err := WriteArtifact(out, name, job.Output, compiled.PDF, opts.Progress)
		res.Result.Timings.Set(StageWrite, elapsed)
		res.Err = err
	}
	return res
}

// WriteArtifact stores data at path, creating parent directories.
func WriteArtifact(fs afero.Fs, name, path string, data []byte, sink ProgressSink) (time.Duration, error) {
	emit(sink, name, StageWrite, StatusWorking, nil, 0)
	start := time.Now()
	err := writeFile(fs, path, data)
	elapsed := time.Since(start)
	if err != nil {
		emit(sink, name, StageWrite, StatusError, err, elapsed)
		return elapsed, err
	}
	emit(sink, name, StageWrite, StatusDone, nil, elapsed)
	return elapsed, nil
}

func writeFile(fs afero.Fs, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fs.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}

func jobName(job Job) string {
	if job.Name != "" {
		return job.Name
	}
	return job.Main.ID.Path()
}
