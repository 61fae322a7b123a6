package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"vellum/internal/buildpipeline"
	"vellum/internal/bundle"
	"vellum/internal/config"
	"vellum/internal/source"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags]",
	Short: "Compile every document of a vellum project",
	Long: `Compile every [[document]] listed in vellum.toml. The manifest is found by
walking up from the working directory; documents compile concurrently, each
against its own font catalog and clock.`,
	Args: cobra.NoArgs,
	RunE: buildExecution,
}

func init() {
	buildCmd.Flags().IntP("jobs", "j", 0, "max documents compiled at once (0 = GOMAXPROCS)")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	workers, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if !env.configFound {
		return fmt.Errorf("no %s found in this directory or any parent", config.FileName)
	}
	if len(env.config.Documents) == 0 {
		return fmt.Errorf("%s lists no [[document]] entries", env.config.Path)
	}

	jobs, err := projectJobs(env)
	if err != nil {
		return err
	}
	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = job.Name
	}

	type buildOutcome struct {
		results []buildpipeline.JobResult
		err     error
	}
	ctx := cmd.Context()
	outcome, uiErr := runProgress(env.ui, "vellum build", names, func(sink buildpipeline.ProgressSink) buildOutcome {
		results, err := buildpipeline.CompileAll(ctx, jobs, buildpipeline.BuildOptions{
			World:          env.world,
			Workers:        workers,
			MaxDiagnostics: env.maxDiagnostics,
			Progress:       sink,
			OutFS:          env.fs,
		})
		return buildOutcome{results: results, err: err}
	})
	if uiErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "progress view failed: %v\n", uiErr)
	}
	if outcome.err != nil {
		return outcome.err
	}

	failed := reportBuild(cmd.OutOrStdout(), cmd.ErrOrStderr(), jobs, outcome.results, env)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(jobs))
	}
	return nil
}

// projectJobs loads every [[document]] of the manifest. Job names are the
// main paths as written in the manifest.
func projectJobs(env *commandEnv) ([]buildpipeline.Job, error) {
	jobs := make([]buildpipeline.Job, 0, len(env.config.Documents))
	for i, doc := range env.config.Documents {
		r := env.config.Resolve(i)
		set, err := bundle.Load(env.fs, r.Main, r.Files)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.Main, err)
		}
		main, others := set.Documents()
		jobs = append(jobs, buildpipeline.Job{
			Name:   doc.Main,
			Main:   main,
			Others: others,
			Output: r.Output,
		})
	}
	return jobs, nil
}

// reportBuild prints one line per job plus its diagnostics and returns the
// number of failed jobs.
func reportBuild(out, errOut io.Writer, jobs []buildpipeline.Job, results []buildpipeline.JobResult, env *commandEnv) int {
	failed := 0
	for i, res := range results {
		job := jobs[i]
		// диагностики рендерим по исходникам самого задания
		printDiagnostics(errOut, res.Diagnostics, source.NewStore(job.Main, job.Others...))
		if res.Err != nil {
			failed++
			fmt.Fprintf(errOut, "%s %s: %v\n", errorColor.Sprint("failed"), res.Name, res.Err)
			continue
		}
		if !env.quiet {
			fmt.Fprintf(out, "%s %s -> %s (%d bytes)\n", okColor.Sprint("built"), res.Name, res.Output, len(res.Result.PDF))
		}
		if env.timings {
			printStageTimings(out, res.Result.Timings)
		}
	}
	return failed
}
