package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vellum/internal/buildpipeline"
	"vellum/internal/diag"
	"vellum/internal/source"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <main.vel|set.vbundle> [files...]",
	Short: "Compile one document to PDF",
	Long: `Compile a main document into a PDF file.

Extra arguments are auxiliary files (includes, images) the main document may
reference; they are named relative to the main document's directory. A
.vbundle file carries the whole document set by itself.`,
	Args: cobra.MinimumNArgs(1),
	RunE: compileExecution,
}

func init() {
	compileCmd.Flags().StringP("output", "o", "", "output PDF path (default: main file with .pdf)")
}

type compileOutcome struct {
	store  *source.Store
	bag    *diag.Bag
	result buildpipeline.Result
	err    error
}

func compileExecution(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		output = defaultOutput(args[0], ".pdf")
	}

	set, err := loadDocuments(env.fs, args)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	main, others := set.Documents()
	ctx := cmd.Context()

	outcome, uiErr := runProgress(env.ui, "vellum compile", []string{main.ID.Path()}, func(sink buildpipeline.ProgressSink) compileOutcome {
		return compileOne(ctx, env, main, others, output, sink)
	})
	if uiErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "progress view failed: %v\n", uiErr)
	}

	printDiagnostics(cmd.ErrOrStderr(), outcome.bag, outcome.store)
	if outcome.err != nil {
		if errors.Is(outcome.err, buildpipeline.ErrCompileFailed) {
			return outcome.err
		}
		return fmt.Errorf("failed to write output: %w", outcome.err)
	}
	if !env.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d bytes)\n", okColor.Sprint("wrote"), output, len(outcome.result.PDF))
	}
	if env.timings {
		printStageTimings(cmd.OutOrStdout(), outcome.result.Timings)
	}
	return nil
}

func compileOne(ctx context.Context, env *commandEnv, main source.Document, others []source.Document, output string, sink buildpipeline.ProgressSink) compileOutcome {
	name := main.ID.Path()
	adapter, scan := buildpipeline.OpenWorld(ctx, name, main, others, env.world, sink)
	bag := diag.NewBag(env.maxDiagnostics)
	out := compileOutcome{store: adapter.Store(), bag: bag}

	res, err := buildpipeline.Compile(ctx, adapter, &buildpipeline.Request{
		Name:        name,
		Diagnostics: bag,
		Progress:    sink,
	})
	res.Timings.Set(buildpipeline.StageFonts, scan)
	out.result = res
	if err != nil {
		out.err = err
		return out
	}
	elapsed, err := buildpipeline.WriteArtifact(env.fs, name, output, res.PDF, sink)
	out.result.Timings.Set(buildpipeline.StageWrite, elapsed)
	out.err = err
	return out
}
