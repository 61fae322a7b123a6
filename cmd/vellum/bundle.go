package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"vellum/internal/buildpipeline"
	"vellum/internal/bundle"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Pack document sets into single .vbundle files",
}

var bundlePackCmd = &cobra.Command{
	Use:   "pack [flags] <main.vel> [files...]",
	Short: "Pack a main document and its files into a bundle",
	Args:  cobra.MinimumNArgs(1),
	RunE:  bundlePackExecution,
}

var bundleInspectCmd = &cobra.Command{
	Use:   "inspect [flags] <set.vbundle>",
	Short: "List the documents of a bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  bundleInspectExecution,
}

func init() {
	bundlePackCmd.Flags().StringP("output", "o", "", "bundle path (default: main file with .vbundle)")
	bundleInspectCmd.Flags().String("format", "text", "output format (text|json|yaml)")
	bundleCmd.AddCommand(bundlePackCmd)
	bundleCmd.AddCommand(bundleInspectCmd)
}

func bundlePackExecution(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		output = defaultOutput(args[0], bundleExt)
	}

	set, err := bundle.Load(env.fs, args[0], args[1:])
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	data, err := bundle.Marshal(set)
	if err != nil {
		return err
	}
	if _, err := buildpipeline.WriteArtifact(env.fs, set.Main.Name, output, data, nil); err != nil {
		return err
	}
	if !env.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d documents, %d bytes)\n",
			okColor.Sprint("packed"), output, len(set.Files)+1, len(data))
	}
	return nil
}

type bundleEntryView struct {
	Name   string `json:"name" yaml:"name"`
	Main   bool   `json:"main,omitempty" yaml:"main,omitempty"`
	Size   int    `json:"size" yaml:"size"`
	SHA256 string `json:"sha256" yaml:"sha256"`
}

type bundleView struct {
	Schema  uint16            `json:"schema" yaml:"schema"`
	Size    int               `json:"size" yaml:"size"`
	Entries []bundleEntryView `json:"entries" yaml:"entries"`
}

func bundleInspectExecution(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format %q (must be text, json or yaml)", format)
	}

	f, err := env.fs.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	set, err := bundle.Decode(f)
	if err != nil {
		return err
	}
	view := viewBundle(set)

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	default:
		renderBundleText(out, view)
		return nil
	}
}

func viewBundle(set bundle.Bundle) bundleView {
	view := bundleView{Schema: set.Schema, Size: set.Size()}
	add := func(e bundle.Entry, main bool) {
		view.Entries = append(view.Entries, bundleEntryView{
			Name:   e.Name,
			Main:   main,
			Size:   len(e.Data),
			SHA256: hex.EncodeToString(e.Digest[:]),
		})
	}
	add(set.Main, true)
	for _, e := range set.Files {
		add(e, false)
	}
	return view
}

func renderBundleText(out io.Writer, view bundleView) {
	fmt.Fprintf(out, "schema %d, %d documents, %d bytes\n", view.Schema, len(view.Entries), view.Size)
	for _, e := range view.Entries {
		marker := " "
		if e.Main {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %8d  %s  %s\n", marker, e.Size, e.SHA256[:12], e.Name)
	}
}
